package export

import (
	"bytes"
	"html/template"
)

var reportTemplate = template.Must(template.New("report").Parse(reportTemplateHTML))

// RenderReportHTML renders the status report template with provided data.
func RenderReportHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Client.CompanyName}} Status Report</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; color: #1f2937; margin: 0; }
    .banner { border-bottom: 4px solid {{.Client.BrandColor}}; padding-bottom: 0.75rem; margin-bottom: 1.5rem; }
    .banner img { max-height: 48px; }
    h1 { margin: 0.25rem 0 0; font-size: 1.6rem; }
    .meta { color: #6b7280; font-size: 0.85em; }
    .summary { display: flex; gap: 1.5rem; margin: 1.5rem 0; }
    .summary .card { background: #f9fafb; border: 1px solid #e5e7eb; border-radius: 6px; padding: 0.75rem 1.25rem; }
    .summary .card .value { font-size: 1.5rem; font-weight: bold; color: {{.Client.BrandColor}}; }
    table { width: 100%; border-collapse: collapse; margin: 1rem 0; font-size: 0.85em; }
    th { text-align: left; background: #f3f4f6; padding: 0.4rem 0.6rem; border-bottom: 2px solid #d1d5db; }
    td { padding: 0.4rem 0.6rem; border-bottom: 1px solid #e5e7eb; vertical-align: top; }
    .counts { display: flex; gap: 2rem; }
    .counts table { width: auto; min-width: 220px; }
    h2 { font-size: 1.1rem; border-bottom: 1px solid #e5e7eb; padding-bottom: 0.25rem; margin-top: 2rem; }
    .status { text-transform: capitalize; }
  </style>
</head>
<body>
  <div class="banner">
    {{if .Client.LogoURL}}<img src="{{.Client.LogoURL}}" alt="logo">{{end}}
    <h1>{{.Client.CompanyName}} Content Status Report</h1>
    <div class="meta">{{if .Client.Industry}}{{.Client.Industry}} | {{end}}Generated {{.GeneratedAt}}{{if .LastActivity}} | Last activity {{.LastActivity}}{{end}}</div>
  </div>

  <div class="summary">
    <div class="card"><div class="value">{{.TotalItems}}</div>Planned posts</div>
    <div class="card"><div class="value">{{.CompletedItems}}</div>Completed</div>
    <div class="card"><div class="value">{{.CompletionPct}}%</div>Completion</div>
  </div>

  <h2>Status Breakdown</h2>
  <div class="counts">
    <table>
      <tr><th colspan="2">Team Status</th></tr>
      {{range .TeamCounts}}<tr><td class="status">{{.Label}}</td><td>{{.Count}}</td></tr>
      {{end}}
    </table>
    <table>
      <tr><th colspan="2">Client Status</th></tr>
      {{range .ClientCounts}}<tr><td class="status">{{.Label}}</td><td>{{.Count}}</td></tr>
      {{end}}
    </table>
  </div>

  {{if .Items}}
  <h2>Calendar</h2>
  <table>
    <tr><th>Date</th><th>Day</th><th>Hook</th><th>Type</th><th>Team Status</th><th>Client Status</th></tr>
    {{range .Items}}<tr>
      <td>{{.Date}}</td><td>{{.Day}}</td><td>{{.Hook}}</td><td>{{.Type}}</td>
      <td class="status">{{.TeamStatus}}</td><td class="status">{{.ClientStatus}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
</body>
</html>`
