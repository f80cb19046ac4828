package export

import (
	"fmt"
	"time"

	"contentcal/api/internal/store"
	"contentcal/api/internal/workflow"
)

const defaultBrandColor = "#6366f1"

// Service builds the PDF status report for a client's calendar.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// StatusReport aggregates the client's calendar and prints it to PDF.
func (s *Service) StatusReport(user store.User, items []store.CalendarItem) (*Result, error) {
	data := BuildReportData(user, items, time.Now())

	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	return exportPDF(html, user.CompanyName+" Status Report")
}

// BuildReportData computes the report aggregates from raw calendar rows.
func BuildReportData(user store.User, items []store.CalendarItem, now time.Time) ReportData {
	statuses := make([]workflow.ItemStatus, 0, len(items))
	rows := make([]ReportItem, 0, len(items))
	for _, item := range items {
		statuses = append(statuses, workflow.ItemStatus{
			Team:      workflow.TeamStatus(item.TeamStatus),
			Client:    workflow.ClientStatus(item.ClientStatus),
			UpdatedAt: item.UpdatedAt,
		})
		rows = append(rows, ReportItem{
			Date:         item.Date,
			Day:          item.Day,
			Hook:         item.Hook,
			Type:         item.Type,
			TeamStatus:   item.TeamStatus,
			ClientStatus: item.ClientStatus,
		})
	}

	counts := workflow.CountStatuses(statuses)
	teamLines := make([]StatusLine, 0, len(workflow.TeamStatuses))
	for _, ts := range workflow.TeamStatuses {
		teamLines = append(teamLines, StatusLine{Label: string(ts), Count: counts.Team[ts]})
	}
	clientLines := make([]StatusLine, 0, len(workflow.ClientStatuses))
	for _, cs := range workflow.ClientStatuses {
		clientLines = append(clientLines, StatusLine{Label: string(cs), Count: counts.Client[cs]})
	}

	completed := 0
	for _, st := range statuses {
		if workflow.Completed(st.Team, st.Client) {
			completed++
		}
	}

	brandColor := user.BrandColor
	if brandColor == "" {
		brandColor = defaultBrandColor
	}

	lastActivity := ""
	if last := workflow.LastActivity(statuses, user.CreatedAt); !last.IsZero() {
		lastActivity = last.Format("Jan 2, 2006")
	}

	return ReportData{
		Client: ReportClient{
			CompanyName: user.CompanyName,
			Industry:    user.Industry,
			BrandColor:  brandColor,
			LogoURL:     user.LogoURL,
		},
		GeneratedAt:    now.Format("Jan 2, 2006 15:04 MST"),
		LastActivity:   lastActivity,
		TotalItems:     len(items),
		CompletedItems: completed,
		CompletionPct:  int(workflow.CompletionRate(statuses) * 100),
		TeamCounts:     teamLines,
		ClientCounts:   clientLines,
		Items:          rows,
	}
}
