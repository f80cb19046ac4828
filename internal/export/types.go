// Package export renders a client's calendar status report and prints it to
// PDF through headless Chrome.
package export

import "errors"

// ReportClient is the client header block of the status report.
type ReportClient struct {
	CompanyName string
	Industry    string
	BrandColor  string
	LogoURL     string
}

// ReportItem is one calendar row in the status report table.
type ReportItem struct {
	Date         string
	Day          string
	Hook         string
	Type         string
	TeamStatus   string
	ClientStatus string
}

// StatusLine is one row of the per-status count table.
type StatusLine struct {
	Label string
	Count int
}

// ReportData is everything the report template needs, already aggregated.
type ReportData struct {
	Client         ReportClient
	GeneratedAt    string
	LastActivity   string
	TotalItems     int
	CompletedItems int
	CompletionPct  int
	TeamCounts     []StatusLine
	ClientCounts   []StatusLine
	Items          []ReportItem
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
