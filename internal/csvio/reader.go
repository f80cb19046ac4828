// Package csvio parses uploaded calendar sheets and renders them back out.
// Ingestion is permissive: varied header spellings are aliased, out-of-enum
// statuses are coerced, and rows missing required fields are dropped with the
// counts reported rather than failing the upload.
package csvio

import (
	"errors"
	"strings"

	"contentcal/api/internal/workflow"
)

// ErrEmptyInput is returned when the uploaded text contains no logical lines.
var ErrEmptyInput = errors.New("csv input is empty")

// Record is one parsed calendar row, missing only the persistence-assigned
// id, owner and timestamps.
type Record struct {
	Date         string
	Day          string
	Platform     []string
	Type         string
	TeamStatus   workflow.TeamStatus
	ClientStatus workflow.ClientStatus
	IsNew        bool
	Hook         string
	Copy         string
	KPI          string
	ImagePrompt1 string
	ImagePrompt2 string
	Comments     []string

	// Extra holds columns the alias table does not recognize, keyed by the
	// lower-cased header with spaces replaced by underscores.
	Extra map[string]string
}

// Report accounts for every submitted row so silent filtering and coercion
// stay visible to the uploader.
type Report struct {
	Submitted int `json:"submitted"`
	Accepted  int `json:"accepted"`
	Corrected int `json:"corrected"`
	Skipped   int `json:"skipped"`
}

const (
	fieldDate         = "date"
	fieldDay          = "day"
	fieldPlatform     = "platform"
	fieldType         = "type"
	fieldTeamStatus   = "teamStatus"
	fieldClientStatus = "clientStatus"
	fieldHook         = "hook"
	fieldCopy         = "copy"
	fieldKPI          = "kpi"
	fieldImagePrompt1 = "imagePrompt1"
	fieldImagePrompt2 = "imagePrompt2"
	fieldComments     = "comments"
)

var headerAliases = map[string]string{
	"date":           fieldDate,
	"day":            fieldDay,
	"platform":       fieldPlatform,
	"platforms":      fieldPlatform,
	"type":           fieldType,
	"content type":   fieldType,
	"contenttype":    fieldType,
	"team_status":    fieldTeamStatus,
	"team status":    fieldTeamStatus,
	"teamstatus":     fieldTeamStatus,
	"client_status":  fieldClientStatus,
	"client status":  fieldClientStatus,
	"clientstatus":   fieldClientStatus,
	"hook":           fieldHook,
	"copy":           fieldCopy,
	"caption":        fieldCopy,
	"content":        fieldCopy,
	"text":           fieldCopy,
	"kpi":            fieldKPI,
	"image prompt 1": fieldImagePrompt1,
	"imageprompt1":   fieldImagePrompt1,
	"prompt1":        fieldImagePrompt1,
	"prompt 1":       fieldImagePrompt1,
	"image prompt 2": fieldImagePrompt2,
	"imageprompt2":   fieldImagePrompt2,
	"prompt2":        fieldImagePrompt2,
	"prompt 2":       fieldImagePrompt2,
	"comments":       fieldComments,
	"comment":        fieldComments,
	"notes":          fieldComments,
	"note":           fieldComments,
}

// Parse converts raw uploaded text into calendar records. The first logical
// line supplies headers. Rows missing a date or hook are skipped, not errored;
// the report carries submitted, accepted, corrected and skipped counts.
func Parse(text string) ([]Record, Report, error) {
	lines := SplitLogicalLines(text)
	if len(lines) == 0 {
		return nil, Report{}, ErrEmptyInput
	}

	headers := make([]string, 0)
	for _, raw := range parseFields(lines[0]) {
		headers = append(headers, mapHeader(raw))
	}

	records := make([]Record, 0, len(lines)-1)
	report := Report{Submitted: len(lines) - 1}
	for _, line := range lines[1:] {
		fields := parseFields(line)
		record, corrected := buildRecord(headers, fields)
		if record.Date == "" || record.Hook == "" {
			report.Skipped++
			continue
		}
		if corrected {
			report.Corrected++
		}
		records = append(records, record)
	}
	report.Accepted = len(records)
	return records, report, nil
}

// SplitLogicalLines splits raw text into logical lines. A newline terminates a
// line only when the running quote parity is even, so quoted fields may carry
// embedded newlines. Blank lines are dropped.
func SplitLogicalLines(text string) []string {
	var lines []string
	var current strings.Builder
	inQuotes := false
	for _, r := range text {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == '\n' && !inQuotes:
			if line := current.String(); strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
			current.Reset()
		case r == '\r' && !inQuotes:
			// swallowed; \r\n and bare \r both end up handled by the \n case
		default:
			current.WriteRune(r)
		}
	}
	if line := current.String(); strings.TrimSpace(line) != "" {
		lines = append(lines, line)
	}
	return lines
}

// parseFields tokenizes one logical line. A comma splits fields only outside a
// quoted span; a doubled quote inside a quoted span is one literal quote.
// Fields are trimmed after unquoting.
func parseFields(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}

func mapHeader(raw string) string {
	folded := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := headerAliases[folded]; ok {
		return canonical
	}
	return strings.ReplaceAll(folded, " ", "_")
}

func buildRecord(headers []string, fields []string) (Record, bool) {
	record := Record{IsNew: true, Comments: []string{}, Platform: []string{}}
	corrected := false
	for i, header := range headers {
		value := ""
		if i < len(fields) {
			value = fields[i]
		}
		switch header {
		case fieldDate:
			record.Date = value
		case fieldDay:
			record.Day = value
		case fieldPlatform:
			record.Platform = splitPlatforms(value)
		case fieldType:
			record.Type = value
		case fieldTeamStatus:
			status, c := workflow.NormalizeTeamStatus(value)
			record.TeamStatus = status
			corrected = corrected || c
		case fieldClientStatus:
			status, c := workflow.NormalizeClientStatus(value)
			record.ClientStatus = status
			corrected = corrected || c
		case fieldHook:
			record.Hook = value
		case fieldCopy:
			record.Copy = value
		case fieldKPI:
			record.KPI = value
		case fieldImagePrompt1:
			record.ImagePrompt1 = value
		case fieldImagePrompt2:
			record.ImagePrompt2 = value
		case fieldComments:
			if value != "" {
				record.Comments = []string{value}
			}
		default:
			if record.Extra == nil {
				record.Extra = make(map[string]string)
			}
			record.Extra[header] = value
		}
	}
	if record.TeamStatus == "" {
		record.TeamStatus = workflow.TeamNotStarted
	}
	if record.ClientStatus == "" {
		record.ClientStatus = workflow.ClientNotSubmitted
	}
	return record, corrected
}

func splitPlatforms(raw string) []string {
	parts := strings.Split(raw, "|")
	platforms := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			platforms = append(platforms, trimmed)
		}
	}
	return platforms
}
