package csvio

import "strings"

var exportColumns = []string{
	"Date", "Day", "Platform", "Type", "Team Status", "Client Status",
	"Hook", "Copy", "KPI", "Image Prompt 1", "Image Prompt 2", "Comments",
}

// Write renders records in the fixed export column order. Every field is
// quote-wrapped with internal quotes doubled; platforms join with "|" and
// comments with " | ".
func Write(records []Record) string {
	var sb strings.Builder
	writeRow(&sb, exportColumns)
	for _, record := range records {
		writeRow(&sb, []string{
			record.Date,
			record.Day,
			strings.Join(record.Platform, "|"),
			record.Type,
			string(record.TeamStatus),
			string(record.ClientStatus),
			record.Hook,
			record.Copy,
			record.KPI,
			record.ImagePrompt1,
			record.ImagePrompt2,
			strings.Join(record.Comments, " | "),
		})
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')
}
