package export

import (
	"strings"
	"testing"
	"time"

	"contentcal/api/internal/store"
)

func sampleUser() store.User {
	return store.User{
		ID:          "user_1",
		CompanyName: "Acme Media",
		Industry:    "Retail",
		BrandColor:  "#ff6600",
	}
}

func sampleItems() []store.CalendarItem {
	return []store.CalendarItem{
		{
			Date: "Oct 24", Day: "Friday", Hook: "Launch teaser", Type: "Reel",
			TeamStatus: "ready-post", ClientStatus: "approved",
			UpdatedAt: time.Date(2026, 10, 24, 12, 0, 0, 0, time.UTC),
		},
		{
			Date: "Oct 25", Day: "Saturday", Hook: "Behind the scenes", Type: "Story",
			TeamStatus: "in-progress", ClientStatus: "not-submitted",
			UpdatedAt: time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuildReportData(t *testing.T) {
	now := time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC)
	data := BuildReportData(sampleUser(), sampleItems(), now)

	if data.TotalItems != 2 {
		t.Fatalf("TotalItems = %d, want 2", data.TotalItems)
	}
	if data.CompletedItems != 1 {
		t.Fatalf("CompletedItems = %d, want 1", data.CompletedItems)
	}
	if data.CompletionPct != 50 {
		t.Fatalf("CompletionPct = %d, want 50", data.CompletionPct)
	}
	if data.Client.BrandColor != "#ff6600" {
		t.Fatalf("BrandColor = %q, want client's color", data.Client.BrandColor)
	}
	if data.LastActivity != "Oct 25, 2026" {
		t.Fatalf("LastActivity = %q, want latest item update", data.LastActivity)
	}

	// Fixed rows for every status value, zero or not.
	if len(data.TeamCounts) != 4 || len(data.ClientCounts) != 4 {
		t.Fatalf("expected 4 rows per axis, got %d/%d", len(data.TeamCounts), len(data.ClientCounts))
	}
	teamByLabel := map[string]int{}
	for _, line := range data.TeamCounts {
		teamByLabel[line.Label] = line.Count
	}
	if teamByLabel["ready-post"] != 1 || teamByLabel["in-progress"] != 1 || teamByLabel["not-started"] != 0 {
		t.Fatalf("unexpected team counts: %v", teamByLabel)
	}
}

func TestBuildReportDataEmptyCalendar(t *testing.T) {
	user := sampleUser()
	user.CreatedAt = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	data := BuildReportData(user, nil, time.Now())
	if data.TotalItems != 0 || data.CompletedItems != 0 || data.CompletionPct != 0 {
		t.Fatalf("empty calendar should aggregate to zero, got %+v", data)
	}
	if len(data.TeamCounts) != 4 {
		t.Fatalf("empty calendar should still list every status, got %d rows", len(data.TeamCounts))
	}
	if data.LastActivity != "Sep 1, 2026" {
		t.Fatalf("LastActivity = %q, want account creation fallback", data.LastActivity)
	}
}

func TestBuildReportDataDefaultBrandColor(t *testing.T) {
	user := sampleUser()
	user.BrandColor = ""
	data := BuildReportData(user, nil, time.Now())
	if data.Client.BrandColor != defaultBrandColor {
		t.Fatalf("BrandColor = %q, want default", data.Client.BrandColor)
	}
}

func TestRenderReportHTML(t *testing.T) {
	now := time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC)
	data := BuildReportData(sampleUser(), sampleItems(), now)

	html, err := RenderReportHTML(data)
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}

	for _, want := range []string{
		"Acme Media Content Status Report",
		"Retail",
		"#ff6600",
		"Launch teaser",
		"ready-post",
		"50%",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Media Status Report", "Acme-Media-Status-Report"},
		{"Report v1.2", "Report-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "report"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},       // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},           // + signs are encoded
		{"special<>", "special%3C%3E"},         // Special chars encoded
		{"normal-text.txt", "normal-text.txt"}, // Unreserved chars pass through
		{"", ""},                               // Empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
