package csvio

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"contentcal/api/internal/workflow"
)

func TestParseCoercesBogusStatuses(t *testing.T) {
	input := "Date,Day,Hook,Caption,Team Status,Client Status\n" +
		"Oct 24,Friday,\"Hello, world\",Some copy,Bogus,Still Bogus\n"
	records, report, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Date != "Oct 24" || got.Day != "Friday" || got.Hook != "Hello, world" || got.Copy != "Some copy" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.TeamStatus != workflow.TeamNotStarted {
		t.Fatalf("team status = %q, want not-started", got.TeamStatus)
	}
	if got.ClientStatus != workflow.ClientNotSubmitted {
		t.Fatalf("client status = %q, want not-submitted", got.ClientStatus)
	}
	if !got.IsNew {
		t.Fatal("ingested rows must be flagged new")
	}
	want := Report{Submitted: 1, Accepted: 1, Corrected: 1, Skipped: 0}
	if report != want {
		t.Fatalf("report = %+v, want %+v", report, want)
	}
}

func TestParseSkipsRowsMissingRequiredFields(t *testing.T) {
	input := "Date,Day,Hook\nOct 24,Friday,\n"
	records, report, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected 0 records, got %d", len(records))
	}
	if report.Submitted != 1 || report.Skipped != 1 || report.Accepted != 0 {
		t.Fatalf("report = %+v", report)
	}

	input = "Date,Hook\n,Missing date\nOct 25,Kept\n"
	records, report, err = Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 || records[0].Hook != "Kept" {
		t.Fatalf("expected only the complete row, got %+v", records)
	}
	if report.Skipped != 1 || report.Accepted != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "\n\n", "  \n \r\n"} {
		if _, _, err := Parse(input); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Parse(%q) err = %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestHeaderAliasGroupsProduceIdenticalRecords(t *testing.T) {
	var baseline *Record
	for _, header := range []string{"Copy", "caption", "CONTENT", "Text"} {
		input := "Date,Hook," + header + "\nOct 24,The hook,The body\n"
		records, _, err := Parse(input)
		if err != nil || len(records) != 1 {
			t.Fatalf("Parse with header %q: %v, %d records", header, err, len(records))
		}
		if baseline == nil {
			baseline = &records[0]
			continue
		}
		if !reflect.DeepEqual(*baseline, records[0]) {
			t.Fatalf("header %q produced %+v, want %+v", header, records[0], *baseline)
		}
	}
	if baseline.Copy != "The body" {
		t.Fatalf("copy = %q", baseline.Copy)
	}
}

func TestPromptHeaderAliases(t *testing.T) {
	for _, header := range []string{"Image Prompt 1", "imageprompt1", "Prompt1", "prompt 1"} {
		input := "Date,Hook," + header + "\nOct 24,h,A scenic shot\n"
		records, _, err := Parse(input)
		if err != nil || len(records) != 1 {
			t.Fatalf("Parse with header %q: %v", header, err)
		}
		if records[0].ImagePrompt1 != "A scenic shot" {
			t.Fatalf("header %q: prompt = %q", header, records[0].ImagePrompt1)
		}
	}
}

func TestQuotedFieldKeepsEmbeddedNewline(t *testing.T) {
	input := "Date,Hook,Copy\nOct 24,h,\"line one\nline two\"\n"
	lines := SplitLogicalLines(input)
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d: %q", len(lines), lines)
	}
	records, _, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if records[0].Copy != "line one\nline two" {
		t.Fatalf("copy = %q", records[0].Copy)
	}
}

func TestDoubledQuoteIsLiteral(t *testing.T) {
	fields := parseFields(`Oct 24,"say ""hi"" twice",end`)
	want := []string{"Oct 24", `say "hi" twice`, "end"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("parseFields = %q, want %q", fields, want)
	}
}

func TestUnknownHeadersRetainedInExtra(t *testing.T) {
	input := "Date,Hook,Budget Owner\nOct 24,h,Alex\n"
	records, _, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := records[0].Extra["budget_owner"]; got != "Alex" {
		t.Fatalf("extra = %+v", records[0].Extra)
	}
}

func TestPlatformSplitting(t *testing.T) {
	input := "Date,Hook,Platforms\nOct 24,h,\"IG | FB ||Stories\"\n"
	records, _, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"IG", "FB", "Stories"}
	if !reflect.DeepEqual(records[0].Platform, want) {
		t.Fatalf("platform = %q, want %q", records[0].Platform, want)
	}
}

func TestCommentBecomesSingleElement(t *testing.T) {
	input := "Date,Hook,Notes\nOct 24,h,looks good\nOct 25,h2,\n"
	records, _, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(records[0].Comments, []string{"looks good"}) {
		t.Fatalf("comments = %q", records[0].Comments)
	}
	if len(records[1].Comments) != 0 {
		t.Fatalf("empty comment cell must yield empty sequence, got %q", records[1].Comments)
	}
}

func TestShortRowsPadWithEmptyFields(t *testing.T) {
	input := "Date,Hook,Copy,KPI\nOct 24,h\n"
	records, _, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if records[0].Copy != "" || records[0].KPI != "" {
		t.Fatalf("missing trailing cells must be empty, got %+v", records[0])
	}
}

func TestWriteRoundTrip(t *testing.T) {
	input := "Date,Day,Platform,Type,Team Status,Client Status,Hook,Copy,KPI,Image Prompt 1,Image Prompt 2,Comments\n" +
		"Oct 24,Friday,IG|FB,reel,in-progress,under-review,\"Hook, with comma\",\"Multi\nline\",reach,\"a \"\"quoted\"\" prompt\",,note one\n" +
		"Oct 25,Saturday,Stories,carousel,ready-post,approved,Second hook,Body,,,,\n"
	records, _, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reparsed, report, err := Parse(Write(records))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if report.Corrected != 0 || report.Skipped != 0 {
		t.Fatalf("round trip must not correct or skip: %+v", report)
	}
	if !reflect.DeepEqual(records, reparsed) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", reparsed, records)
	}
}

func TestWriteQuotesEveryField(t *testing.T) {
	out := Write([]Record{{
		Date: "Oct 24", Day: "Friday", Hook: "h",
		TeamStatus: workflow.TeamNotStarted, ClientStatus: workflow.ClientNotSubmitted,
		Platform: []string{"IG", "FB"}, Comments: []string{"first", "second"},
	}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != `"Date","Day","Platform","Type","Team Status","Client Status","Hook","Copy","KPI","Image Prompt 1","Image Prompt 2","Comments"` {
		t.Fatalf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"IG|FB"`) {
		t.Fatalf("platforms must join with |: %s", lines[1])
	}
	if !strings.Contains(lines[1], `"first | second"`) {
		t.Fatalf("comments must join with ' | ': %s", lines[1])
	}
	for _, field := range strings.Split(lines[1], ",") {
		if !strings.HasPrefix(field, `"`) || !strings.HasSuffix(field, `"`) {
			t.Fatalf("field %q not quote-wrapped", field)
		}
	}
}
