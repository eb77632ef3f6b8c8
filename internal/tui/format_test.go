package tui

import (
	"strings"
	"testing"

	"github.com/ebelokrylov/ytracker-tui/internal/timer"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45, "45s"},
		{90, "1m 30s"},
		{3600, "1h 00m"},
		{5400, "1h 30m"},
		{9000, "2h 30m"},
	}
	for _, tc := range cases {
		if got := formatSeconds(tc.seconds); got != tc.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0:00:00"},
		{61, "0:01:01"},
		{3725, "1:02:05"},
		{36000, "10:00:00"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.seconds); got != tc.want {
			t.Errorf("formatClock(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatTimerStatus(t *testing.T) {
	if got := formatTimerStatus(timer.Snapshot{}); got != "" {
		t.Errorf("idle timer status = %q, want empty", got)
	}
	got := formatTimerStatus(timer.Snapshot{Active: true, IssueKey: "TEST-1", Elapsed: 125})
	if !strings.Contains(got, "TEST-1") || !strings.Contains(got, "0:02:05") {
		t.Errorf("timer status = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"too long text", 8, "too lon…"},
		{"x", 0, ""},
		{"long", 1, "…"},
		{"юникод текст", 7, "юникод…"},
	}
	for _, tc := range cases {
		if got := truncate(tc.text, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
		}
	}
}

func TestFormatCountStatus(t *testing.T) {
	if got := formatCountStatus(50, 120, true); got != "50 of 120 issues" {
		t.Errorf("with total = %q", got)
	}
	if got := formatCountStatus(50, -1, true); got != "50+ issues" {
		t.Errorf("unknown total with more = %q", got)
	}
	if got := formatCountStatus(50, -1, false); got != "50 issues" {
		t.Errorf("unknown total exhausted = %q", got)
	}
}

func TestParseDurationInput(t *testing.T) {
	cases := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1h30m", 5400, false},
		{"45m", 2700, false},
		{"2h", 7200, false},
		{"90", 5400, false}, // bare number is minutes
		{"  30M ", 1800, false},
		{"", 0, true},
		{"soon", 0, true},
		{"0m", 0, true},
		{"-5m", 0, true},
	}
	for _, tc := range cases {
		got, err := parseDurationInput(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseDurationInput(%q) error = %v, wantErr %t", tc.input, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDurationInput(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestFormatDurationInput(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, ""},
		{30, "1m"},
		{2700, "45m"},
		{5400, "1h30m"},
		{7200, "2h0m"},
	}
	for _, tc := range cases {
		if got := formatDurationInput(tc.seconds); got != tc.want {
			t.Errorf("formatDurationInput(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestIssueTableCells(t *testing.T) {
	issue := trackerapi.Issue{
		Key:            "TEST-1",
		Summary:        "do the thing",
		Status:         trackerapi.EntityRef{Key: "open", Display: "Open"},
		Priority:       trackerapi.EntityRef{Key: "normal", Display: "Normal"},
		Assignee:       &trackerapi.EntityRef{Key: "alice", Display: "Alice"},
		TrackedSeconds: 5400,
	}
	cells := issueTableCells(issue)
	want := []string{"TEST-1", "do the thing", "Open", "Normal", "Alice", "1h 30m"}
	if len(cells) != len(want) {
		t.Fatalf("cells = %v", cells)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, cells[i], want[i])
		}
	}

	bare := issueTableCells(trackerapi.Issue{Key: "TEST-2", Summary: "other"})
	if bare[4] != "" || bare[5] != "" {
		t.Errorf("unassigned untracked cells = %v", bare)
	}
}

func TestRenderChecklistCounts(t *testing.T) {
	tags := NewThemeTags(darkTheme)
	out := renderChecklist([]trackerapi.ChecklistItem{
		{ID: "1", Text: "first", Checked: true},
		{ID: "2", Text: "second"},
	}, tags)
	if !strings.Contains(out, "1 of 2 done") {
		t.Errorf("output missing progress line: %q", out)
	}
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("output missing items: %q", out)
	}
}

func TestRenderCommentsEmpty(t *testing.T) {
	tags := NewThemeTags(darkTheme)
	out := renderComments(nil, tags)
	if !strings.Contains(out, "No comments") {
		t.Errorf("empty comments output = %q", out)
	}
}

func TestRenderWorklogsTotal(t *testing.T) {
	tags := NewThemeTags(darkTheme)
	out := renderWorklogs([]trackerapi.Worklog{
		{ID: "1", Author: "Alice", DurationSeconds: 3600, Date: "2025-06-01"},
		{ID: "2", Author: "Bob", DurationSeconds: 1800, Date: "2025-06-02"},
	}, tags)
	if !strings.Contains(out, "1h 30m") {
		t.Errorf("output missing total: %q", out)
	}
}
