package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ebelokrylov/ytracker-tui/internal/timer"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

// formatSeconds renders a duration in seconds as a compact "2h 05m" style
// string.
func formatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %02ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// formatClock renders elapsed seconds as h:mm:ss for the status bar timer.
func formatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// formatTimerStatus renders the status bar fragment for the timer.
func formatTimerStatus(snapshot timer.Snapshot) string {
	if !snapshot.Active {
		return ""
	}
	return fmt.Sprintf("⏱ %s %s", snapshot.IssueKey, formatClock(snapshot.Elapsed))
}

// truncate shortens text to at most width runes, appending an ellipsis when
// trimmed.
func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// issueTableCells returns the rendered column values for one issue row.
func issueTableCells(issue trackerapi.Issue) []string {
	assignee := ""
	if issue.Assignee != nil {
		assignee = issue.Assignee.Display
	}
	tracked := ""
	if issue.TrackedSeconds > 0 {
		tracked = formatSeconds(issue.TrackedSeconds)
	}
	return []string{
		issue.Key,
		truncate(issue.Summary, 60),
		issue.Status.Display,
		issue.Priority.Display,
		assignee,
		tracked,
	}
}

// formatCountStatus renders the "N of M issues" fragment, handling an
// unknown total.
func formatCountStatus(loaded int, total int64, hasMore bool) string {
	switch {
	case total >= 0:
		return fmt.Sprintf("%d of %d issues", loaded, total)
	case hasMore:
		return fmt.Sprintf("%d+ issues", loaded)
	default:
		return fmt.Sprintf("%d issues", loaded)
	}
}

// formatCommentTime renders a comment timestamp, or empty for the zero
// time.
func formatCommentTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// parseDurationInput accepts human duration input for worklogs: "1h30m",
// "45m", "2h", or a bare number of minutes.
func parseDurationInput(input string) (int64, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if !strings.ContainsAny(input, "hms") {
		input += "m"
	}
	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", input)
	}
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return seconds, nil
}
