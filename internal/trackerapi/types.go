package trackerapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityRef is a stable key plus human-readable display value for dynamic
// issue fields (status, priority, type, assignee) and directory entries.
type EntityRef struct {
	Key     string
	Display string
}

// Issue represents a Tracker issue.
type Issue struct {
	Key            string
	Summary        string
	Description    string
	Status         EntityRef
	Priority       EntityRef
	Type           *EntityRef
	Assignee       *EntityRef
	Tags           []string
	TrackedSeconds int64
}

// IssuePage is one page of a scroll-based issue search.
type IssuePage struct {
	Issues     []Issue
	NextCursor string
	TotalCount int64 // -1 when the backend did not report a total
	HasMore    bool
}

// Comment represents a comment on an issue.
type Comment struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
}

// Attachment represents an attachment's metadata.
type Attachment struct {
	ID       string
	Name     string
	URL      string
	MimeType string
}

// Transition represents an available workflow transition.
type Transition struct {
	ID       string
	Name     string
	ToStatus *EntityRef
}

// Worklog represents one logged work entry on an issue.
type Worklog struct {
	ID              string
	Date            string
	DurationSeconds int64
	Comment         string
	Author          string
}

// ChecklistItem represents one item of an issue's checklist.
type ChecklistItem struct {
	ID       string
	Text     string
	Checked  bool
	Assignee string
	Deadline string
}

// ChecklistItemInput carries fields for creating or editing a checklist
// item. Nil pointer fields are omitted from the request.
type ChecklistItemInput struct {
	Text     string  `json:"text"`
	Checked  *bool   `json:"checked,omitempty"`
	Assignee *string `json:"assignee,omitempty"`
	Deadline *string `json:"deadline,omitempty"`
}

// UserProfile represents a Tracker user directory entry.
type UserProfile struct {
	Display string
	Login   string
	Email   string
}

// entityRefWire decodes a dynamic field reference, which the API renders
// either as a plain string or as an object carrying id/key and
// display/name.
type entityRefWire struct {
	ref EntityRef
}

func (w *entityRefWire) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		w.ref = EntityRef{Key: text, Display: text}
		return nil
	}

	var payload struct {
		ID      json.RawMessage `json:"id"`
		Key     string          `json:"key"`
		Display json.RawMessage `json:"display"`
		Name    json.RawMessage `json:"name"`
		Login   string          `json:"login"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode entity reference: %w", err)
	}

	key := payload.Key
	if key == "" {
		key = coerceScalar(payload.ID)
	}
	if key == "" {
		key = payload.Login
	}
	display := coerceScalar(payload.Display)
	if display == "" {
		display = coerceScalar(payload.Name)
	}
	if display == "" {
		display = payload.Login
	}
	if display == "" {
		display = key
	}

	w.ref = EntityRef{Key: key, Display: display}
	return nil
}

// coerceScalar renders a JSON scalar (string or number) as a string. Other
// shapes yield "".
func coerceScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	// Localized display values arrive as {"en": ..., "ru": ...}.
	var localized map[string]string
	if err := json.Unmarshal(raw, &localized); err == nil {
		if v, ok := localized["en"]; ok {
			return v
		}
		for _, v := range localized {
			return v
		}
	}
	return ""
}

// issueWire is the raw issue payload returned by the search and detail
// endpoints.
type issueWire struct {
	Key         string          `json:"key"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Status      *entityRefWire  `json:"status"`
	Priority    *entityRefWire  `json:"priority"`
	Type        *entityRefWire  `json:"type"`
	Assignee    *entityRefWire  `json:"assignee"`
	Tags        []string        `json:"tags"`
	Spent       json.RawMessage `json:"spent"`
	TimeSpent   json.RawMessage `json:"timeSpent"`
}

func (w issueWire) toIssue(workdayHours int64) Issue {
	issue := Issue{
		Key:         w.Key,
		Summary:     w.Summary,
		Description: w.Description,
		Tags:        w.Tags,
	}
	if w.Status != nil {
		issue.Status = w.Status.ref
	}
	if w.Priority != nil {
		issue.Priority = w.Priority.ref
	}
	if w.Type != nil {
		ref := w.Type.ref
		issue.Type = &ref
	}
	if w.Assignee != nil {
		ref := w.Assignee.ref
		issue.Assignee = &ref
	}

	spent := w.Spent
	if len(spent) == 0 {
		spent = w.TimeSpent
	}
	issue.TrackedSeconds = parseDurationValue(spent, workdayHours)
	return issue
}

// parseDurationValue interprets a tracked-time value that may arrive as a
// number of seconds or as an ISO 8601 duration string.
func parseDurationValue(raw json.RawMessage, workdayHours int64) int64 {
	if len(raw) == 0 {
		return 0
	}
	var seconds int64
	if err := json.Unmarshal(raw, &seconds); err == nil {
		return seconds
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, ok := parseISODuration(text, workdayHours); ok {
			return parsed
		}
	}
	return 0
}

// parseISODuration converts an ISO 8601 duration (the Tracker dialect,
// where a day means one workday and a week five) into seconds.
func parseISODuration(value string, workdayHours int64) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value[0] != 'P' {
		return 0, false
	}
	if workdayHours <= 0 {
		workdayHours = 8
	}

	var total int64
	var number strings.Builder
	inTime := false
	for _, r := range value[1:] {
		switch {
		case r >= '0' && r <= '9':
			number.WriteRune(r)
		case r == 'T' || r == 't':
			inTime = true
		default:
			n, err := strconv.ParseInt(number.String(), 10, 64)
			if err != nil {
				return 0, false
			}
			number.Reset()
			switch r {
			case 'W', 'w':
				total += n * 5 * workdayHours * 3600
			case 'D', 'd':
				total += n * workdayHours * 3600
			case 'H', 'h':
				total += n * 3600
			case 'M', 'm':
				if inTime {
					total += n * 60
				} else {
					// Months do not occur in Tracker durations.
					return 0, false
				}
			case 'S', 's':
				total += n
			default:
				return 0, false
			}
		}
	}
	if number.Len() != 0 {
		return 0, false
	}
	return total, true
}

// formatISODuration renders seconds as the ISO 8601 duration the worklog
// endpoint expects.
func formatISODuration(seconds int64) string {
	if seconds <= 0 {
		return "PT0S"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var b strings.Builder
	b.WriteString("PT")
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if secs > 0 || (hours == 0 && minutes == 0) {
		fmt.Fprintf(&b, "%dS", secs)
	}
	return b.String()
}

// parseTime safely parses an RFC3339 time string, returning zero time on
// error.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
