package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

var (
	markdownOnce     sync.Once
	markdownRenderer *glamour.TermRenderer
)

// renderMarkdown renders issue markdown for the terminal, falling back to
// the raw text when the renderer is unavailable.
func renderMarkdown(text string) string {
	markdownOnce.Do(func() {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(0),
		)
		if err != nil {
			logger.Warning("tui.details: markdown renderer unavailable error=%v", err)
			return
		}
		markdownRenderer = renderer
	})
	if markdownRenderer == nil {
		return text
	}
	rendered, err := markdownRenderer.Render(text)
	if err != nil {
		return text
	}
	return escapeTags(rendered)
}

// escapeTags escapes square brackets so rendered markdown is not
// interpreted as color tags.
func escapeTags(text string) string {
	return strings.ReplaceAll(text, "[", "[​")
}

// renderIssueDetails renders the metadata header and description of an
// issue.
func renderIssueDetails(issue trackerapi.Issue, tags ThemeTags) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s%s[-]  %s\n\n", tags.Accent, issue.Key, issue.Summary)
	fmt.Fprintf(&b, "%sStatus:[-]   %s\n", tags.Secondary, issue.Status.Display)
	fmt.Fprintf(&b, "%sPriority:[-] %s\n", tags.Secondary, issue.Priority.Display)
	if issue.Type != nil {
		fmt.Fprintf(&b, "%sType:[-]     %s\n", tags.Secondary, issue.Type.Display)
	}
	if issue.Assignee != nil {
		fmt.Fprintf(&b, "%sAssignee:[-] %s\n", tags.Secondary, issue.Assignee.Display)
	}
	if len(issue.Tags) > 0 {
		fmt.Fprintf(&b, "%sTags:[-]     %s\n", tags.Secondary, strings.Join(issue.Tags, ", "))
	}
	if issue.TrackedSeconds > 0 {
		fmt.Fprintf(&b, "%sSpent:[-]    %s\n", tags.Secondary, formatSeconds(issue.TrackedSeconds))
	}

	if strings.TrimSpace(issue.Description) != "" {
		b.WriteString("\n")
		b.WriteString(renderMarkdown(issue.Description))
	}
	return b.String()
}

func renderComments(comments []trackerapi.Comment, tags ThemeTags) string {
	if len(comments) == 0 {
		return tags.Secondary + "No comments[-]"
	}
	var b strings.Builder
	for i, comment := range comments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s%s[-] %s%s[-]\n", tags.Accent, comment.Author,
			tags.Secondary, formatCommentTime(comment.CreatedAt))
		b.WriteString(renderMarkdown(comment.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func renderAttachments(attachments []trackerapi.Attachment, tags ThemeTags) string {
	if len(attachments) == 0 {
		return tags.Secondary + "No attachments[-]"
	}
	var b strings.Builder
	for _, attachment := range attachments {
		fmt.Fprintf(&b, "%s%s[-]", tags.Accent, attachment.Name)
		if attachment.MimeType != "" {
			fmt.Fprintf(&b, " %s(%s)[-]", tags.Secondary, attachment.MimeType)
		}
		b.WriteString("\n")
		if attachment.URL != "" {
			fmt.Fprintf(&b, "  %s%s[-]\n", tags.Secondary, attachment.URL)
		}
	}
	return b.String()
}

func renderTransitions(transitions []trackerapi.Transition, tags ThemeTags) string {
	if len(transitions) == 0 {
		return tags.Secondary + "No transitions available[-]"
	}
	var b strings.Builder
	b.WriteString(tags.Secondary + "Press t to execute a transition[-]\n\n")
	for _, transition := range transitions {
		fmt.Fprintf(&b, "%s%s[-]", tags.Accent, transition.Name)
		if transition.ToStatus != nil {
			fmt.Fprintf(&b, " → %s", transition.ToStatus.Display)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderWorklogs(worklogs []trackerapi.Worklog, tags ThemeTags) string {
	if len(worklogs) == 0 {
		return tags.Secondary + "No worklogs[-]"
	}
	var b strings.Builder
	var total int64
	for _, worklog := range worklogs {
		total += worklog.DurationSeconds
		fmt.Fprintf(&b, "%s%s[-]  %s  %s%s[-]", tags.Accent, worklog.Author,
			formatSeconds(worklog.DurationSeconds), tags.Secondary, worklog.Date)
		if worklog.Comment != "" {
			fmt.Fprintf(&b, "\n  %s", worklog.Comment)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%sTotal:[-] %s\n", tags.Secondary, formatSeconds(total))
	return b.String()
}

func renderChecklist(items []trackerapi.ChecklistItem, tags ThemeTags) string {
	if len(items) == 0 {
		return tags.Secondary + "No checklist (press C to manage)[-]"
	}
	var b strings.Builder
	done := 0
	for _, item := range items {
		mark := "[ ]"
		if item.Checked {
			mark = "[x]"
			done++
		}
		fmt.Fprintf(&b, "%s %s", escapeTags(mark), item.Text)
		if item.Assignee != "" {
			fmt.Fprintf(&b, " %s(%s)[-]", tags.Secondary, item.Assignee)
		}
		if item.Deadline != "" {
			fmt.Fprintf(&b, " %sdue %s[-]", tags.Warning, item.Deadline)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s%d of %d done[-]\n", tags.Secondary, done, len(items))
	return b.String()
}
