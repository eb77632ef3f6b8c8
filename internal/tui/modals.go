package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

// centered wraps a primitive in a flex that centers it at a fixed size.
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

// SearchModal prompts for an issue search query.
type SearchModal struct {
	app   *App
	input *tview.InputField
}

// NewSearchModal builds the search prompt.
func NewSearchModal(a *App) *SearchModal {
	m := &SearchModal{app: a}
	m.input = tview.NewInputField().
		SetLabel("Query: ").
		SetFieldWidth(0)
	m.input.SetBorder(true).SetTitle(" Search Issues ")
	return m
}

// Show opens the modal with the current query prefilled.
func (m *SearchModal) Show(current string) {
	m.input.SetText(current)
	m.app.pages.AddPage("search", centered(m.input, 60, 3), true, true)
	m.app.app.SetFocus(m.input)
}

// HandleKey processes keys while the modal is open.
func (m *SearchModal) HandleKey(event *tcell.EventKey, page string) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		return nil
	case tcell.KeyEnter:
		query := m.input.GetText()
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		m.app.setSearch(query, nil)
		return nil
	}
	return event
}

// CommentModal collects a new comment for the selected issue.
type CommentModal struct {
	app  *App
	text *tview.TextArea
}

// NewCommentModal builds the comment editor.
func NewCommentModal(a *App) *CommentModal {
	m := &CommentModal{app: a}
	m.text = tview.NewTextArea()
	m.text.SetBorder(true).SetTitle(" Add Comment (Ctrl+S to send, Esc to cancel) ")
	return m
}

// Show opens the editor for the currently selected issue.
func (m *CommentModal) Show() {
	if _, ok := m.app.selectedIssue(); !ok {
		m.app.updateStatusBarWithError(fmt.Errorf("no issue selected"))
		return
	}
	m.text.SetText("", false)
	m.app.pages.AddPage("comment", centered(m.text, 70, 12), true, true)
	m.app.app.SetFocus(m.text)
}

// HandleKey processes keys while the modal is open.
func (m *CommentModal) HandleKey(event *tcell.EventKey, page string) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		return nil
	case tcell.KeyCtrlS:
		text := strings.TrimSpace(m.text.GetText())
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		if text == "" {
			return nil
		}
		issue, ok := m.app.selectedIssue()
		if !ok {
			return nil
		}
		go m.submit(issue.Key, text)
		return nil
	}
	return event
}

func (m *CommentModal) submit(issueKey, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.app.config.Timeout)
	defer cancel()

	if err := m.app.store.AddComment(ctx, issueKey, text); err != nil {
		logger.ErrorWithErr(err, "tui.modals: add comment failed issue=%s", issueKey)
		m.app.QueueUpdateDraw(func() {
			m.app.updateStatusBarWithError(err)
		})
		return
	}
	logger.Info("tui.modals: comment added issue=%s", issueKey)
	m.app.QueueUpdateDraw(func() {
		if m.app.activeTabIs(TabComments) {
			m.app.loadDetailTab()
		}
		m.app.updateStatusBar()
	})
}

// WorklogModal records a work entry, typically prefilled from a stopped
// timer.
type WorklogModal struct {
	app      *App
	form     *tview.Form
	issueKey string
}

// NewWorklogModal builds the worklog form.
func NewWorklogModal(a *App) *WorklogModal {
	m := &WorklogModal{app: a}
	return m
}

// Show opens the form for an issue with the elapsed seconds prefilled.
func (m *WorklogModal) Show(issueKey string, elapsedSeconds int64) {
	m.issueKey = issueKey

	m.form = tview.NewForm().
		AddInputField("Duration", formatDurationInput(elapsedSeconds), 20, nil, nil).
		AddInputField("Comment", "", 40, nil, nil)
	m.form.AddButton("Log", m.submit)
	m.form.AddButton("Cancel", func() {
		m.app.pages.RemovePage("worklog")
		m.app.updateFocus()
	})
	m.form.SetBorder(true).SetTitle(fmt.Sprintf(" Log work on %s ", issueKey))

	m.app.pages.AddPage("worklog", centered(m.form, 60, 11), true, true)
	m.app.app.SetFocus(m.form)
}

// formatDurationInput renders seconds in the editable "1h30m" form.
func formatDurationInput(seconds int64) string {
	if seconds <= 0 {
		return ""
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours == 0 && minutes == 0 {
		minutes = 1 // round sub-minute entries up
	}
	if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// HandleKey processes keys while the modal is open.
func (m *WorklogModal) HandleKey(event *tcell.EventKey, page string) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		return nil
	}
	return event
}

func (m *WorklogModal) submit() {
	durationItem := m.form.GetFormItemByLabel("Duration").(*tview.InputField)
	commentItem := m.form.GetFormItemByLabel("Comment").(*tview.InputField)
	seconds, err := parseDurationInput(durationItem.GetText())
	if err != nil {
		m.app.updateStatusBarWithError(err)
		return
	}
	comment := commentItem.GetText()
	issueKey := m.issueKey

	m.app.pages.RemovePage("worklog")
	m.app.updateFocus()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.config.Timeout)
		defer cancel()

		if err := m.app.store.AddWorklog(ctx, issueKey, seconds, comment); err != nil {
			logger.ErrorWithErr(err, "tui.modals: add worklog failed issue=%s", issueKey)
			m.app.QueueUpdateDraw(func() {
				m.app.updateStatusBarWithError(err)
			})
			return
		}
		logger.Info("tui.modals: worklog added issue=%s seconds=%d", issueKey, seconds)
		m.app.QueueUpdateDraw(func() {
			if m.app.activeTabIs(TabWorklogs) {
				m.app.loadDetailTab()
			}
			m.app.updateStatusBar()
		})
	}()
}

// TransitionModal lists the available workflow transitions for an issue
// and executes the chosen one.
type TransitionModal struct {
	app      *App
	list     *tview.List
	issueKey string
}

// NewTransitionModal builds the transition picker.
func NewTransitionModal(a *App) *TransitionModal {
	m := &TransitionModal{app: a}
	m.list = tview.NewList().ShowSecondaryText(true)
	m.list.SetBorder(true).SetTitle(" Transitions ")
	return m
}

// Show loads the issue's transitions and opens the picker.
func (m *TransitionModal) Show(issueKey string) {
	m.issueKey = issueKey
	m.list.Clear()
	m.list.AddItem("Loading…", "", 0, nil)
	m.app.pages.AddPage("transitions", centered(m.list, 50, 14), true, true)
	m.app.app.SetFocus(m.list)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.config.Timeout)
		defer cancel()

		transitions, err := m.app.store.Transitions(ctx, issueKey, false)
		m.app.QueueUpdateDraw(func() {
			m.list.Clear()
			if err != nil {
				logger.ErrorWithErr(err, "tui.modals: load transitions failed issue=%s", issueKey)
				m.list.AddItem(fmt.Sprintf("Error: %v", err), "", 0, nil)
				return
			}
			if len(transitions) == 0 {
				m.list.AddItem("No transitions available", "", 0, nil)
				return
			}
			for _, transition := range transitions {
				target := ""
				if transition.ToStatus != nil {
					target = "→ " + transition.ToStatus.Display
				}
				id := transition.ID
				m.list.AddItem(transition.Name, target, 0, func() {
					m.execute(id)
				})
			}
		})
	}()
}

// HandleKey processes keys while the modal is open.
func (m *TransitionModal) HandleKey(event *tcell.EventKey, page string) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		return nil
	}
	return event
}

func (m *TransitionModal) execute(transitionID string) {
	issueKey := m.issueKey
	m.app.pages.RemovePage("transitions")
	m.app.updateFocus()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.config.Timeout)
		defer cancel()

		if err := m.app.store.ExecuteTransition(ctx, issueKey, transitionID, "", ""); err != nil {
			logger.ErrorWithErr(err, "tui.modals: transition failed issue=%s transition=%s", issueKey, transitionID)
			m.app.QueueUpdateDraw(func() {
				m.app.updateStatusBarWithError(err)
			})
			return
		}
		logger.Info("tui.modals: transition executed issue=%s transition=%s", issueKey, transitionID)
		// The issue's status changed; refresh the list and transitions.
		go m.app.refreshIssues()
		m.app.QueueUpdateDraw(func() {
			if m.app.activeTabIs(TabTransitions) {
				m.app.loadDetailTab()
			}
		})
	}()
}

// ChecklistModal manages an issue's checklist: toggle, add, and delete
// items.
type ChecklistModal struct {
	app      *App
	list     *tview.List
	issueKey string
	items    []trackerapi.ChecklistItem
	adding   bool
	input    *tview.InputField
	layout   *tview.Flex
}

// NewChecklistModal builds the checklist manager.
func NewChecklistModal(a *App) *ChecklistModal {
	m := &ChecklistModal{app: a}
	m.list = tview.NewList().ShowSecondaryText(false)
	m.input = tview.NewInputField().SetLabel("New item: ").SetFieldWidth(0)
	m.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.list, 0, 1, true)
	m.layout.SetBorder(true).
		SetTitle(" Checklist (Enter: toggle, n: new, d: delete, D: delete all) ")
	return m
}

// Show opens the checklist manager for an issue.
func (m *ChecklistModal) Show(issueKey string) {
	m.issueKey = issueKey
	m.adding = false
	m.app.pages.AddPage("checklist", centered(m.layout, 60, 16), true, true)
	m.app.app.SetFocus(m.list)
	m.reload(false)
}

func (m *ChecklistModal) reload(force bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.config.Timeout)
		defer cancel()

		items, err := m.app.store.Checklist(ctx, m.issueKey, force)
		m.app.QueueUpdateDraw(func() {
			m.list.Clear()
			if err != nil {
				logger.ErrorWithErr(err, "tui.modals: load checklist failed issue=%s", m.issueKey)
				m.list.AddItem(fmt.Sprintf("Error: %v", err), "", 0, nil)
				return
			}
			m.items = items
			if len(items) == 0 {
				m.list.AddItem("No items (press n to add)", "", 0, nil)
				return
			}
			for _, item := range items {
				mark := "[ ]"
				if item.Checked {
					mark = "[x]"
				}
				m.list.AddItem(escapeTags(mark)+" "+item.Text, "", 0, nil)
			}
			if m.app.activeTabIs(TabChecklist) {
				m.app.loadDetailTab()
			}
		})
	}()
}

// HandleKey processes keys while the modal is open.
func (m *ChecklistModal) HandleKey(event *tcell.EventKey, page string) *tcell.EventKey {
	if m.adding {
		switch event.Key() {
		case tcell.KeyEscape:
			m.closeInput()
			return nil
		case tcell.KeyEnter:
			text := strings.TrimSpace(m.input.GetText())
			m.closeInput()
			if text != "" {
				m.mutate(func(ctx context.Context) error {
					return m.app.store.AddChecklistItem(ctx, m.issueKey, trackerapi.ChecklistItemInput{Text: text})
				})
			}
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyEscape:
		m.app.pages.RemovePage(page)
		m.app.updateFocus()
		return nil
	case tcell.KeyEnter:
		if item, ok := m.selectedItem(); ok {
			checked := !item.Checked
			m.mutate(func(ctx context.Context) error {
				return m.app.store.EditChecklistItem(ctx, m.issueKey, item.ID, trackerapi.ChecklistItemInput{
					Text:    item.Text,
					Checked: &checked,
				})
			})
		}
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'n':
			m.openInput()
			return nil
		case 'd':
			if item, ok := m.selectedItem(); ok {
				m.mutate(func(ctx context.Context) error {
					return m.app.store.DeleteChecklistItem(ctx, m.issueKey, item.ID)
				})
			}
			return nil
		case 'D':
			m.mutate(func(ctx context.Context) error {
				return m.app.store.DeleteChecklist(ctx, m.issueKey)
			})
			return nil
		}
	}
	return event
}

func (m *ChecklistModal) selectedItem() (trackerapi.ChecklistItem, bool) {
	index := m.list.GetCurrentItem()
	if index < 0 || index >= len(m.items) {
		return trackerapi.ChecklistItem{}, false
	}
	return m.items[index], true
}

func (m *ChecklistModal) openInput() {
	m.adding = true
	m.input.SetText("")
	m.layout.AddItem(m.input, 1, 0, true)
	m.app.app.SetFocus(m.input)
}

func (m *ChecklistModal) closeInput() {
	m.adding = false
	m.layout.RemoveItem(m.input)
	m.app.app.SetFocus(m.list)
}

// mutate runs a checklist mutation and reloads the list on success.
func (m *ChecklistModal) mutate(op func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.config.Timeout)
		defer cancel()

		if err := op(ctx); err != nil {
			logger.ErrorWithErr(err, "tui.modals: checklist mutation failed issue=%s", m.issueKey)
			m.app.QueueUpdateDraw(func() {
				m.app.updateStatusBarWithError(err)
			})
			return
		}
		m.reload(false)
	}()
}
