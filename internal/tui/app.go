// Package tui implements the terminal user interface: an issue list fed by
// a scroll search session, a details pane backed by the data store's
// per-issue caches, and a status bar mirroring the work timer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ebelokrylov/ytracker-tui/internal/config"
	"github.com/ebelokrylov/ytracker-tui/internal/events"
	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/store"
	"github.com/ebelokrylov/ytracker-tui/internal/timer"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

// FocusTarget indicates which pane has focus.
type FocusTarget int

const (
	FocusIssues FocusTarget = iota
	FocusDetails
)

// DetailTab selects which detail resource the details pane shows.
type DetailTab int

const (
	TabComments DetailTab = iota
	TabAttachments
	TabTransitions
	TabWorklogs
	TabChecklist
)

var detailTabTitles = map[DetailTab]string{
	TabComments:    "Comments",
	TabAttachments: "Attachments",
	TabTransitions: "Transitions",
	TabWorklogs:    "Worklogs",
	TabChecklist:   "Checklist",
}

// App is the main application controller.
type App struct {
	app       *tview.Application
	store     *store.Store
	session   *store.ScrollSession
	timers    *store.TimerSync
	bus       *events.Bus
	config    config.Config
	theme     Theme
	themeTags ThemeTags

	pages           *tview.Pages
	mainLayout      *tview.Flex
	issuesTable     *tview.Table
	descriptionView *tview.TextView
	detailView      *tview.TextView
	statusBar       *tview.TextView

	searchModal     *SearchModal
	commentModal    *CommentModal
	worklogModal    *WorklogModal
	transitionModal *TransitionModal
	checklistModal  *ChecklistModal

	// App state (protected by mu)
	mu            sync.RWMutex
	issues        []trackerapi.Issue
	selectedKey   string
	searchQuery   string
	searchFilter  map[string]interface{}
	focusedPane   FocusTarget
	activeTab     DetailTab
	isLoading     bool
	timerSnapshot timer.Snapshot

	// detailGeneration invalidates in-flight detail fetches when the
	// selection changes.
	detailGeneration atomic.Int64

	removeTimerListener   func()
	removeStoppedListener func()

	// queueUpdateDraw is overridable in tests.
	queueUpdateDraw func(func())
}

// NewApp creates the application controller over the given store and timer
// synchronizer.
func NewApp(s *store.Store, timers *store.TimerSync, bus *events.Bus, cfg config.Config) *App {
	theme := ResolveTheme(cfg.Theme)

	a := &App{
		app:       tview.NewApplication(),
		store:     s,
		session:   s.NewScrollSession(),
		timers:    timers,
		bus:       bus,
		config:    cfg,
		theme:     theme,
		themeTags: NewThemeTags(theme),
		pages:     tview.NewPages(),
	}
	a.queueUpdateDraw = func(f func()) {
		a.app.QueueUpdateDraw(f)
	}

	a.applyThemeStyles()
	a.buildLayout()
	a.bindGlobalKeys()
	a.bindTimerFeed()

	return a
}

// Run starts the event loop and blocks until exit.
func (a *App) Run() error {
	a.app.SetRoot(a.pages, true).EnableMouse(true)
	go a.refreshIssues()
	err := a.app.Run()
	a.shutdown()
	return err
}

// Stop terminates the event loop.
func (a *App) Stop() {
	a.app.Stop()
}

func (a *App) shutdown() {
	if a.removeTimerListener != nil {
		a.removeTimerListener()
	}
	if a.removeStoppedListener != nil {
		a.removeStoppedListener()
	}
	a.session.Close()
}

// QueueUpdateDraw schedules a UI update on the event loop.
func (a *App) QueueUpdateDraw(f func()) {
	a.queueUpdateDraw(f)
}

func (a *App) applyThemeStyles() {
	tview.Styles.PrimitiveBackgroundColor = a.theme.Background
	tview.Styles.ContrastBackgroundColor = a.theme.Background
	tview.Styles.MoreContrastBackgroundColor = a.theme.HeaderBg
	tview.Styles.BorderColor = a.theme.Border
	tview.Styles.TitleColor = a.theme.Foreground
	tview.Styles.GraphicsColor = a.theme.Border
	tview.Styles.PrimaryTextColor = a.theme.Foreground
	tview.Styles.SecondaryTextColor = a.theme.SecondaryText
}

// buildLayout constructs the main UI layout.
func (a *App) buildLayout() {
	a.issuesTable = a.buildIssuesTable()
	a.descriptionView = a.buildTextPane(" Issue ")
	a.detailView = a.buildTextPane(" Comments ")
	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	a.statusBar.SetBackgroundColor(a.theme.HeaderBg)

	detailsFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.descriptionView, 0, 3, false).
		AddItem(a.detailView, 0, 2, false)

	contentFlex := tview.NewFlex().
		AddItem(a.issuesTable, 0, 1, true).
		AddItem(detailsFlex, 0, 1, false)

	a.mainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(contentFlex, 0, 1, true).
		AddItem(a.statusBar, 1, 1, false)

	a.searchModal = NewSearchModal(a)
	a.commentModal = NewCommentModal(a)
	a.worklogModal = NewWorklogModal(a)
	a.transitionModal = NewTransitionModal(a)
	a.checklistModal = NewChecklistModal(a)

	a.pages.AddPage("main", a.mainLayout, true, true)

	a.updateStatusBar()
}

func (a *App) buildIssuesTable() *tview.Table {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Issues ")
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(a.theme.SelectionText).
		Background(a.theme.SelectionBg).
		Bold(true))
	table.SetSelectionChangedFunc(func(row, column int) {
		if row <= 0 {
			return
		}
		a.mu.RLock()
		var key string
		if row-1 < len(a.issues) {
			key = a.issues[row-1].Key
		}
		a.mu.RUnlock()
		if key != "" {
			a.onIssueSelected(key)
		}
	})
	return table
}

func (a *App) buildTextPane(title string) *tview.TextView {
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	view.SetBorder(true).SetTitle(title)
	view.SetChangedFunc(func() { a.app.Draw() })
	return view
}

// bindTimerFeed subscribes the status bar to timer state changes and opens
// the worklog prompt when a timer stops.
func (a *App) bindTimerFeed() {
	a.mu.Lock()
	a.timerSnapshot = a.timers.Snapshot()
	a.mu.Unlock()

	a.removeTimerListener = a.timers.OnChange(func(snapshot timer.Snapshot) {
		a.QueueUpdateDraw(func() {
			a.mu.Lock()
			a.timerSnapshot = snapshot
			a.mu.Unlock()
			a.updateStatusBar()
		})
	})
	a.removeStoppedListener = a.timers.OnStopped(func(issueKey string, elapsed int64) {
		if elapsed <= 0 {
			return
		}
		a.QueueUpdateDraw(func() {
			a.worklogModal.Show(issueKey, elapsed)
		})
	})
}

// bindGlobalKeys sets up global keyboard shortcuts.
func (a *App) bindGlobalKeys() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if name, modal := a.activeModal(); modal != nil {
			return modal.HandleKey(event, name)
		}

		switch event.Key() {
		case tcell.KeyCtrlC:
			a.app.Stop()
			return nil
		case tcell.KeyEscape:
			if a.currentSearchQuery() != "" {
				a.setSearch("", nil)
				return nil
			}
		case tcell.KeyTab, tcell.KeyBacktab:
			a.cycleFocus()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				a.app.Stop()
				return nil
			case '/':
				a.searchModal.Show(a.currentSearchQuery())
				return nil
			case 'r':
				go a.refreshIssues()
				return nil
			case 'm':
				go a.loadMoreIssues()
				return nil
			case 'c':
				a.commentModal.Show()
				return nil
			case 't':
				a.openTransitions()
				return nil
			case 'C':
				a.openChecklist()
				return nil
			case 's':
				a.startTimer()
				return nil
			case 'S':
				a.stopTimer()
				return nil
			case 'T':
				a.toggleTheme()
				return nil
			case '1', '2', '3', '4', '5':
				a.setDetailTab(DetailTab(event.Rune() - '1'))
				return nil
			}
		}

		switch a.focusedPane {
		case FocusIssues:
			return a.handleIssuesKey(event)
		case FocusDetails:
			return a.handleDetailsKey(event)
		}
		return event
	})
}

// modalHandler is the shared surface of the pop-up modals.
type modalHandler interface {
	HandleKey(event *tcell.EventKey, page string) *tcell.EventKey
}

func (a *App) activeModal() (string, modalHandler) {
	switch {
	case a.pages.HasPage("search"):
		return "search", a.searchModal
	case a.pages.HasPage("comment"):
		return "comment", a.commentModal
	case a.pages.HasPage("worklog"):
		return "worklog", a.worklogModal
	case a.pages.HasPage("transitions"):
		return "transitions", a.transitionModal
	case a.pages.HasPage("checklist"):
		return "checklist", a.checklistModal
	}
	return "", nil
}

func (a *App) handleIssuesKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRight:
		a.focusedPane = FocusDetails
		a.updateFocus()
		return nil
	case tcell.KeyRune:
		if event.Rune() == 'l' {
			a.focusedPane = FocusDetails
			a.updateFocus()
			return nil
		}
	}

	// Load the next page when selection hits the last loaded row.
	if event.Key() == tcell.KeyDown || (event.Key() == tcell.KeyRune && event.Rune() == 'j') {
		row, _ := a.issuesTable.GetSelection()
		a.mu.RLock()
		atBottom := row >= len(a.issues)
		a.mu.RUnlock()
		if atBottom && a.session.HasMore() {
			go a.loadMoreIssues()
		}
	}
	return event
}

func (a *App) handleDetailsKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		a.focusedPane = FocusIssues
		a.updateFocus()
		return nil
	case tcell.KeyRune:
		if event.Rune() == 'h' {
			a.focusedPane = FocusIssues
			a.updateFocus()
			return nil
		}
	}
	return event
}

func (a *App) cycleFocus() {
	if a.focusedPane == FocusIssues {
		a.focusedPane = FocusDetails
	} else {
		a.focusedPane = FocusIssues
	}
	a.updateFocus()
}

func (a *App) updateFocus() {
	switch a.focusedPane {
	case FocusIssues:
		a.app.SetFocus(a.issuesTable)
	case FocusDetails:
		a.app.SetFocus(a.detailView)
	}
}

func (a *App) currentSearchQuery() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.searchQuery
}

// setSearch installs a new search and refreshes the issue list.
func (a *App) setSearch(query string, filter map[string]interface{}) {
	a.mu.Lock()
	a.searchQuery = query
	a.searchFilter = filter
	a.mu.Unlock()
	go a.refreshIssues()
}

// refreshIssues starts a new root search on the scroll session and renders
// the result.
func (a *App) refreshIssues() {
	a.mu.Lock()
	if a.isLoading {
		a.mu.Unlock()
		return
	}
	a.isLoading = true
	opts := store.IssueSearchOptions{Query: a.searchQuery, Filter: a.searchFilter}
	a.mu.Unlock()

	a.QueueUpdateDraw(func() {
		a.statusBar.SetText(fmt.Sprintf("%sLoading…[-]", a.themeTags.Warning))
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Timeout)
	defer cancel()

	issues, err := a.session.Search(ctx, opts)

	a.mu.Lock()
	a.isLoading = false
	a.mu.Unlock()

	if errors.Is(err, store.ErrSuperseded) {
		return
	}
	if err != nil {
		logger.ErrorWithErr(err, "tui.app: issue search failed")
		a.QueueUpdateDraw(func() {
			a.updateStatusBarWithError(err)
		})
		return
	}

	logger.Debug("tui.app: search done count=%d has_more=%t", len(issues), a.session.HasMore())
	a.QueueUpdateDraw(func() {
		a.setIssues(issues, true)
		a.updateStatusBar()
	})
}

// loadMoreIssues fetches the next scroll page and merges it into the
// table.
func (a *App) loadMoreIssues() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Timeout)
	defer cancel()

	added, err := a.session.LoadMore(ctx)
	switch {
	case errors.Is(err, store.ErrLoadInFlight), errors.Is(err, store.ErrSuperseded):
		return
	case errors.Is(err, store.ErrNoCursor), errors.Is(err, store.ErrClosed):
		return
	case err != nil:
		logger.ErrorWithErr(err, "tui.app: load more failed")
		a.QueueUpdateDraw(func() {
			a.updateStatusBarWithError(err)
		})
		return
	}

	logger.Debug("tui.app: load more done added=%d has_more=%t", added, a.session.HasMore())
	a.QueueUpdateDraw(func() {
		a.setIssues(a.session.Issues(), false)
		a.updateStatusBar()
	})
}

// setIssues replaces the rendered issue list, keeping the current
// selection when the issue is still present.
func (a *App) setIssues(issues []trackerapi.Issue, resetSelection bool) {
	a.mu.Lock()
	a.issues = issues
	target := a.selectedKey
	a.mu.Unlock()

	a.renderIssuesTable()

	if len(issues) == 0 {
		a.mu.Lock()
		a.selectedKey = ""
		a.mu.Unlock()
		a.descriptionView.SetText("")
		a.detailView.SetText("")
		return
	}

	selectRow := 1
	if !resetSelection && target != "" {
		for i, issue := range issues {
			if issue.Key == target {
				selectRow = i + 1
				break
			}
		}
	}
	a.issuesTable.Select(selectRow, 0)
	a.onIssueSelected(issues[selectRow-1].Key)
}

func (a *App) renderIssuesTable() {
	a.mu.RLock()
	issues := a.issues
	a.mu.RUnlock()

	a.issuesTable.Clear()
	headers := []string{"Key", "Summary", "Status", "Priority", "Assignee", "Spent"}
	for col, header := range headers {
		a.issuesTable.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(a.theme.Accent).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}
	for row, issue := range issues {
		for col, text := range issueTableCells(issue) {
			cell := tview.NewTableCell(text)
			if col == 0 {
				cell.SetTextColor(a.theme.Accent)
			}
			a.issuesTable.SetCell(row+1, col, cell)
		}
	}
}

// onIssueSelected updates the details pane for a newly selected issue.
func (a *App) onIssueSelected(issueKey string) {
	a.mu.Lock()
	if a.selectedKey == issueKey {
		a.mu.Unlock()
		return
	}
	a.selectedKey = issueKey
	var selected *trackerapi.Issue
	for i := range a.issues {
		if a.issues[i].Key == issueKey {
			selected = &a.issues[i]
			break
		}
	}
	a.mu.Unlock()

	if selected != nil {
		a.descriptionView.SetText(renderIssueDetails(*selected, a.themeTags))
		a.descriptionView.ScrollToBeginning()
	}
	a.loadDetailTab()
}

// setDetailTab switches which detail resource the lower pane shows.
func (a *App) setDetailTab(tab DetailTab) {
	a.mu.Lock()
	a.activeTab = tab
	a.mu.Unlock()
	a.detailView.SetTitle(fmt.Sprintf(" %s ", detailTabTitles[tab]))
	a.loadDetailTab()
}

// loadDetailTab fetches the active detail resource through the store and
// renders it. Stale responses are dropped via the detail generation.
func (a *App) loadDetailTab() {
	a.mu.RLock()
	issueKey := a.selectedKey
	tab := a.activeTab
	a.mu.RUnlock()
	if issueKey == "" {
		a.detailView.SetText("")
		return
	}

	generation := a.detailGeneration.Add(1)
	a.detailView.SetText(fmt.Sprintf("%sLoading %s…[-]", a.themeTags.Secondary, detailTabTitles[tab]))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Timeout)
		defer cancel()

		text, err := a.fetchDetailText(ctx, issueKey, tab, false)
		if generation != a.detailGeneration.Load() {
			return
		}
		a.QueueUpdateDraw(func() {
			if generation != a.detailGeneration.Load() {
				return
			}
			if err != nil {
				logger.ErrorWithErr(err, "tui.app: detail fetch failed issue=%s tab=%d", issueKey, tab)
				a.detailView.SetText(fmt.Sprintf("%sError: %v[-]", a.themeTags.Error, err))
				return
			}
			a.detailView.SetText(text)
			a.detailView.ScrollToBeginning()
		})
	}()
}

func (a *App) fetchDetailText(ctx context.Context, issueKey string, tab DetailTab, force bool) (string, error) {
	switch tab {
	case TabComments:
		comments, err := a.store.Comments(ctx, issueKey, force)
		if err != nil {
			return "", err
		}
		return renderComments(comments, a.themeTags), nil
	case TabAttachments:
		attachments, err := a.store.Attachments(ctx, issueKey, force)
		if err != nil {
			return "", err
		}
		return renderAttachments(attachments, a.themeTags), nil
	case TabTransitions:
		transitions, err := a.store.Transitions(ctx, issueKey, force)
		if err != nil {
			return "", err
		}
		return renderTransitions(transitions, a.themeTags), nil
	case TabWorklogs:
		worklogs, err := a.store.Worklogs(ctx, issueKey, force)
		if err != nil {
			return "", err
		}
		return renderWorklogs(worklogs, a.themeTags), nil
	case TabChecklist:
		items, err := a.store.Checklist(ctx, issueKey, force)
		if err != nil {
			return "", err
		}
		return renderChecklist(items, a.themeTags), nil
	}
	return "", fmt.Errorf("unknown detail tab %d", tab)
}

func (a *App) activeTabIs(tab DetailTab) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeTab == tab
}

// selectedIssue returns a copy of the currently selected issue.
func (a *App) selectedIssue() (trackerapi.Issue, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, issue := range a.issues {
		if issue.Key == a.selectedKey {
			return issue, true
		}
	}
	return trackerapi.Issue{}, false
}

func (a *App) startTimer() {
	issue, ok := a.selectedIssue()
	if !ok {
		a.updateStatusBarWithError(fmt.Errorf("no issue selected"))
		return
	}
	a.timers.Start(issue.Key, issue.Summary)
	logger.Info("tui.app: timer started issue=%s", issue.Key)
	a.updateStatusBar()
}

func (a *App) stopTimer() {
	snapshot := a.timers.Snapshot()
	if !snapshot.Active {
		return
	}
	elapsed, issueKey := a.timers.Stop()
	logger.Info("tui.app: timer stopped issue=%s elapsed=%d", issueKey, elapsed)
	a.updateStatusBar()
}

// toggleTheme switches between the dark and light themes, persists the
// choice, and broadcasts the configuration change.
func (a *App) toggleTheme() {
	next := darkTheme
	if a.theme.Name == darkTheme.Name {
		next = lightTheme
	}
	a.theme = next
	a.themeTags = NewThemeTags(next)
	a.config.Theme = next.Name

	a.applyThemeStyles()
	a.issuesTable.SetSelectedStyle(tcell.StyleDefault.
		Foreground(a.theme.SelectionText).
		Background(a.theme.SelectionBg).
		Bold(true))
	a.statusBar.SetBackgroundColor(a.theme.HeaderBg)
	a.renderIssuesTable()
	if issue, ok := a.selectedIssue(); ok {
		a.descriptionView.SetText(renderIssueDetails(issue, a.themeTags))
	}
	a.loadDetailTab()
	a.updateStatusBar()

	cfg := a.config
	go func() {
		if err := cfg.Save(); err != nil {
			logger.ErrorWithErr(err, "tui.app: persist theme failed")
			return
		}
		a.bus.Publish(events.Event{Type: events.ConfigUpdated})
	}()
}

func (a *App) openTransitions() {
	issue, ok := a.selectedIssue()
	if !ok {
		a.updateStatusBarWithError(fmt.Errorf("no issue selected"))
		return
	}
	a.transitionModal.Show(issue.Key)
}

func (a *App) openChecklist() {
	issue, ok := a.selectedIssue()
	if !ok {
		a.updateStatusBarWithError(fmt.Errorf("no issue selected"))
		return
	}
	a.checklistModal.Show(issue.Key)
}

// updateStatusBar renders the persistent status line.
func (a *App) updateStatusBar() {
	a.mu.RLock()
	loaded := len(a.issues)
	query := a.searchQuery
	snapshot := a.timerSnapshot
	a.mu.RUnlock()

	parts := []string{
		formatCountStatus(loaded, a.session.TotalCount(), a.session.HasMore()),
	}
	if a.session.HasMore() {
		parts = append(parts, "m: more")
	}
	if query != "" {
		parts = append(parts, fmt.Sprintf("search: %s", truncate(query, 30)))
	}
	if timerText := formatTimerStatus(snapshot); timerText != "" {
		parts = append(parts, a.themeTags.Success+timerText+"[-]")
	}
	parts = append(parts, a.themeTags.Secondary+"q: quit  /: search  r: refresh  c: comment  t: transition  s/S: timer[-]")

	text := ""
	for i, part := range parts {
		if i > 0 {
			text += "  |  "
		}
		text += part
	}
	a.statusBar.SetText(text)
}

func (a *App) updateStatusBarWithError(err error) {
	a.statusBar.SetText(fmt.Sprintf("%sError: %v[-]", a.themeTags.Error, err))
}
