package store

import (
	"sync"

	"github.com/ebelokrylov/ytracker-tui/internal/events"
	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/timer"
)

// TimerBackend is the authoritative timer the synchronizer mirrors. It is
// satisfied by *timer.Timer.
type TimerBackend interface {
	State() timer.Snapshot
	Start(issueKey, issueSummary string)
	Stop() (int64, string)
}

// TimerSync mirrors the authoritative timer. It seeds itself with one point
// read, then applies every pushed snapshot in arrival order — a later
// snapshot always replaces the held one wholesale, so observed state never
// regresses behind the feed. Start and Stop issue the command and
// immediately re-read so the UI does not wait for the next push event.
type TimerSync struct {
	backend TimerBackend

	mu        sync.Mutex
	snapshot  timer.Snapshot
	listeners map[int]func(timer.Snapshot)
	stopped   map[int]func(issueKey string, elapsed int64)
	nextID    int

	cancel func()
	done   chan struct{}
}

// NewTimerSync builds a synchronizer over the backend and subscribes it to
// the push-event feed.
func NewTimerSync(backend TimerBackend, bus *events.Bus) *TimerSync {
	t := &TimerSync{
		backend:   backend,
		listeners: make(map[int]func(timer.Snapshot)),
		stopped:   make(map[int]func(string, int64)),
		done:      make(chan struct{}),
	}
	t.snapshot = backend.State()

	feed, cancel := bus.Subscribe()
	t.cancel = cancel
	go t.consume(feed)
	return t
}

func (t *TimerSync) consume(feed <-chan events.Event) {
	defer close(t.done)
	for event := range feed {
		switch event.Type {
		case events.TimerTick:
			t.replace(event.Timer)
		case events.TimerStopped:
			logger.Debug("store: timer stopped issue=%s elapsed=%d", event.IssueKey, event.Elapsed)
			t.notifyStopped(event.IssueKey, event.Elapsed)
		}
	}
}

// replace installs a new snapshot and notifies listeners. There is no
// merging; the latest arrival wins.
func (t *TimerSync) replace(snapshot timer.Snapshot) {
	t.mu.Lock()
	t.snapshot = snapshot
	listeners := make([]func(timer.Snapshot), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (t *TimerSync) notifyStopped(issueKey string, elapsed int64) {
	t.mu.Lock()
	listeners := make([]func(string, int64), 0, len(t.stopped))
	for _, fn := range t.stopped {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(issueKey, elapsed)
	}
}

// Snapshot returns the current mirrored timer state.
func (t *TimerSync) Snapshot() timer.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// Start begins tracking an issue and reconciles local state with a fresh
// point read. Whether starting over an already-running timer is allowed is
// the caller's decision; the synchronizer executes the sequence as issued.
func (t *TimerSync) Start(issueKey, issueSummary string) {
	t.backend.Start(issueKey, issueSummary)
	t.replace(t.backend.State())
}

// Stop ends tracking, returning the elapsed seconds and the issue that was
// being tracked, then reconciles with a fresh point read.
func (t *TimerSync) Stop() (int64, string) {
	elapsed, issueKey := t.backend.Stop()
	t.replace(t.backend.State())
	return elapsed, issueKey
}

// OnChange registers a listener invoked with every new snapshot. The
// returned function removes it.
func (t *TimerSync) OnChange(fn func(timer.Snapshot)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// OnStopped registers a listener for timer-stopped notifications carrying
// the stopped issue's key and elapsed seconds. The returned function
// removes it.
func (t *TimerSync) OnStopped(fn func(issueKey string, elapsed int64)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.stopped[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.stopped, id)
	}
}

// Close detaches the synchronizer from the push feed and waits for the
// consumer to drain.
func (t *TimerSync) Close() {
	t.cancel()
	<-t.done
}
