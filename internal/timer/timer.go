// Package timer implements the work timer that tracks elapsed time against
// a single issue. The timer is the authoritative source of timer state for
// the whole process; interested components mirror it through push events.
package timer

import (
	"context"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the timer.
type Snapshot struct {
	Active       bool
	IssueKey     string
	IssueSummary string
	StartTime    time.Time
	Elapsed      int64
}

// Notifier receives timer state changes for delivery to the push-event
// feed.
type Notifier interface {
	TimerTicked(Snapshot)
	TimerStopped(issueKey string, elapsed int64)
}

// Timer tracks elapsed seconds for at most one issue at a time.
type Timer struct {
	mu             sync.Mutex
	active         bool
	issueKey       string
	issueSummary   string
	startTime      time.Time
	lastNotifiedAt time.Time

	notifier Notifier

	// now is replaceable in tests.
	now func() time.Time
}

// New returns an idle timer that announces state changes to the given
// notifier. A nil notifier is allowed.
func New(notifier Notifier) *Timer {
	return &Timer{notifier: notifier, now: time.Now}
}

// Start begins tracking the given issue, resetting any elapsed time.
func (t *Timer) Start(issueKey, issueSummary string) {
	t.mu.Lock()
	now := t.now()
	t.active = true
	t.issueKey = issueKey
	t.issueSummary = issueSummary
	t.startTime = now
	t.lastNotifiedAt = now
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	if t.notifier != nil {
		t.notifier.TimerTicked(snapshot)
	}
}

// Stop ends tracking and returns the elapsed seconds together with the key
// of the issue that was being tracked. Stopping an idle timer returns zero
// values.
func (t *Timer) Stop() (int64, string) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return 0, ""
	}

	elapsed := int64(t.now().Sub(t.startTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	key := t.issueKey

	t.active = false
	t.issueKey = ""
	t.issueSummary = ""
	t.startTime = time.Time{}
	t.lastNotifiedAt = time.Time{}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	if t.notifier != nil {
		t.notifier.TimerStopped(key, elapsed)
		t.notifier.TimerTicked(snapshot)
	}
	return elapsed, key
}

// State returns a snapshot with elapsed recomputed from the start instant.
func (t *Timer) State() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Active:       t.active,
		IssueKey:     t.issueKey,
		IssueSummary: t.issueSummary,
		StartTime:    t.startTime,
	}
	if t.active {
		elapsed := int64(t.now().Sub(t.startTime) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		snapshot.Elapsed = elapsed
	}
	return snapshot
}

// NotificationDue returns a snapshot when the periodic notification
// interval has elapsed since the last notification, nil otherwise. A zero
// interval disables notifications.
func (t *Timer) NotificationDue(interval time.Duration) *Snapshot {
	if interval <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil
	}

	now := t.now()
	last := t.lastNotifiedAt
	if last.IsZero() {
		last = t.startTime
	}
	if now.Sub(last) < interval {
		return nil
	}

	t.lastNotifiedAt = now
	snapshot := t.snapshotLocked()
	return &snapshot
}

// Run publishes a tick once per second while the timer is active, until the
// context is canceled.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := t.State()
			if !snapshot.Active {
				continue
			}
			if t.notifier != nil {
				t.notifier.TimerTicked(snapshot)
			}
		}
	}
}
