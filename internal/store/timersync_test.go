package store

import (
	"sync"
	"testing"

	"github.com/ebelokrylov/ytracker-tui/internal/events"
	"github.com/ebelokrylov/ytracker-tui/internal/timer"
)

// fakeTimerBackend is a scriptable TimerBackend with a mutable snapshot.
type fakeTimerBackend struct {
	mu       sync.Mutex
	snapshot timer.Snapshot
}

func (f *fakeTimerBackend) State() timer.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeTimerBackend) Start(issueKey, issueSummary string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = timer.Snapshot{Active: true, IssueKey: issueKey, IssueSummary: issueSummary}
}

func (f *fakeTimerBackend) Stop() (int64, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	elapsed, key := f.snapshot.Elapsed, f.snapshot.IssueKey
	f.snapshot = timer.Snapshot{}
	return elapsed, key
}

func (f *fakeTimerBackend) set(s timer.Snapshot) {
	f.mu.Lock()
	f.snapshot = s
	f.mu.Unlock()
}

func TestTimerSyncSeedsFromPointRead(t *testing.T) {
	backend := &fakeTimerBackend{}
	backend.set(timer.Snapshot{Active: true, IssueKey: "TEST-1", Elapsed: 42})
	bus := events.NewBus()
	defer bus.Close()

	ts := NewTimerSync(backend, bus)
	defer ts.Close()

	got := ts.Snapshot()
	if !got.Active || got.IssueKey != "TEST-1" || got.Elapsed != 42 {
		t.Errorf("seeded snapshot = %+v", got)
	}
}

func TestTimerSyncAppliesTicksInArrivalOrder(t *testing.T) {
	backend := &fakeTimerBackend{}
	bus := events.NewBus()
	defer bus.Close()

	ts := NewTimerSync(backend, bus)
	defer ts.Close()

	var mu sync.Mutex
	var seen []int64
	done := make(chan struct{}, 8)
	remove := ts.OnChange(func(s timer.Snapshot) {
		mu.Lock()
		seen = append(seen, s.Elapsed)
		mu.Unlock()
		done <- struct{}{}
	})
	defer remove()

	for _, elapsed := range []int64{120, 125} {
		bus.Publish(events.Event{
			Type:  events.TimerTick,
			Timer: timer.Snapshot{Active: true, IssueKey: "TEST-1", Elapsed: elapsed},
		})
	}
	<-done
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 120 || seen[1] != 125 {
		t.Fatalf("observed elapsed sequence = %v, want [120 125]", seen)
	}
	if got := ts.Snapshot().Elapsed; got != 125 {
		t.Errorf("final snapshot elapsed = %d, want 125 (latest arrival wins)", got)
	}
}

func TestTimerSyncStartStopReconcileImmediately(t *testing.T) {
	backend := &fakeTimerBackend{}
	bus := events.NewBus()
	defer bus.Close()

	ts := NewTimerSync(backend, bus)
	defer ts.Close()

	ts.Start("TEST-1", "do the thing")
	got := ts.Snapshot()
	if !got.Active || got.IssueKey != "TEST-1" || got.IssueSummary != "do the thing" {
		t.Fatalf("snapshot after Start = %+v", got)
	}

	backend.set(timer.Snapshot{Active: true, IssueKey: "TEST-1", Elapsed: 30})
	elapsed, key := ts.Stop()
	if elapsed != 30 || key != "TEST-1" {
		t.Errorf("Stop() = (%d, %q), want (30, TEST-1)", elapsed, key)
	}
	if ts.Snapshot().Active {
		t.Error("snapshot still active after Stop")
	}
}

func TestTimerSyncStoppedListener(t *testing.T) {
	backend := &fakeTimerBackend{}
	bus := events.NewBus()
	defer bus.Close()

	ts := NewTimerSync(backend, bus)
	defer ts.Close()

	type stop struct {
		key     string
		elapsed int64
	}
	got := make(chan stop, 1)
	remove := ts.OnStopped(func(issueKey string, elapsed int64) {
		got <- stop{issueKey, elapsed}
	})
	defer remove()

	bus.Publish(events.Event{Type: events.TimerStopped, IssueKey: "TEST-1", Elapsed: 900})

	received := <-got
	if received.key != "TEST-1" || received.elapsed != 900 {
		t.Errorf("stopped notification = %+v", received)
	}
}

func TestTimerSyncListenerRemoval(t *testing.T) {
	backend := &fakeTimerBackend{}
	bus := events.NewBus()
	defer bus.Close()

	ts := NewTimerSync(backend, bus)
	defer ts.Close()

	calls := make(chan struct{}, 4)
	remove := ts.OnChange(func(timer.Snapshot) { calls <- struct{}{} })

	ts.Start("TEST-1", "a")
	<-calls

	remove()
	ts.Start("TEST-2", "b")

	select {
	case <-calls:
		t.Error("removed listener still notified")
	default:
	}
	if got := ts.Snapshot().IssueKey; got != "TEST-2" {
		t.Errorf("snapshot issue = %q, want TEST-2", got)
	}
}

func TestTimerSyncCloseStopsConsuming(t *testing.T) {
	backend := &fakeTimerBackend{}
	bus := events.NewBus()
	defer bus.Close()

	ts := NewTimerSync(backend, bus)
	ts.Close()

	// Publishing after Close must not panic or change state.
	bus.Publish(events.Event{
		Type:  events.TimerTick,
		Timer: timer.Snapshot{Active: true, IssueKey: "TEST-1"},
	})
	if ts.Snapshot().Active {
		t.Error("snapshot changed after Close")
	}
}
