package events

import "github.com/ebelokrylov/ytracker-tui/internal/timer"

// TimerNotifier adapts the bus to the timer's Notifier interface.
type TimerNotifier struct {
	Bus *Bus
}

// TimerTicked publishes a TimerTick event.
func (n TimerNotifier) TimerTicked(snapshot timer.Snapshot) {
	n.Bus.Publish(Event{Type: TimerTick, Timer: snapshot})
}

// TimerStopped publishes a TimerStopped event.
func (n TimerNotifier) TimerStopped(issueKey string, elapsed int64) {
	n.Bus.Publish(Event{Type: TimerStopped, IssueKey: issueKey, Elapsed: elapsed})
}
