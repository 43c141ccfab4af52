// internal/stream/metrics.go
package stream

import (
	"time"

	"conduit/internal/events"
	"conduit/internal/provider"
)

// Tracker latches timestamps and aggregates usage across the whole
// request lifecycle, including every tool-loop round. First-token and
// first-content latch exactly once for the life of the request.
type Tracker struct {
	start        time.Time
	firstToken   time.Time
	firstContent time.Time
	completed    time.Time
	thinking     time.Duration
	usage        *provider.Usage
}

// NewTracker starts tracking at the current instant.
func NewTracker() *Tracker {
	return &Tracker{start: time.Now()}
}

// MarkFirstToken latches the first reasoning-or-answer token time.
func (t *Tracker) MarkFirstToken() {
	if t.firstToken.IsZero() {
		t.firstToken = time.Now()
	}
}

// MarkFirstContent latches the first answer-token time, i.e. the first
// token strictly after any reasoning ends.
func (t *Tracker) MarkFirstContent() {
	if t.firstContent.IsZero() {
		t.firstContent = time.Now()
	}
}

// AddThinking accumulates one round's reasoning duration.
func (t *Tracker) AddThinking(d time.Duration) {
	t.thinking += d
}

// ObserveUsage records a usage snapshot; the last one seen wins.
func (t *Tracker) ObserveUsage(u *provider.Usage) {
	if u != nil {
		t.usage = u
	}
}

// MarkCompleted latches the completion time.
func (t *Tracker) MarkCompleted() {
	if t.completed.IsZero() {
		t.completed = time.Now()
	}
}

// Usage returns the last usage snapshot seen, or nil.
func (t *Tracker) Usage() *provider.Usage {
	return t.usage
}

// Metrics derives the latency figures for the terminal event.
func (t *Tracker) Metrics() events.Metrics {
	m := events.Metrics{ThinkingDuration: t.thinking}
	if !t.firstToken.IsZero() {
		m.TimeToFirstToken = t.firstToken.Sub(t.start)
	}
	if !t.firstContent.IsZero() {
		m.TimeToFirstContent = t.firstContent.Sub(t.start)
	}
	if !t.completed.IsZero() {
		m.CompletionDuration = t.completed.Sub(t.start)
	}
	return m
}
