// internal/events/events.go
package events

import (
	"time"

	"conduit/internal/citation"
	"conduit/internal/provider"
)

// Type tags an event on the consumer-facing stream.
type Type string

const (
	ResponseCreated  Type = "response.created"
	ThinkingDelta    Type = "thinking.delta"
	ThinkingComplete Type = "thinking.complete"
	TextDelta        Type = "text.delta"
	TextComplete     Type = "text.complete"
	WebSearchDone    Type = "websearch.complete"
	ImageCreated     Type = "image.created"
	ImageComplete    Type = "image.complete"
	ErrorOccurred    Type = "error"
	BlockComplete    Type = "block.complete"
)

// Metrics are the request-lifetime latency figures attached to the
// terminal block-complete event.
type Metrics struct {
	TimeToFirstToken   time.Duration
	TimeToFirstContent time.Duration
	ThinkingDuration   time.Duration
	CompletionDuration time.Duration
}

// Event is one entry on the ordered, append-only event stream. Which
// fields are set depends on Type.
type Event struct {
	Type      Type
	RequestID string
	Round     int

	// Text carries delta or accumulated text for thinking/text events.
	Text string

	// Elapsed is thinking time so far on thinking deltas, and the total
	// thinking duration on thinking-complete.
	Elapsed time.Duration

	Citations []citation.Citation
	Image     *provider.ImageData
	Usage     *provider.Usage
	Metrics   *Metrics
	Err       error
}

// Sink receives events in emission order. Implementations must not
// block indefinitely; the orchestrator calls it inline.
type Sink func(Event)
