// internal/provider/provider.go
package provider

import (
	"context"
	"errors"
	"sync/atomic"

	"conduit/internal/message"
)

// ErrEmptyResponse is returned when a non-streaming completion comes back
// without any message content.
var ErrEmptyResponse = errors.New("empty response from upstream")

// Request is the normalized upstream completion request.
type Request struct {
	Model       string
	Messages    []message.RequestMessage
	Temperature float64
	TopP        float64
	MaxTokens   int
	Reasoning   *ReasoningOptions
	Stream      bool
}

// ReasoningOptions controls the vendor-specific reasoning channel.
// Effort is used by OpenAI-family models, BudgetTokens by Anthropic.
type ReasoningOptions struct {
	Effort       string
	BudgetTokens int
}

// Completion is a non-streaming completion result.
type Completion struct {
	Content string
	Usage   *Usage
}

// Provider is the interface all upstream backends implement.
type Provider interface {
	// Info returns identity and capability flags for the provider.
	Info() Info

	// Stream issues a streaming completion request and returns a channel
	// of chunks. Errors are delivered in-band via StreamChunk.Err; the
	// channel is closed when the stream ends.
	Stream(ctx context.Context, req Request) <-chan StreamChunk

	// Complete issues a non-streaming request. A response without message
	// content yields ErrEmptyResponse.
	Complete(ctx context.Context, req Request) (*Completion, error)

	// Stop interrupts any in-progress generation.
	Stop()

	// Status returns the current provider status.
	Status() Status
}

// base provides common bookkeeping shared by all providers. Status is
// written from the streaming goroutine and read by anyone, so access
// goes through atomics.
type base struct {
	info   Info
	status int32
}

func newBase(info Info) base {
	return base{info: info, status: int32(StatusIdle)}
}

func (b *base) Info() Info {
	return b.info
}

func (b *base) Status() Status {
	return Status(atomic.LoadInt32(&b.status))
}

func (b *base) setStatus(s Status) {
	atomic.StoreInt32(&b.status, int32(s))
}
