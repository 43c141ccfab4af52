// internal/tools/executor.go
package tools

import "context"

// CallResult is the outcome of one executed tool call.
type CallResult struct {
	CallID  string
	Content string
}

// Executor runs the tool calls embedded in a round's answer text. It is
// invoked once per round after the stream finishes; an empty result list
// means no calls were found and the loop can finalize. Implementations
// may return partial results alongside an error: already-obtained
// results are kept, the error is surfaced via an error event.
type Executor interface {
	Execute(ctx context.Context, answer string, prior []CallResult, round int) ([]CallResult, error)
}
