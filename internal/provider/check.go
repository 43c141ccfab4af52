// internal/provider/check.go
package provider

import (
	"context"
	"errors"

	"conduit/internal/message"
)

// CheckResult reports whether a model responded to a probe request.
type CheckResult struct {
	Valid bool
	Error string
}

// Check issues a minimal non-streaming completion against a model to
// verify the provider credentials and model ID are usable.
func Check(ctx context.Context, p Provider, model string) CheckResult {
	_, err := p.Complete(ctx, Request{
		Model:     model,
		MaxTokens: 16,
		Messages: []message.RequestMessage{
			{Role: string(message.RoleUser), Content: "hi"},
		},
	})
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return CheckResult{Valid: false, Error: "Empty response"}
		}
		return CheckResult{Valid: false, Error: err.Error()}
	}
	return CheckResult{Valid: true}
}
