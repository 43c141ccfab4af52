// internal/tools/local.go
package tools

import (
	"context"
	"errors"
	"fmt"
)

// Func is one locally registered tool implementation.
type Func func(ctx context.Context, arguments string) (string, error)

// LocalExecutor parses tool markup from answer text and runs registered
// tools in-process, screening each call through a Guard first. Failures
// are caught per call: successful results are kept and errors joined.
type LocalExecutor struct {
	funcs map[string]Func
	guard *Guard
}

func NewLocalExecutor(guard *Guard) *LocalExecutor {
	return &LocalExecutor{
		funcs: make(map[string]Func),
		guard: guard,
	}
}

// Register adds a tool implementation under name, replacing any previous
// registration.
func (e *LocalExecutor) Register(name string, fn Func) {
	e.funcs[name] = fn
}

// Execute implements Executor.
func (e *LocalExecutor) Execute(ctx context.Context, answer string, prior []CallResult, round int) ([]CallResult, error) {
	calls := ParseCalls(answer)
	if len(calls) == 0 {
		return nil, nil
	}

	var results []CallResult
	var errs []error

	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if e.guard != nil {
			if err := e.guard.Screen(call); err != nil {
				results = append(results, CallResult{
					CallID:  call.ID,
					Content: "refused: " + err.Error(),
				})
				continue
			}
		}

		fn, ok := e.funcs[call.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("tool %s not registered", call.Name))
			continue
		}

		output, err := fn(ctx, call.Arguments)
		if err != nil {
			errs = append(errs, fmt.Errorf("tool %s: %w", call.Name, err))
			continue
		}
		results = append(results, CallResult{CallID: call.ID, Content: output})
	}

	return results, errors.Join(errs...)
}
