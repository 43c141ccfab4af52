// internal/tools/local_test.go
package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func callMarkup(name, args string) string {
	return "<tool_use><name>" + name + "</name><arguments>" + args + "</arguments></tool_use>"
}

func TestLocalExecutorRunsRegisteredTools(t *testing.T) {
	exec := NewLocalExecutor(nil)
	exec.Register("echo", func(ctx context.Context, arguments string) (string, error) {
		return "echo: " + arguments, nil
	})

	results, err := exec.Execute(context.Background(), callMarkup("echo", "hi"), nil, 0)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].CallID != "call_0" || results[0].Content != "echo: hi" {
		t.Errorf("Unexpected result %+v", results[0])
	}
}

func TestLocalExecutorNoCalls(t *testing.T) {
	exec := NewLocalExecutor(nil)

	results, err := exec.Execute(context.Background(), "no markup here", nil, 0)

	if results != nil || err != nil {
		t.Errorf("Expected nil results and error, got %v, %v", results, err)
	}
}

func TestLocalExecutorPartialResults(t *testing.T) {
	exec := NewLocalExecutor(nil)
	exec.Register("good", func(ctx context.Context, arguments string) (string, error) {
		return "ok", nil
	})
	exec.Register("bad", func(ctx context.Context, arguments string) (string, error) {
		return "", errors.New("boom")
	})

	answer := callMarkup("good", "1") + callMarkup("bad", "2") + callMarkup("missing", "3")
	results, err := exec.Execute(context.Background(), answer, nil, 0)

	if len(results) != 1 || results[0].Content != "ok" {
		t.Errorf("Successful results should survive failures, got %+v", results)
	}
	if err == nil {
		t.Fatal("Expected joined error for failed and unregistered tools")
	}
	msg := err.Error()
	if !strings.Contains(msg, "boom") || !strings.Contains(msg, "not registered") {
		t.Errorf("Expected both failures in joined error, got %q", msg)
	}
}

func TestLocalExecutorGuardRefusal(t *testing.T) {
	exec := NewLocalExecutor(NewGuard())
	ran := false
	exec.Register("shell", func(ctx context.Context, arguments string) (string, error) {
		ran = true
		return "done", nil
	})

	results, err := exec.Execute(context.Background(), callMarkup("shell", "rm -rf /tmp"), nil, 0)

	if err != nil {
		t.Fatalf("Refusal is a result, not an error: %v", err)
	}
	if ran {
		t.Error("Blocked tool must not run")
	}
	if len(results) != 1 || !strings.HasPrefix(results[0].Content, "refused:") {
		t.Errorf("Expected refusal result, got %+v", results)
	}
}

func TestLocalExecutorCancelledContext(t *testing.T) {
	exec := NewLocalExecutor(nil)
	exec.Register("echo", func(ctx context.Context, arguments string) (string, error) {
		return arguments, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, callMarkup("echo", "x"), nil, 0)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
