// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"conduit/internal/events"
	"conduit/internal/message"
	"conduit/internal/provider"
	"conduit/internal/tools"
)

// mockProvider implements provider.Provider for testing
type mockProvider struct {
	info       provider.Info
	streamFunc func(ctx context.Context, req provider.Request) <-chan provider.StreamChunk
	requests   []provider.Request
	stopped    bool
}

func (m *mockProvider) Info() provider.Info { return m.info }

func (m *mockProvider) Stream(ctx context.Context, req provider.Request) <-chan provider.StreamChunk {
	m.requests = append(m.requests, req)
	return m.streamFunc(ctx, req)
}

func (m *mockProvider) Complete(ctx context.Context, req provider.Request) (*provider.Completion, error) {
	return nil, provider.ErrEmptyResponse
}

func (m *mockProvider) Stop() { m.stopped = true }

func (m *mockProvider) Status() provider.Status { return provider.StatusIdle }

// mockExecutor implements tools.Executor for testing
type mockExecutor struct {
	executeFunc func(ctx context.Context, answer string, prior []tools.CallResult, round int) ([]tools.CallResult, error)
}

func (m *mockExecutor) Execute(ctx context.Context, answer string, prior []tools.CallResult, round int) ([]tools.CallResult, error) {
	return m.executeFunc(ctx, answer, prior, round)
}

// chunkStream returns a streamFunc that replays the given chunks and
// closes the channel.
func chunkStream(chunks ...provider.StreamChunk) func(ctx context.Context, req provider.Request) <-chan provider.StreamChunk {
	return func(ctx context.Context, req provider.Request) <-chan provider.StreamChunk {
		ch := make(chan provider.StreamChunk, len(chunks))
		for _, c := range chunks {
			ch <- c
		}
		close(ch)
		return ch
	}
}

func collectRun(t *testing.T, o *Orchestrator, req Request) ([]events.Event, error) {
	t.Helper()
	var got []events.Event
	err := o.Run(context.Background(), req, func(evt events.Event) {
		got = append(got, evt)
	})
	return got, err
}

func eventTypes(evts []events.Event) []events.Type {
	out := make([]events.Type, len(evts))
	for i, evt := range evts {
		out[i] = evt.Type
	}
	return out
}

func userRequest(text string) Request {
	return Request{
		Model: "test-model",
		Messages: []message.Message{
			{Role: message.RoleUser, Parts: []message.Part{{Kind: message.PartText, Text: text}}},
		},
	}
}

func TestRunSimpleCompletion(t *testing.T) {
	p := &mockProvider{
		streamFunc: chunkStream(
			provider.StreamChunk{Reasoning: "thinking"},
			provider.StreamChunk{Text: "Answer", Usage: &provider.Usage{TotalTokens: 7}},
			provider.StreamChunk{Done: true},
		),
	}
	o := New(p, Config{Logger: zerolog.Nop()})

	got, err := collectRun(t, o, userRequest("hi"))

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []events.Type{
		events.ResponseCreated,
		events.ThinkingDelta,
		events.ThinkingComplete,
		events.TextDelta,
		events.TextComplete,
		events.BlockComplete,
	}
	types := eventTypes(got)
	if len(types) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], types[i])
		}
	}

	final := got[len(got)-1]
	if final.Usage == nil || final.Usage.TotalTokens != 7 {
		t.Errorf("Block-complete should carry usage, got %+v", final.Usage)
	}
	if final.Metrics == nil || final.Metrics.CompletionDuration <= 0 {
		t.Errorf("Block-complete should carry metrics, got %+v", final.Metrics)
	}
	if got[0].RequestID == "" || got[0].RequestID != final.RequestID {
		t.Error("All events should share one request ID")
	}
}

func TestRunToolLoopGrowsTranscript(t *testing.T) {
	p := &mockProvider{
		streamFunc: chunkStream(
			provider.StreamChunk{Text: "calling a tool"},
			provider.StreamChunk{Done: true},
		),
	}
	exec := &mockExecutor{
		executeFunc: func(ctx context.Context, answer string, prior []tools.CallResult, round int) ([]tools.CallResult, error) {
			if round == 0 {
				return []tools.CallResult{{CallID: "call_0", Content: "tool output"}}, nil
			}
			return nil, nil
		},
	}
	o := New(p, Config{Tools: exec, Logger: zerolog.Nop()})

	_, err := collectRun(t, o, userRequest("go"))

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(p.requests) != 2 {
		t.Fatalf("Expected 2 provider rounds, got %d", len(p.requests))
	}

	first := p.requests[0].Messages
	second := p.requests[1].Messages
	if len(second) != len(first)+2 {
		t.Fatalf("Expected transcript to grow by assistant+tool, got %d -> %d", len(first), len(second))
	}
	for i := range first {
		if second[i].Role != first[i].Role || second[i].Content != first[i].Content {
			t.Errorf("Transcript entry %d was edited: %+v vs %+v", i, first[i], second[i])
		}
	}
	asst := second[len(second)-2]
	tool := second[len(second)-1]
	if asst.Role != "assistant" || asst.Content != "calling a tool" {
		t.Errorf("Expected raw assistant answer appended, got %+v", asst)
	}
	if tool.Role != "tool" || tool.Content != "tool output" || tool.ToolCallID != "call_0" {
		t.Errorf("Expected tool result appended, got %+v", tool)
	}
}

func TestRunToolLoopExhausted(t *testing.T) {
	p := &mockProvider{
		streamFunc: chunkStream(
			provider.StreamChunk{Text: "again"},
			provider.StreamChunk{Done: true},
		),
	}
	exec := &mockExecutor{
		executeFunc: func(ctx context.Context, answer string, prior []tools.CallResult, round int) ([]tools.CallResult, error) {
			return []tools.CallResult{{CallID: "call_0", Content: "more"}}, nil
		},
	}
	o := New(p, Config{Tools: exec, MaxToolRounds: 3, Logger: zerolog.Nop()})

	got, err := collectRun(t, o, userRequest("loop"))

	if !errors.Is(err, ErrToolLoopExhausted) {
		t.Fatalf("Expected ErrToolLoopExhausted, got %v", err)
	}
	if len(p.requests) != 3 {
		t.Errorf("Expected exactly 3 provider rounds, got %d", len(p.requests))
	}

	last := got[len(got)-1]
	if last.Type != events.ErrorOccurred || !errors.Is(last.Err, ErrToolLoopExhausted) {
		t.Errorf("Expected terminal error event, got %+v", last)
	}
	for _, evt := range got {
		if evt.Type == events.BlockComplete {
			t.Error("Exhausted loop must not emit block-complete")
		}
	}
}

func TestRunCancellation(t *testing.T) {
	p := &mockProvider{
		streamFunc: func(ctx context.Context, req provider.Request) <-chan provider.StreamChunk {
			ch := make(chan provider.StreamChunk, 1)
			ch <- provider.StreamChunk{Text: "partial"}
			// Channel deliberately left open: the stream never finishes.
			return ch
		},
	}
	o := New(p, Config{Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	var got []events.Event
	done := make(chan error, 1)
	go func() {
		done <- o.Run(ctx, userRequest("hi"), func(evt events.Event) {
			got = append(got, evt)
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	for _, evt := range got {
		if evt.Type == events.ErrorOccurred {
			t.Error("Cancellation must not emit an error event")
		}
		if evt.Type == events.BlockComplete {
			t.Error("Cancellation must not emit block-complete")
		}
	}
}

func TestRunStreamError(t *testing.T) {
	transport := errors.New("connection reset")
	p := &mockProvider{
		streamFunc: chunkStream(
			provider.StreamChunk{Text: "partial"},
			provider.StreamChunk{Err: transport},
		),
	}
	o := New(p, Config{Logger: zerolog.Nop()})

	got, err := collectRun(t, o, userRequest("hi"))

	if !errors.Is(err, transport) {
		t.Fatalf("Expected transport error, got %v", err)
	}

	last := got[len(got)-1]
	if last.Type != events.ErrorOccurred || !errors.Is(last.Err, transport) {
		t.Errorf("Expected error event before returning, got %+v", last)
	}
	for _, evt := range got {
		if evt.Type == events.BlockComplete {
			t.Error("Failed stream must not emit block-complete")
		}
	}
}

func TestRunToolErrorKeepsPartialResults(t *testing.T) {
	p := &mockProvider{
		streamFunc: chunkStream(
			provider.StreamChunk{Text: "mixed"},
			provider.StreamChunk{Done: true},
		),
	}
	toolErr := errors.New("tool two failed")
	exec := &mockExecutor{
		executeFunc: func(ctx context.Context, answer string, prior []tools.CallResult, round int) ([]tools.CallResult, error) {
			if round == 0 {
				return []tools.CallResult{{CallID: "call_0", Content: "partial ok"}}, toolErr
			}
			return nil, nil
		},
	}
	o := New(p, Config{Tools: exec, Logger: zerolog.Nop()})

	got, err := collectRun(t, o, userRequest("go"))

	if err != nil {
		t.Fatalf("Per-call failures should not terminate the request, got %v", err)
	}
	if len(p.requests) != 2 {
		t.Errorf("Partial results should still drive the next round, got %d rounds", len(p.requests))
	}

	sawErrEvent := false
	sawComplete := false
	for _, evt := range got {
		if evt.Type == events.ErrorOccurred && errors.Is(evt.Err, toolErr) {
			sawErrEvent = true
		}
		if evt.Type == events.BlockComplete {
			sawComplete = true
		}
	}
	if !sawErrEvent {
		t.Error("Expected an error event for the failed tool call")
	}
	if !sawComplete {
		t.Error("Expected the request to finish with block-complete")
	}
}

func TestPauseResume(t *testing.T) {
	p := &mockProvider{
		streamFunc: chunkStream(
			provider.StreamChunk{Text: "x"},
			provider.StreamChunk{Done: true},
		),
	}
	o := New(p, Config{Logger: zerolog.Nop()})

	o.Pause()
	if !o.Paused() {
		t.Fatal("Expected paused state")
	}

	ch := o.Stream(context.Background(), userRequest("hi"))

	select {
	case evt, ok := <-ch:
		// Only the response-created event precedes the suspension point.
		if ok && evt.Type != events.ResponseCreated {
			t.Fatalf("Expected request suspended after creation, got %s", evt.Type)
		}
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("Paused request should not progress")
		}
		t.Fatal("Paused request channel closed early")
	case <-time.After(50 * time.Millisecond):
	}

	o.Resume()
	if o.Paused() {
		t.Error("Expected unpaused state")
	}

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // resumed to completion
			}
		case <-deadline:
			t.Fatal("Resumed request did not complete")
		}
	}
}

func TestStopDelegatesToProvider(t *testing.T) {
	p := &mockProvider{streamFunc: chunkStream()}
	o := New(p, Config{Logger: zerolog.Nop()})

	o.Stop()

	if !p.stopped {
		t.Error("Stop should cancel the provider generation")
	}
}
