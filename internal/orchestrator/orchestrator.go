// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"conduit/internal/attach"
	"conduit/internal/citation"
	"conduit/internal/events"
	"conduit/internal/knowledge"
	"conduit/internal/message"
	"conduit/internal/provider"
	"conduit/internal/stream"
	"conduit/internal/tools"
)

// Common error types
var (
	// ErrToolLoopExhausted is reported when the tool-call loop reaches
	// the configured maximum round count.
	ErrToolLoopExhausted = errors.New("tool loop exhausted")
)

const defaultMaxToolRounds = 5

// Config carries the orchestrator's collaborators and limits.
type Config struct {
	Tools         tools.Executor
	Files         attach.Reader
	MaxToolRounds int
	Logger        zerolog.Logger
}

// Request is one top-level completion request.
type Request struct {
	Model         string
	Messages      []message.Message
	Temperature   float64
	TopP          float64
	MaxTokens     int
	Reasoning     *provider.ReasoningOptions
	KnowledgeHits []knowledge.Hit
}

// Orchestrator drives one streaming completion: normalize messages,
// consume the chunk stream, run the bounded tool-call loop, then harvest
// citations and emit the terminal block-complete event.
type Orchestrator struct {
	provider  provider.Provider
	tools     tools.Executor
	files     attach.Reader
	maxRounds int
	log       zerolog.Logger

	pauseMu sync.Mutex
	paused  bool
	resume  chan struct{}
}

func New(p provider.Provider, cfg Config) *Orchestrator {
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}
	return &Orchestrator{
		provider:  p,
		tools:     cfg.Tools,
		files:     cfg.Files,
		maxRounds: maxRounds,
		log:       cfg.Logger,
	}
}

// requestState is the per-request mutable state. It is owned exclusively
// by the task executing the request and discarded when it terminates.
type requestState struct {
	id          string
	tracker     *stream.Tracker
	transcript  []message.RequestMessage
	toolResults []tools.CallResult
	search      *provider.SearchResults
}

// Stream runs the request in its own goroutine, delivering events on the
// returned channel. The channel is closed when the request terminates;
// terminal failures are also delivered as error events.
func (o *Orchestrator) Stream(ctx context.Context, req Request) <-chan events.Event {
	ch := make(chan events.Event, 100)
	go func() {
		defer close(ch)
		sink := func(evt events.Event) {
			select {
			case ch <- evt:
			case <-ctx.Done():
			}
		}
		if err := o.Run(ctx, req, sink); err != nil {
			o.log.Debug().Err(err).Msg("request terminated with error")
		}
	}()
	return ch
}

// Run executes the request synchronously, emitting events to sink and
// returning the terminal error, if any. Cancellation surfaces as
// context.Canceled without an error event; every other failure emits an
// error event before propagating. Events already delivered stay valid -
// there is no rollback.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink events.Sink) error {
	state := &requestState{
		id:      uuid.NewString(),
		tracker: stream.NewTracker(),
	}

	caps := o.provider.Info().Caps
	normalizer := message.NewNormalizer(caps, o.files)
	state.transcript = normalizer.Normalize(req.Messages)

	o.log.Debug().
		Str("request_id", state.id).
		Str("model", req.Model).
		Int("messages", len(state.transcript)).
		Msg("starting completion")

	sink(events.Event{Type: events.ResponseCreated, RequestID: state.id})

	return o.round(ctx, state, req, 0, sink)
}

// round issues one completion request, consumes its stream, then either
// finalizes or recurses for the next tool-loop round.
func (o *Orchestrator) round(ctx context.Context, state *requestState, req Request, round int, sink events.Sink) error {
	chunks := o.provider.Stream(ctx, provider.Request{
		Model:       req.Model,
		Messages:    state.transcript,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Reasoning:   req.Reasoning,
		Stream:      true,
	})

	splitter := stream.NewSplitter(state.id, round, state.tracker, sink)

	for !splitter.Done() {
		if err := o.waitIfPaused(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			// Cancellation: stop consuming immediately, skip this
			// round's terminal events, surface the error to the caller.
			return ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				// Stream closed without a finish signal; treat as done
				// so the buffers are not silently dropped.
				splitter.Feed(provider.StreamChunk{Done: true})
				continue
			}
			if chunk.Err != nil {
				sink(events.Event{Type: events.ErrorOccurred, RequestID: state.id, Round: round, Err: chunk.Err})
				return fmt.Errorf("stream: %w", chunk.Err)
			}
			splitter.Feed(chunk)
		}
	}

	if s := splitter.Search(); s != nil {
		state.search = s
	}

	answer := splitter.Answer()

	var results []tools.CallResult
	if o.tools != nil {
		var execErr error
		results, execErr = o.tools.Execute(ctx, answer, state.toolResults, round)
		if execErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Per-call failures surface as an error event; results
			// already obtained are kept.
			sink(events.Event{Type: events.ErrorOccurred, RequestID: state.id, Round: round, Err: execErr})
		}
	}

	if len(results) == 0 {
		o.finalize(state, round, req.KnowledgeHits, sink)
		return nil
	}

	o.log.Debug().
		Str("request_id", state.id).
		Int("round", round).
		Int("tool_results", len(results)).
		Msg("tool calls executed")

	state.toolResults = append(state.toolResults, results...)

	// Pure append: the assistant's raw answer, then one tool message per
	// result. Existing transcript entries are never edited.
	state.transcript = append(state.transcript, message.RequestMessage{
		Role:    string(message.RoleAssistant),
		Content: answer,
	})
	for _, r := range results {
		state.transcript = append(state.transcript, message.RequestMessage{
			Role:       string(message.RoleTool),
			Content:    r.Content,
			ToolCallID: r.CallID,
		})
	}

	if round+1 >= o.maxRounds {
		err := fmt.Errorf("%w after %d rounds", ErrToolLoopExhausted, o.maxRounds)
		sink(events.Event{Type: events.ErrorOccurred, RequestID: state.id, Round: round, Err: err})
		return err
	}

	return o.round(ctx, state, req, round+1, sink)
}

// finalize harvests citations and emits the terminal block-complete
// event carrying usage and metrics.
func (o *Orchestrator) finalize(state *requestState, round int, hits []knowledge.Hit, sink events.Sink) {
	state.tracker.MarkCompleted()

	citations := citation.Harvest(state.search, hits)
	if len(citations) > 0 {
		sink(events.Event{
			Type:      events.WebSearchDone,
			RequestID: state.id,
			Round:     round,
			Citations: citations,
		})
	}

	metrics := state.tracker.Metrics()
	sink(events.Event{
		Type:      events.BlockComplete,
		RequestID: state.id,
		Round:     round,
		Usage:     state.tracker.Usage(),
		Metrics:   &metrics,
		Citations: citations,
	})
}

// Pause halts chunk consumption at the next suspension point without
// tearing down the underlying connection. Distinct from cancellation.
func (o *Orchestrator) Pause() {
	o.pauseMu.Lock()
	defer o.pauseMu.Unlock()
	if !o.paused {
		o.paused = true
		o.resume = make(chan struct{})
	}
}

// Resume lets a paused request continue consuming chunks.
func (o *Orchestrator) Resume() {
	o.pauseMu.Lock()
	defer o.pauseMu.Unlock()
	if o.paused {
		o.paused = false
		close(o.resume)
	}
}

// Paused reports whether the orchestrator is currently paused.
func (o *Orchestrator) Paused() bool {
	o.pauseMu.Lock()
	defer o.pauseMu.Unlock()
	return o.paused
}

func (o *Orchestrator) waitIfPaused(ctx context.Context) error {
	o.pauseMu.Lock()
	paused, resume := o.paused, o.resume
	o.pauseMu.Unlock()

	if !paused {
		return nil
	}
	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels any in-flight provider generation.
func (o *Orchestrator) Stop() {
	o.provider.Stop()
}
