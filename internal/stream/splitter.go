// internal/stream/splitter.go
package stream

import (
	"strings"
	"time"

	"conduit/internal/events"
	"conduit/internal/provider"
)

// End-of-thinking sentinels for models that emit reasoning inline on the
// answer channel instead of a dedicated reasoning field.
const (
	openMarker  = "<think>"
	closeMarker = "</think>"
)

// Phase is the splitter's position in the chunk stream.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseReasoning
	PhaseAnswering
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseReasoning:
		return "reasoning"
	case PhaseAnswering:
		return "answering"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Splitter consumes one round's chunk stream and separates reasoning
// output from answer output, emitting timed delta events as it goes.
// At most one of the two buffers accumulates text at any instant.
type Splitter struct {
	requestID string
	round     int
	tracker   *Tracker
	sink      events.Sink

	phase      Phase
	reasoning  string
	answer     strings.Builder
	inline     bool   // reasoning arrives on the answer channel between markers
	pending    string // withheld fragment tail that may open the close marker
	thinkStart time.Time

	search    *provider.SearchResults
	image     *provider.ImageData
	imageSeen bool
}

func NewSplitter(requestID string, round int, tracker *Tracker, sink events.Sink) *Splitter {
	return &Splitter{
		requestID: requestID,
		round:     round,
		tracker:   tracker,
		sink:      sink,
		phase:     PhaseWaiting,
	}
}

// Phase returns the splitter's current phase.
func (s *Splitter) Phase() Phase {
	return s.phase
}

// Done reports whether the finish signal has been consumed.
func (s *Splitter) Done() bool {
	return s.phase == PhaseDone
}

// Answer returns the accumulated answer text for tool-call scanning.
func (s *Splitter) Answer() string {
	return s.answer.String()
}

// Search returns the vendor search payload seen on this round, if any.
func (s *Splitter) Search() *provider.SearchResults {
	return s.search
}

// Image returns the last image payload seen on this round, if any.
func (s *Splitter) Image() *provider.ImageData {
	return s.image
}

// Feed consumes one chunk, advancing the state machine and emitting
// events. Chunks after the finish signal are ignored.
func (s *Splitter) Feed(chunk provider.StreamChunk) {
	if s.phase == PhaseDone {
		return
	}

	s.tracker.ObserveUsage(chunk.Usage)
	if chunk.Search != nil {
		s.search = chunk.Search
	}
	if chunk.Image != nil {
		if !s.imageSeen {
			s.imageSeen = true
			s.emit(events.Event{Type: events.ImageCreated})
		}
		s.image = chunk.Image
	}

	switch s.phase {
	case PhaseWaiting:
		s.feedWaiting(chunk)
	case PhaseReasoning:
		s.feedReasoning(chunk)
	case PhaseAnswering:
		if chunk.Text != "" {
			s.appendAnswer(chunk.Text)
		}
	}

	if chunk.Done {
		s.finish()
	}
}

func (s *Splitter) feedWaiting(chunk provider.StreamChunk) {
	if chunk.Reasoning != "" {
		s.beginReasoning(false)
		s.appendReasoning(chunk.Reasoning)
		return
	}
	if chunk.Text == "" {
		return
	}
	if rest, ok := strings.CutPrefix(chunk.Text, openMarker); ok {
		// Inline-thinking model: content opens with the think marker.
		s.beginReasoning(true)
		if rest != "" {
			s.consumeInline(rest)
		}
		return
	}
	s.tracker.MarkFirstToken()
	s.tracker.MarkFirstContent()
	s.phase = PhaseAnswering
	s.appendAnswer(chunk.Text)
}

func (s *Splitter) feedReasoning(chunk provider.StreamChunk) {
	if chunk.Reasoning != "" {
		s.appendReasoning(chunk.Reasoning)
	}

	if chunk.ReasoningEnd {
		s.completeReasoning()
		return
	}

	if chunk.Text == "" {
		return
	}

	if s.inline {
		s.consumeInline(chunk.Text)
		return
	}

	// Ordinary answer text immediately after reasoning-bearing chunks
	// ends the reasoning phase.
	s.completeReasoning()
	s.appendAnswer(chunk.Text)
}

// consumeInline routes answer-channel text while inline reasoning is
// open, watching for the close marker across fragment boundaries. A
// fragment tail that could be the start of the marker is withheld and
// reconsidered with the next fragment, so marker bytes never reach a
// reasoning delta and the reasoning-complete text stays the exact
// concatenation of the deltas.
func (s *Splitter) consumeInline(frag string) {
	window := s.pending + frag
	s.pending = ""

	idx := strings.Index(window, closeMarker)
	if idx < 0 {
		keep := markerOverlap(window)
		if head := window[:len(window)-keep]; head != "" {
			s.appendReasoning(head)
		}
		s.pending = window[len(window)-keep:]
		return
	}

	if head := window[:idx]; head != "" {
		s.appendReasoning(head)
	}
	rest := window[idx+len(closeMarker):]

	s.completeReasoning()
	if rest != "" {
		s.appendAnswer(rest)
	}
}

// markerOverlap returns the length of the longest proper suffix of text
// that is a prefix of the close marker.
func markerOverlap(text string) int {
	longest := len(closeMarker) - 1
	if longest > len(text) {
		longest = len(text)
	}
	for k := longest; k > 0; k-- {
		if strings.HasPrefix(closeMarker, text[len(text)-k:]) {
			return k
		}
	}
	return 0
}

func (s *Splitter) beginReasoning(inline bool) {
	s.phase = PhaseReasoning
	s.inline = inline
	s.thinkStart = time.Now()
	s.tracker.MarkFirstToken()
}

func (s *Splitter) appendReasoning(text string) {
	s.reasoning += text
	s.emit(events.Event{
		Type:    events.ThinkingDelta,
		Text:    text,
		Elapsed: time.Since(s.thinkStart),
	})
}

// completeReasoning emits exactly one reasoning-complete event with the
// full buffer and elapsed duration, then clears the buffer.
func (s *Splitter) completeReasoning() {
	if s.pending != "" {
		// The stream ended before the withheld tail resolved; it was
		// reasoning text after all.
		s.appendReasoning(s.pending)
		s.pending = ""
	}
	d := time.Since(s.thinkStart)
	s.tracker.AddThinking(d)
	s.emit(events.Event{
		Type:    events.ThinkingComplete,
		Text:    s.reasoning,
		Elapsed: d,
	})
	s.reasoning = ""
	s.inline = false
	s.phase = PhaseAnswering
}

func (s *Splitter) appendAnswer(text string) {
	s.tracker.MarkFirstContent()
	s.answer.WriteString(text)
	s.emit(events.Event{Type: events.TextDelta, Text: text})
}

func (s *Splitter) finish() {
	if s.phase == PhaseReasoning {
		// Stream ended while still thinking; close the reasoning round
		// so the buffer is never silently dropped.
		s.completeReasoning()
	}
	s.phase = PhaseDone
	s.emit(events.Event{Type: events.TextComplete, Text: s.answer.String()})
	if s.image != nil {
		s.emit(events.Event{Type: events.ImageComplete, Image: s.image})
	}
}

func (s *Splitter) emit(evt events.Event) {
	evt.RequestID = s.requestID
	evt.Round = s.round
	s.sink(evt)
}
