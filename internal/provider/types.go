// internal/provider/types.go
package provider

import "conduit/internal/message"

// Vendor identifies the upstream API family a payload came from.
type Vendor string

const (
	VendorOpenAI    Vendor = "openai"
	VendorAnthropic Vendor = "anthropic"
	VendorGemini    Vendor = "gemini"
)

// StreamChunk represents one increment of a streaming completion.
// A chunk may carry reasoning-channel text, answer text, a finish signal,
// a usage snapshot, or a vendor side payload - any combination, all optional.
type StreamChunk struct {
	Reasoning    string // reasoning/thinking channel text
	ReasoningEnd bool   // explicit end-of-thinking marker from the vendor
	Text         string // ordinary answer text
	Done         bool   // finish signal
	Usage        *Usage
	Search       *SearchResults
	Image        *ImageData
	Err          error
}

// Usage is a token accounting snapshot. Vendors send it on the final
// chunk or alongside deltas; the last one seen wins.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// SearchResults is the vendor-tagged web search side payload. Exactly one
// of the shape fields is populated, matching the Vendor tag.
type SearchResults struct {
	Vendor      Vendor
	Annotations []Annotation     // openai url_citation annotations
	Results     []WebResult      // anthropic web_search_tool_result content
	Grounding   []GroundingChunk // gemini groundingMetadata chunks
	URLs        []string         // bare URL lists from legacy vendors
}

// Annotation is an OpenAI-style url_citation annotation.
type Annotation struct {
	URL   string
	Title string
}

// WebResult is an Anthropic-style web search result entry.
type WebResult struct {
	URL     string
	Title   string
	Snippet string
}

// GroundingChunk is a Gemini grounding chunk (web variant).
type GroundingChunk struct {
	URI   string
	Title string
}

// ImageData carries generated image output from image-capable models.
type ImageData struct {
	MimeType string
	Base64   string // inline payload, empty when URL is set
	URL      string
}

// Info contains identity and capability information for a provider.
type Info struct {
	ID     string
	Name   string
	Vendor Vendor
	Caps   message.Capabilities
}

// Status represents the current state of a provider.
type Status int

const (
	StatusIdle Status = iota
	StatusStreaming
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStreaming:
		return "streaming"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
