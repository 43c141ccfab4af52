// internal/provider/anthropic.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"conduit/internal/message"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// AnthropicProvider speaks the Anthropic messages protocol, including
// extended-thinking blocks and server-side web search results.
type AnthropicProvider struct {
	base
	apiKey  string
	baseURL string
	client  *RetryableClient
	cancel  context.CancelFunc
	mu      sync.Mutex
}

func NewAnthropic(apiKey, baseURL string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicProvider{
		base: newBase(Info{
			ID:     "anthropic",
			Name:   "Anthropic",
			Vendor: VendorAnthropic,
			Caps: message.Capabilities{
				Vision:            true,
				StructuredContent: true,
				StrictAlternation: true,
			},
		}),
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  NewRetryableClient(DefaultRetryConfig()),
	}
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
	Stream      bool               `json:"stream"`
	Thinking    *anthropicThinking `json:"thinking,omitempty"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

func (p *AnthropicProvider) buildRequest(req Request) anthropicRequest {
	out := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = 4096
	}
	if req.Reasoning != nil && req.Reasoning.BudgetTokens > 0 {
		out.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: req.Reasoning.BudgetTokens}
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case string(message.RoleSystem), string(message.RoleDeveloper):
			system = append(system, m.PlainText())
		case string(message.RoleTool):
			// Tool results travel as user turns on this protocol.
			out.Messages = append(out.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.PlainText()}},
			})
		default:
			out.Messages = append(out.Messages, anthropicMessage{
				Role:    m.Role,
				Content: convertAnthropicContent(m),
			})
		}
	}
	out.System = strings.Join(system, "\n\n")
	return out
}

func convertAnthropicContent(m message.RequestMessage) []anthropicContent {
	if m.Parts == nil {
		return []anthropicContent{{Type: "text", Text: m.Content}}
	}
	out := make([]anthropicContent, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch part.Type {
		case "text":
			out = append(out, anthropicContent{Type: "text", Text: part.Text})
		case "image_url":
			out = append(out, anthropicContent{Type: "image", Source: imageSource(part.ImageURL)})
		}
	}
	return out
}

// imageSource converts a data URL or remote URL into the source block
// shape the messages API expects.
func imageSource(url string) *anthropicSource {
	if rest, ok := strings.CutPrefix(url, "data:"); ok {
		mediaType, data, found := strings.Cut(rest, ";base64,")
		if found {
			return &anthropicSource{Type: "base64", MediaType: mediaType, Data: data}
		}
	}
	return &anthropicSource{Type: "url", URL: url}
}

func (p *AnthropicProvider) Stream(ctx context.Context, req Request) <-chan StreamChunk {
	ch := make(chan StreamChunk, 100)

	go func() {
		defer close(ch)
		p.setStatus(StatusStreaming)
		defer p.setStatus(StatusIdle)

		reqCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		p.mu.Lock()
		p.cancel = cancel
		p.mu.Unlock()

		req.Stream = true
		body, err := json.Marshal(p.buildRequest(req))
		if err != nil {
			ch <- StreamChunk{Err: fmt.Errorf("marshal: %w", err)}
			return
		}

		httpReq, err := NewRequestWithBody(reqCtx, "POST", p.baseURL+"/messages", body)
		if err != nil {
			ch <- StreamChunk{Err: fmt.Errorf("request: %w", err)}
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", p.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)

		resp, err := p.client.DoWithRetry(reqCtx, httpReq)
		if err != nil {
			ch <- StreamChunk{Err: fmt.Errorf("do: %w", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			errBody, _ := io.ReadAll(resp.Body)
			ch <- StreamChunk{Err: fmt.Errorf("API error %d: %s", resp.StatusCode, string(errBody))}
			return
		}

		blockTypes := map[int]string{}
		var results []WebResult
		usage := &Usage{}

		err = consumeSSE(reqCtx, resp.Body, func(_, data string) error {
			var evt struct {
				Type  string `json:"type"`
				Index int    `json:"index"`
				Delta struct {
					Type       string `json:"type"`
					Text       string `json:"text"`
					Thinking   string `json:"thinking"`
					StopReason string `json:"stop_reason"`
				} `json:"delta"`
				ContentBlock struct {
					Type    string `json:"type"`
					Content []struct {
						Type  string `json:"type"`
						URL   string `json:"url"`
						Title string `json:"title"`
					} `json:"content"`
				} `json:"content_block"`
				Message struct {
					Usage struct {
						InputTokens int `json:"input_tokens"`
					} `json:"usage"`
				} `json:"message"`
				Usage struct {
					OutputTokens int `json:"output_tokens"`
				} `json:"usage"`
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				return nil
			}

			switch evt.Type {
			case "message_start":
				usage.PromptTokens = evt.Message.Usage.InputTokens

			case "content_block_start":
				blockTypes[evt.Index] = evt.ContentBlock.Type
				if evt.ContentBlock.Type == "web_search_tool_result" {
					for _, r := range evt.ContentBlock.Content {
						if r.Type == "web_search_result" {
							results = append(results, WebResult{URL: r.URL, Title: r.Title})
						}
					}
				}

			case "content_block_delta":
				switch evt.Delta.Type {
				case "thinking_delta":
					if evt.Delta.Thinking != "" {
						ch <- StreamChunk{Reasoning: evt.Delta.Thinking}
					}
				case "text_delta":
					if evt.Delta.Text != "" {
						ch <- StreamChunk{Text: evt.Delta.Text}
					}
				}

			case "content_block_stop":
				if blockTypes[evt.Index] == "thinking" {
					ch <- StreamChunk{ReasoningEnd: true}
				}

			case "message_delta":
				usage.CompletionTokens = evt.Usage.OutputTokens
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				ch <- StreamChunk{Usage: &Usage{
					PromptTokens:     usage.PromptTokens,
					CompletionTokens: usage.CompletionTokens,
					TotalTokens:      usage.TotalTokens,
				}}

			case "message_stop":
				var search *SearchResults
				if len(results) > 0 {
					search = &SearchResults{Vendor: VendorAnthropic, Results: results}
				}
				ch <- StreamChunk{Done: true, Search: search}
				return errStopStream

			case "error":
				return fmt.Errorf("%s", evt.Error.Message)
			}
			return nil
		})
		if err != nil && err != errStopStream {
			if reqCtx.Err() != nil {
				return
			}
			ch <- StreamChunk{Err: fmt.Errorf("stream: %w", err)}
		}
	}()

	return ch
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	req.Stream = false
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	httpReq, err := NewRequestWithBody(ctx, "POST", p.baseURL+"/messages", body)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.DoWithRetry(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return &Completion{
		Content: text.String(),
		Usage: &Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

func (p *AnthropicProvider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
