// internal/provider/openai.go
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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider speaks the OpenAI chat-completions protocol, which also
// covers compatible vendors (DeepSeek-style reasoning_content included)
// via a custom base URL.
type OpenAIProvider struct {
	base
	apiKey  string
	baseURL string
	client  *RetryableClient
	cancel  context.CancelFunc
	mu      sync.Mutex
}

func NewOpenAI(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		base: newBase(Info{
			ID:     "openai",
			Name:   "OpenAI",
			Vendor: VendorOpenAI,
			Caps: message.Capabilities{
				Vision:            true,
				StructuredContent: true,
				DeveloperRole:     true,
			},
		}),
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  NewRetryableClient(DefaultRetryConfig()),
	}
}

type openAIRequest struct {
	Model           string                   `json:"model"`
	Messages        []message.RequestMessage `json:"messages"`
	Temperature     float64                  `json:"temperature,omitempty"`
	TopP            float64                  `json:"top_p,omitempty"`
	MaxTokens       int                      `json:"max_completion_tokens,omitempty"`
	Stream          bool                     `json:"stream"`
	StreamOptions   *openAIStreamOptions     `json:"stream_options,omitempty"`
	ReasoningEffort string                   `json:"reasoning_effort,omitempty"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *openAIUsage) toUsage() *Usage {
	return &Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func (p *OpenAIProvider) buildRequest(req Request) openAIRequest {
	out := openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if req.Stream {
		out.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}
	if req.Reasoning != nil {
		out.ReasoningEffort = req.Reasoning.Effort
	}
	return out
}

func (p *OpenAIProvider) Stream(ctx context.Context, req Request) <-chan StreamChunk {
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

		httpReq, err := NewRequestWithBody(reqCtx, "POST", p.baseURL+"/chat/completions", body)
		if err != nil {
			ch <- StreamChunk{Err: fmt.Errorf("request: %w", err)}
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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

		var annotations []Annotation
		err = consumeSSE(reqCtx, resp.Body, func(_, data string) error {
			if data == "[DONE]" {
				var search *SearchResults
				if len(annotations) > 0 {
					search = &SearchResults{Vendor: VendorOpenAI, Annotations: annotations}
				}
				ch <- StreamChunk{Done: true, Search: search}
				return errStopStream
			}

			var sse struct {
				Choices []struct {
					Delta struct {
						Content          string `json:"content"`
						ReasoningContent string `json:"reasoning_content"`
						Annotations      []struct {
							Type        string `json:"type"`
							URLCitation struct {
								URL   string `json:"url"`
								Title string `json:"title"`
							} `json:"url_citation"`
						} `json:"annotations"`
					} `json:"delta"`
					FinishReason string `json:"finish_reason"`
				} `json:"choices"`
				Usage *openAIUsage `json:"usage"`
			}
			if err := json.Unmarshal([]byte(data), &sse); err != nil {
				return nil // tolerate malformed keep-alive frames
			}

			var chunk StreamChunk
			if sse.Usage != nil {
				chunk.Usage = sse.Usage.toUsage()
			}
			for _, choice := range sse.Choices {
				chunk.Text += choice.Delta.Content
				chunk.Reasoning += choice.Delta.ReasoningContent
				for _, a := range choice.Delta.Annotations {
					if a.Type == "url_citation" {
						annotations = append(annotations, Annotation{
							URL:   a.URLCitation.URL,
							Title: a.URLCitation.Title,
						})
					}
				}
			}
			if chunk.Text != "" || chunk.Reasoning != "" || chunk.Usage != nil {
				ch <- chunk
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

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	req.Stream = false
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	httpReq, err := NewRequestWithBody(ctx, "POST", p.baseURL+"/chat/completions", body)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *openAIUsage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	out := &Completion{Content: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		out.Usage = parsed.Usage.toUsage()
	}
	return out, nil
}

func (p *OpenAIProvider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
