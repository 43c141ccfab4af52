// internal/provider/gemini.go
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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider speaks the Gemini generateContent protocol, including
// thought parts and grounding metadata from Google Search.
type GeminiProvider struct {
	base
	apiKey  string
	baseURL string
	client  *RetryableClient
	cancel  context.CancelFunc
	mu      sync.Mutex
}

func NewGemini(apiKey, baseURL string) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiProvider{
		base: newBase(Info{
			ID:     "gemini",
			Name:   "Gemini",
			Vendor: VendorGemini,
			Caps: message.Capabilities{
				Vision:            true,
				StructuredContent: true,
			},
		}),
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  NewRetryableClient(DefaultRetryConfig()),
	}
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	Thought    bool            `json:"thought,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature,omitempty"`
		TopP            float64 `json:"topP,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		ThinkingConfig  *struct {
			IncludeThoughts bool `json:"includeThoughts"`
		} `json:"thinkingConfig,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason      string `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GeminiProvider) buildRequest(req Request) geminiRequest {
	var out geminiRequest
	out.GenerationConfig.Temperature = req.Temperature
	out.GenerationConfig.TopP = req.TopP
	out.GenerationConfig.MaxOutputTokens = req.MaxTokens
	if req.Reasoning != nil {
		out.GenerationConfig.ThinkingConfig = &struct {
			IncludeThoughts bool `json:"includeThoughts"`
		}{IncludeThoughts: true}
	}

	var system []geminiPart
	for _, m := range req.Messages {
		switch m.Role {
		case string(message.RoleSystem), string(message.RoleDeveloper):
			system = append(system, geminiPart{Text: m.PlainText()})
		case string(message.RoleAssistant):
			out.Contents = append(out.Contents, geminiContent{Role: "model", Parts: convertGeminiParts(m)})
		default:
			// user and tool turns both travel as user content
			out.Contents = append(out.Contents, geminiContent{Role: "user", Parts: convertGeminiParts(m)})
		}
	}
	if len(system) > 0 {
		out.SystemInstruction = &geminiContent{Parts: system}
	}
	return out
}

func convertGeminiParts(m message.RequestMessage) []geminiPart {
	if m.Parts == nil {
		return []geminiPart{{Text: m.Content}}
	}
	out := make([]geminiPart, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch part.Type {
		case "text":
			out = append(out, geminiPart{Text: part.Text})
		case "image_url":
			if rest, ok := strings.CutPrefix(part.ImageURL, "data:"); ok {
				if mimeType, data, found := strings.Cut(rest, ";base64,"); found {
					out = append(out, geminiPart{InlineData: &geminiBlobPart{MimeType: mimeType, Data: data}})
				}
			}
		}
	}
	return out
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request) <-chan StreamChunk {
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

		body, err := json.Marshal(p.buildRequest(req))
		if err != nil {
			ch <- StreamChunk{Err: fmt.Errorf("marshal: %w", err)}
			return
		}

		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, req.Model)
		httpReq, err := NewRequestWithBody(reqCtx, "POST", url, body)
		if err != nil {
			ch <- StreamChunk{Err: fmt.Errorf("request: %w", err)}
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", p.apiKey)

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

		var grounding []GroundingChunk

		err = consumeSSE(reqCtx, resp.Body, func(_, data string) error {
			var parsed geminiResponse
			if err := json.Unmarshal([]byte(data), &parsed); err != nil {
				return nil
			}

			var chunk StreamChunk
			if parsed.UsageMetadata != nil {
				chunk.Usage = &Usage{
					PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
					CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
					TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
				}
			}
			for _, cand := range parsed.Candidates {
				for _, part := range cand.Content.Parts {
					if part.Thought {
						chunk.Reasoning += part.Text
					} else {
						chunk.Text += part.Text
					}
				}
				if cand.GroundingMetadata != nil {
					for _, g := range cand.GroundingMetadata.GroundingChunks {
						grounding = append(grounding, GroundingChunk{URI: g.Web.URI, Title: g.Web.Title})
					}
				}
			}
			if chunk.Text != "" || chunk.Reasoning != "" || chunk.Usage != nil {
				ch <- chunk
			}
			return nil
		})
		if err != nil {
			if reqCtx.Err() != nil {
				return
			}
			ch <- StreamChunk{Err: fmt.Errorf("stream: %w", err)}
			return
		}

		var search *SearchResults
		if len(grounding) > 0 {
			search = &SearchResults{Vendor: VendorGemini, Grounding: grounding}
		}
		ch <- StreamChunk{Done: true, Search: search}
	}()

	return ch
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, req.Model)
	httpReq, err := NewRequestWithBody(ctx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.DoWithRetry(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	out := &Completion{Content: text.String()}
	if parsed.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

func (p *GeminiProvider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
