// internal/provider/gemini_test.go
package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"conduit/internal/message"
)

func TestGeminiStreamThoughtParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("x-goog-api-key"))
		}
		if !strings.Contains(r.URL.Path, "gemini-test:streamGenerateContent") {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, data := range []string{
			`{"candidates":[{"content":{"parts":[{"text":"musing","thought":true}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"text":"Answer"}],"role":"model"},"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://g.example.com","title":"G"}}]}}],"usageMetadata":{"promptTokenCount":2,"candidatesTokenCount":3,"totalTokenCount":5}}`,
		} {
			w.Write([]byte("data: " + data + "\n\n"))
		}
	}))
	defer server.Close()

	p := NewGemini("test-key", server.URL)
	chunks := drain(p.Stream(context.Background(), Request{Model: "gemini-test"}))

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Reasoning != "musing" || chunks[0].Text != "" {
		t.Errorf("Thought parts belong on the reasoning channel, got %+v", chunks[0])
	}
	if chunks[1].Text != "Answer" || chunks[1].Usage == nil || chunks[1].Usage.TotalTokens != 5 {
		t.Errorf("Unexpected answer chunk %+v", chunks[1])
	}

	final := chunks[2]
	if !final.Done || final.Search == nil || final.Search.Vendor != VendorGemini {
		t.Fatalf("Expected grounding on the finish chunk, got %+v", final)
	}
	if len(final.Search.Grounding) != 1 || final.Search.Grounding[0].URI != "https://g.example.com" {
		t.Errorf("Unexpected grounding %+v", final.Search.Grounding)
	}
}

func TestGeminiCompleteSkipsThoughts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hidden","thought":true},{"text":"visible"}]}}]}`))
	}))
	defer server.Close()

	p := NewGemini("test-key", server.URL)
	out, err := p.Complete(context.Background(), Request{Model: "gemini-test"})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Content != "visible" {
		t.Errorf("Thought parts must not leak into content, got %q", out.Content)
	}
}

func TestGeminiCompleteEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	p := NewGemini("test-key", server.URL)
	_, err := p.Complete(context.Background(), Request{Model: "gemini-test"})

	if err != ErrEmptyResponse {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiBuildRequestRoles(t *testing.T) {
	p := NewGemini("test-key", "")
	req := p.buildRequest(Request{
		Messages: []message.RequestMessage{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "tool", Content: "result"},
		},
	})

	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be brief" {
		t.Error("Expected system hoisted into systemInstruction")
	}
	if len(req.Contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(req.Contents))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, want := range wantRoles {
		if req.Contents[i].Role != want {
			t.Errorf("Content %d: expected role %q, got %q", i, want, req.Contents[i].Role)
		}
	}
}
