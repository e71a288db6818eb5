package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

func TestFormatPipelineOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"ai operation step", `[{"stepType":"Input","output":"x"},{"stepType":"AIOperation","output":"  answer  "}]`, "answer"},
		{"last step fallback", `[{"stepType":"Input","output":"first"},{"stepType":"Output","output":"last"}]`, "last"},
		{"empty list", `[]`, ""},
		{"result object", `{"result":"done"}`, "done"},
		{"non-string result", `{"result":{"a":1}}`, `{"a":1}`},
		{"object without result", `{"other":1}`, `{"other":1}`},
		{"json string", `"plain"`, "plain"},
		{"raw text", `not json`, "not json"},
		{"missing output", `[{"stepType":"AIOperation"}]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPipelineOutput([]byte(tt.raw)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPipelineComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("expected X-API-KEY test-key, got %q", r.Header.Get("X-API-KEY"))
		}
		var req pipelineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.UserInput != "hello" {
			t.Errorf("expected userInput hello, got %q", req.UserInput)
		}
		if req.AsyncOutput {
			t.Error("expected asyncOutput false")
		}
		if req.Context.Metadata.Source != "browser_extension" {
			t.Errorf("unexpected source %q", req.Context.Metadata.Source)
		}
		if req.Context.Metadata.URL != "https://example.com" || req.Context.Metadata.Title != "Example" {
			t.Errorf("unexpected metadata %+v", req.Context.Metadata)
		}
		if len(req.Context.PreviousMessages) != 2 {
			t.Errorf("expected 2 previous messages, got %d", len(req.Context.PreviousMessages))
		}
		w.Write([]byte(`[{"stepType":"AIOperation","output":"world"}]`))
	}))
	defer server.Close()

	p := NewPipeline(server.URL, "test-key", time.Second, time.Second, slog.Default())
	got, err := p.Complete(context.Background(), Prompt{
		UserInput: "hello",
		History:   []chat.Turn{{Role: chat.RoleUser, Content: "a"}, {Role: chat.RoleAssistant, Content: "b"}},
		Page:      &chat.PageContext{URL: "https://example.com", Title: "Example"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "world" {
		t.Errorf("expected world, got %q", got)
	}
}

func TestPipelineComplete_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer server.Close()

	p := NewPipeline(server.URL, "k", time.Second, time.Second, slog.Default())
	_, err := p.Complete(context.Background(), Prompt{UserInput: "hi"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", se.Status)
	}
}

func TestPipelineComplete_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewPipeline(server.URL, "k", time.Second, 50*time.Millisecond, slog.Default())
	_, err := p.Complete(context.Background(), Prompt{UserInput: "hi"})
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("expected ErrReadTimeout, got %v", err)
	}
}

func TestPipelineComplete_BodyStallTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"stepType":`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewPipeline(server.URL, "k", time.Second, 50*time.Millisecond, slog.Default())
	start := time.Now()
	_, err := p.Complete(context.Background(), Prompt{UserInput: "hi"})
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("expected ErrReadTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("body read was not bounded, took %v", elapsed)
	}
}

func TestPipelineComplete_StatusSnippetKeepsRunesWhole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("é", 600)))
	}))
	defer server.Close()

	p := NewPipeline(server.URL, "k", time.Second, time.Second, slog.Default())
	_, err := p.Complete(context.Background(), Prompt{UserInput: "hi"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !utf8.ValidString(se.Body) {
		t.Fatalf("snippet is not valid UTF-8: %q", se.Body)
	}
	if !strings.HasSuffix(se.Body, "...") {
		t.Errorf("expected truncation marker, got %q", se.Body)
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(se.Body, "...")); n != 500 {
		t.Errorf("expected 500 runes kept, got %d", n)
	}
}
