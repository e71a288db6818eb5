package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

// maxSnippet caps the display width of a failed response body in logs and errors.
const maxSnippet = 500

// Pipeline calls a hosted pipeline-execution endpoint that takes the user
// input plus previous messages and returns the executed steps.
type Pipeline struct {
	url         string
	apiKey      string
	readTimeout time.Duration
	client      *http.Client
	logger      *slog.Logger
}

// NewPipeline builds a pipeline client. connectTimeout bounds dialing and the
// TLS handshake; readTimeout bounds the wait for the response headers and,
// separately, the time spent reading the body.
func NewPipeline(url, apiKey string, connectTimeout, readTimeout time.Duration, logger *slog.Logger) *Pipeline {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
	}
	return &Pipeline{
		url:         url,
		apiKey:      apiKey,
		readTimeout: readTimeout,
		client:      &http.Client{Transport: transport},
		logger:      logger,
	}
}

type pipelineRequest struct {
	UserInput   string          `json:"userInput"`
	AsyncOutput bool            `json:"asyncOutput"`
	Context     pipelineContext `json:"context"`
}

type pipelineContext struct {
	PreviousMessages []chat.Turn      `json:"previousMessages"`
	Metadata         pipelineMetadata `json:"metadata"`
}

type pipelineMetadata struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

func (p *Pipeline) Complete(ctx context.Context, prompt Prompt) (string, error) {
	meta := pipelineMetadata{Source: "browser_extension"}
	if prompt.Page != nil {
		meta.URL = prompt.Page.URL
		meta.Title = prompt.Page.Title
	}
	history := prompt.History
	if history == nil {
		history = []chat.Turn{}
	}

	body, err := json.Marshal(pipelineRequest{
		UserInput: prompt.UserInput,
		Context: pipelineContext{
			PreviousMessages: history,
			Metadata:         meta,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	// ResponseHeaderTimeout stops counting once headers arrive.
	stall := time.AfterFunc(p.readTimeout, func() { cancel(ErrReadTimeout) })
	defer stall.Stop()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(context.Cause(reqCtx), ErrReadTimeout) {
			return "", fmt.Errorf("%w: reading body: %v", ErrReadTimeout, err)
		}
		return "", classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(respBody)
		if cut := truncate.String(snippet, maxSnippet); cut != snippet {
			snippet = cut + "..."
		}
		p.logger.Error("pipeline request failed", "status", resp.StatusCode, "body", snippet)
		return "", &StatusError{Status: resp.StatusCode, Body: snippet}
	}

	return formatPipelineOutput(respBody), nil
}

// formatPipelineOutput extracts the answer from a pipeline response. A list
// of steps yields the first AIOperation step's output (else the last step's),
// an object yields its result field, anything else is returned as text.
func formatPipelineOutput(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)

	var steps []map[string]any
	if err := json.Unmarshal(trimmed, &steps); err == nil {
		for _, step := range steps {
			if t, _ := step["stepType"].(string); t == "AIOperation" {
				return strings.TrimSpace(stringify(step["output"]))
			}
		}
		if len(steps) == 0 {
			return ""
		}
		return stringify(steps[len(steps)-1]["output"])
	}

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		if result, ok := obj["result"]; ok {
			return stringify(result)
		}
		return string(trimmed)
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
