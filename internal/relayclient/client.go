// Package relayclient talks to the tabchat relay's health and chat endpoints
// and turns every failure into a classified *chat.Error.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

// SessionHeader carries the client's session ID so relay logs can be
// correlated with one conversation.
const SessionHeader = "X-Tabchat-Session"

type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
	logger    *slog.Logger
}

// New returns a client for the relay at baseURL. Deadlines come from the
// caller's context, so the underlying http.Client has no timeout of its own.
func New(baseURL string, logger *slog.Logger) *Client {
	id, err := gonanoid.New()
	if err != nil {
		id = "unknown"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: id,
		client:    &http.Client{},
		logger:    logger,
	}
}

func (c *Client) SessionID() string { return c.sessionID }

// Health returns nil when the relay answers /api/health with a 2xx status.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(SessionHeader, c.sessionID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health probe: status %d", resp.StatusCode)
	}
	return nil
}

// Chat sends one turn to the relay.
func (c *Client) Chat(ctx context.Context, in chat.Request) (chat.Reply, error) {
	if in.History == nil {
		in.History = []chat.Turn{}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return chat.Reply{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, c.sessionID)

	resp, err := c.client.Do(req)
	if err != nil {
		return chat.Reply{}, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return chat.Reply{}, transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return chat.Reply{}, statusError(resp.StatusCode, respBody)
	}

	var reply chat.Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return chat.Reply{}, &chat.Error{
			Kind:    chat.KindApplication,
			Message: "Invalid response from server",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unmarshal response: %w", err),
		}
	}
	if reply.Error != "" {
		return chat.Reply{}, &chat.Error{Kind: chat.KindApplication, Message: reply.Error, Status: resp.StatusCode}
	}

	c.logger.Debug("chat reply received", "session", c.sessionID, "response_len", len(reply.Response))
	return reply, nil
}

func transportError(ctx context.Context, err error) *chat.Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &chat.Error{Kind: chat.KindCancelled, Message: chat.CancelledNotice, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &chat.Error{Kind: chat.KindTimeout, Message: chat.MsgTimeout, Err: err}
	default:
		return &chat.Error{Kind: chat.KindServiceUnavailable, Message: chat.MsgConnectFailed, Err: err}
	}
}

func statusError(status int, body []byte) *chat.Error {
	var parsed struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	if status == http.StatusGatewayTimeout {
		return &chat.Error{
			Kind:    chat.KindTimeout,
			Message: chat.MsgTimeout,
			Status:  status,
			Err:     fmt.Errorf("relay status %d: %s", status, parsed.Error),
		}
	}

	msg := parsed.Error
	if msg == "" {
		msg = chat.StatusMessage(status)
	}
	return &chat.Error{Kind: chat.KindApplication, Message: msg, Status: status}
}
