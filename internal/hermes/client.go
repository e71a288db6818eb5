// Package hermes carries tabchat's activity events over NATS.
//
// The relay publishes tabchat.chat.completed or tabchat.chat.failed once per
// relayed turn, and the records service publishes tabchat.records.created,
// .updated and .deleted as saved analyses change. `tabchat events` subscribes
// to tabchat.> and prints every event it sees. Events carry metadata only;
// message bodies never leave the relay.
package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrForeignSubject is returned when publishing outside the tabchat subjects.
var ErrForeignSubject = errors.New("subject outside tabchat namespace")

const namespace = "tabchat."

// InNamespace reports whether subject belongs to tabchat.
func InNamespace(subject string) bool {
	return strings.HasPrefix(subject, namespace) && len(subject) > len(namespace)
}

// Message is one event as received from NATS.
type Message struct {
	Subject string
	Data    []byte
}

// Decode unmarshals the event payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Subject, err)
	}
	return nil
}

// String renders the message as the single line `tabchat events` prints.
func (m Message) String() string {
	return m.Subject + " " + strings.TrimSpace(string(m.Data))
}

// Client publishes and subscribes to tabchat events. A nil *Client is a
// valid, disabled client: Publish drops events and Close does nothing.
type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewClient connects to NATS. The connection retries in the background, so
// the relay starts even while the broker is still coming up.
func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("tabchat"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("event bus disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("event bus reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// Publish sends data as JSON on subject, which must be a tabchat subject.
func (c *Client) Publish(subject string, data any) error {
	if !InNamespace(subject) {
		return fmt.Errorf("%w: %q", ErrForeignSubject, subject)
	}
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	c.logger.Debug("event published", "subject", subject, "bytes", len(payload))
	return nil
}

// Subscribe delivers every message matching subject to handler.
func (c *Client) Subscribe(subject string, handler func(Message)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(Message{Subject: msg.Subject, Data: msg.Data})
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed to events", "subject", subject)
	return nil
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
