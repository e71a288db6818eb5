// Package upstream holds the AI services the relay forwards chat turns to.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

var (
	ErrConnectTimeout = errors.New("upstream connect timeout")
	ErrReadTimeout    = errors.New("upstream read timeout")
)

// StatusError is a non-success HTTP status from the upstream service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Prompt is one relayed turn.
type Prompt struct {
	UserInput string
	History   []chat.Turn
	Page      *chat.PageContext
}

// Completer produces the assistant's answer for a prompt. An empty answer is
// not an error; the relay substitutes its fallback text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// classifyTransport maps dial and read timeouts onto the sentinel errors.
func classifyTransport(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrReadTimeout, err)
	}
	return err
}

// systemPrompt describes the page the user is looking at.
func systemPrompt(page *chat.PageContext) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant embedded in the user's browser. ")
	sb.WriteString("Help them analyse and discuss the page they are currently viewing.")
	if page != nil {
		if page.Title != "" {
			fmt.Fprintf(&sb, "\nPage title: %s", page.Title)
		}
		if page.URL != "" {
			fmt.Fprintf(&sb, "\nPage URL: %s", page.URL)
		}
	}
	return sb.String()
}
