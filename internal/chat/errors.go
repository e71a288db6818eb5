package chat

import (
	"errors"
	"fmt"
)

// Kind classifies a failed turn.
type Kind int

const (
	KindServiceUnavailable Kind = iota + 1
	KindTimeout
	KindApplication
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindTimeout:
		return "timeout"
	case KindApplication:
		return "application_error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// User-facing texts.
const (
	FallbackResponse = "I apologize, but I received an empty response. Please try asking your question again."
	CancelledNotice  = "Request was cancelled."

	MsgServiceUnavailable = "Server is not running or not responding. Please make sure the tabchat relay is running on localhost:5000"
	MsgConnectFailed      = "Could not connect to the server. Please make sure the tabchat relay is running on localhost:5000"
	MsgTimeout            = "Request timed out. The AI service is taking longer than expected. Please try a simpler question or try again later."
	MsgRelayNotRunning    = "Server is not running. Please start the relay with: tabchat relay"
)

// Error is a classified failure. Message is what the user sees.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StatusMessage is used for non-2xx replies that carry no error text.
func StatusMessage(status int) string {
	return fmt.Sprintf("Server returned status %d", status)
}

func errCancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Message: CancelledNotice, Err: cause}
}
