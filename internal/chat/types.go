package chat

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation. Turns are never modified after
// they are appended to a session's history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PageContext is a snapshot of the active browser tab.
type PageContext struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	TabID string `json:"id"`
}

type State int

const (
	Idle State = iota
	AwaitingHealthCheck
	AwaitingResponse
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingHealthCheck:
		return "awaiting_health_check"
	case AwaitingResponse:
		return "awaiting_response"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Busy reports whether a request is in flight in this state.
func (s State) Busy() bool {
	return s == AwaitingHealthCheck || s == AwaitingResponse
}

// Request is the body sent to the relay's chat endpoint.
type Request struct {
	UserInput string       `json:"userInput"`
	History   []Turn       `json:"conversationHistory"`
	Page      *PageContext `json:"tabInfo"`
}

// Reply is the relay's chat response body.
type Reply struct {
	Response  string `json:"response"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Backend is the remote chat service. Implementations must report failures
// as *Error so the session never has to guess a kind from message text.
type Backend interface {
	Health(ctx context.Context) error
	Chat(ctx context.Context, req Request) (Reply, error)
}

// Host gives access to the browser's active tab.
type Host interface {
	ActiveTab(ctx context.Context) (*PageContext, error)
}

// Presenter receives everything the session wants shown to the user.
// Methods may be called from any goroutine. AssistantMessage, Notice, Error
// and StateChanged are serialized by the session and must not call back into
// it; UserMessage, Greeting and PageContext may.
type Presenter interface {
	UserMessage(text string)
	AssistantMessage(text string)
	Notice(text string)
	Error(err *Error)
	StateChanged(state State)
	Greeting()
	PageContext(page *PageContext)
}
