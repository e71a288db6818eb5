package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

type (
	userMsg      struct{ text string }
	assistantMsg struct{ text string }
	noticeMsg    struct{ text string }
	errorMsg     struct{ err *chat.Error }
	stateMsg     struct{ state chat.State }
	greetingMsg  struct{}
	pageMsg      struct{ page *chat.PageContext }
)

// Bridge turns session callbacks into tea messages. Messages sent before
// Attach are dropped.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func NewBridge() *Bridge { return &Bridge{} }

// Attach routes later callbacks to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.send = p.Send
	b.mu.Unlock()
}

func (b *Bridge) emit(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (b *Bridge) UserMessage(text string)            { b.emit(userMsg{text}) }
func (b *Bridge) AssistantMessage(text string)       { b.emit(assistantMsg{text}) }
func (b *Bridge) Notice(text string)                 { b.emit(noticeMsg{text}) }
func (b *Bridge) Error(err *chat.Error)              { b.emit(errorMsg{err}) }
func (b *Bridge) StateChanged(state chat.State)      { b.emit(stateMsg{state}) }
func (b *Bridge) Greeting()                          { b.emit(greetingMsg{}) }
func (b *Bridge) PageContext(page *chat.PageContext) { b.emit(pageMsg{page}) }
