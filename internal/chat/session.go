package chat

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	DefaultHealthTimeout = 5 * time.Second
	DefaultChatTimeout   = 180 * time.Second
)

type Options struct {
	HealthTimeout time.Duration
	ChatTimeout   time.Duration
	Logger        *slog.Logger
}

// Session owns one conversation. At most one request is in flight at a time;
// submitting while a request is active cancels it instead of starting a turn.
type Session struct {
	backend   Backend
	host      Host
	presenter Presenter
	logger    *slog.Logger

	healthTimeout time.Duration
	chatTimeout   time.Duration

	// emitMu keeps state transitions and their presentation in the same
	// order. It is taken before mu and never held across UserMessage,
	// PageContext or Greeting.
	emitMu sync.Mutex

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc // non-nil while a request is active
	history []Turn
	page    *PageContext
}

// New creates a session. host may be nil, in which case requests carry no
// page context.
func New(backend Backend, host Host, presenter Presenter, opts Options) *Session {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = DefaultChatTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		backend:       backend,
		host:          host,
		presenter:     presenter,
		logger:        opts.Logger,
		healthTimeout: opts.HealthTimeout,
		chatTimeout:   opts.ChatTimeout,
	}
}

// Start refreshes the page context and probes the relay once so the user
// learns early that it is down.
func (s *Session) Start(ctx context.Context) error {
	s.RefreshPageContext(ctx)

	hctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()
	if err := s.backend.Health(hctx); err != nil {
		s.logger.Warn("relay health check failed", "error", err)
		e := &Error{Kind: KindServiceUnavailable, Message: MsgRelayNotRunning, Err: err}
		s.presenter.Error(e)
		return e
	}
	return nil
}

// Submit runs one conversational turn and blocks until it finishes. If a
// request is already active it is cancelled and Submit returns nil at once.
// The returned error is always an *Error.
func (s *Session) Submit(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		s.Cancel()
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		return nil
	}
	reqCtx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.state = AwaitingHealthCheck
	history := slices.Clone(s.history)
	s.mu.Unlock()

	defer s.finish(gen, cancel)

	s.presenter.UserMessage(text)
	if !s.advance(gen, AwaitingHealthCheck) {
		return errCancelled(context.Canceled)
	}

	hctx, hcancel := context.WithTimeout(reqCtx, s.healthTimeout)
	err := s.backend.Health(hctx)
	hcancel()
	if err != nil {
		if reqCtx.Err() != nil {
			return errCancelled(reqCtx.Err())
		}
		s.logger.Warn("health probe failed", "error", err)
		return s.fail(gen, &Error{Kind: KindServiceUnavailable, Message: MsgServiceUnavailable, Err: err})
	}

	page := s.Page()
	if page == nil {
		page = s.RefreshPageContext(reqCtx)
	}

	if !s.advance(gen, AwaitingResponse) {
		return errCancelled(context.Canceled)
	}

	cctx, ccancel := context.WithTimeout(reqCtx, s.chatTimeout)
	reply, err := s.backend.Chat(cctx, Request{UserInput: text, History: history, Page: page})
	ccancel()
	if err != nil {
		if reqCtx.Err() != nil {
			return errCancelled(reqCtx.Err())
		}
		var e *Error
		if !errors.As(err, &e) {
			e = &Error{Kind: KindServiceUnavailable, Message: MsgConnectFailed, Err: err}
		}
		s.logger.Warn("chat request failed", "kind", e.Kind.String(), "status", e.Status, "error", err)
		return s.fail(gen, e)
	}

	answer := reply.Response
	if strings.TrimSpace(answer) == "" {
		answer = FallbackResponse
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return errCancelled(context.Canceled)
	}
	s.history = append(s.history,
		Turn{Role: RoleUser, Content: text},
		Turn{Role: RoleAssistant, Content: answer},
	)
	s.endLocked()
	s.mu.Unlock()

	s.presenter.AssistantMessage(answer)
	s.presenter.StateChanged(Idle)
	return nil
}

// Cancel aborts the active request, if any. The cancellation notice is shown
// as an assistant-style message and is not recorded in history.
func (s *Session) Cancel() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	cancel := s.cancel
	if cancel == nil {
		s.mu.Unlock()
		return
	}
	s.endLocked()
	s.mu.Unlock()

	cancel()
	s.presenter.StateChanged(Cancelled)
	s.presenter.Notice(CancelledNotice)
	s.presenter.StateChanged(Idle)
}

// Clear cancels any active request and empties the history.
func (s *Session) Clear() {
	s.Cancel()

	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()

	s.presenter.Greeting()
}

// RefreshPageContext re-reads the active tab. Failures leave the context nil,
// except when ctx ends during the query: the stored context is then kept and
// returned unchanged.
func (s *Session) RefreshPageContext(ctx context.Context) *PageContext {
	var page *PageContext
	if s.host != nil {
		p, err := s.host.ActiveTab(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return s.Page()
		case err != nil:
			s.logger.Warn("failed to get active tab", "error", err)
		default:
			page = p
		}
	}

	s.mu.Lock()
	s.page = page
	s.mu.Unlock()

	s.presenter.PageContext(page)
	return clonePage(page)
}

func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Session) Page() *PageContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePage(s.page)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether a request is in flight.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// advance moves request gen to next and presents it, if gen is still the
// active request.
func (s *Session) advance(gen uint64, next State) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()

	s.presenter.StateChanged(next)
	return true
}

// fail ends request gen with err, reporting it only if the request was not
// cancelled in the meantime.
func (s *Session) fail(gen uint64, err *Error) *Error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return errCancelled(err)
	}
	s.endLocked()
	s.mu.Unlock()

	s.presenter.Error(err)
	s.presenter.StateChanged(Idle)
	return err
}

// finish runs on every exit path of Submit.
func (s *Session) finish(gen uint64, cancel context.CancelFunc) {
	cancel()

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return
	}
	s.endLocked()
	s.mu.Unlock()
	s.presenter.StateChanged(Idle)
}

func (s *Session) currentLocked(gen uint64) bool {
	return s.gen == gen && s.cancel != nil
}

func (s *Session) endLocked() {
	s.cancel = nil
	s.state = Idle
}

func clonePage(p *PageContext) *PageContext {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
