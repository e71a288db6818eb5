package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

// ErrNoPage is returned when the browser has no ordinary tab open.
var ErrNoPage = errors.New("no open page")

// Host reads tab metadata from a Chrome started with --remote-debugging-port.
// It never closes the browser it attaches to.
type Host struct {
	debuggerURL string
	logger      *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser

	ctx    context.Context
	cancel context.CancelFunc
}

func New(debuggerURL string, logger *slog.Logger) *Host {
	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		debuggerURL: debuggerURL,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// connect attaches on first use and reuses the connection afterwards.
func (h *Host) connect() (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		if _, err := h.browser.Version(); err == nil {
			return h.browser, nil
		}
		h.logger.Warn("stale browser connection, reconnecting")
		h.browser = nil
	}

	wsURL, err := launcher.ResolveURL(h.debuggerURL)
	if err != nil {
		return nil, fmt.Errorf("resolve debugger url: %w", err)
	}

	b := rod.New().ControlURL(wsURL).Context(h.ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	h.browser = b
	h.logger.Debug("attached to chrome", "url", wsURL)
	return b, nil
}

// ActiveTab implements chat.Host.
func (h *Host) ActiveTab(ctx context.Context) (*chat.PageContext, error) {
	b, err := h.connect()
	if err != nil {
		return nil, err
	}

	res, err := proto.TargetGetTargets{}.Call(b.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	info := pickActive(res.TargetInfos)
	if info == nil {
		return nil, ErrNoPage
	}
	return &chat.PageContext{
		URL:   info.URL,
		Title: info.Title,
		TabID: string(info.TargetID),
	}, nil
}

// Watch calls onChange whenever a tab is opened, closed, navigated or
// retitled. It blocks until ctx is done or Close is called.
func (h *Host) Watch(ctx context.Context, onChange func()) error {
	b, err := h.connect()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	watcher := b.Context(ctx)
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(watcher); err != nil {
		return fmt.Errorf("enable target discovery: %w", err)
	}

	wait := watcher.EachEvent(
		func(ev *proto.TargetTargetCreated) {
			if isPage(ev.TargetInfo) {
				onChange()
			}
		},
		func(ev *proto.TargetTargetInfoChanged) {
			if isPage(ev.TargetInfo) {
				onChange()
			}
		},
		func(ev *proto.TargetTargetDestroyed) {
			onChange()
		},
	)
	wait()
	return ctx.Err()
}

// Close detaches from the browser and stops any Watch loop.
func (h *Host) Close() {
	h.cancel()
	h.mu.Lock()
	h.browser = nil
	h.mu.Unlock()
}

// pickActive returns the first ordinary page target. Chrome lists the most
// recently focused tab first.
func pickActive(infos []*proto.TargetTargetInfo) *proto.TargetTargetInfo {
	for _, info := range infos {
		if isPage(info) {
			return info
		}
	}
	return nil
}

func isPage(info *proto.TargetTargetInfo) bool {
	if info == nil || info.Type != proto.TargetTargetInfoTypePage {
		return false
	}
	for _, prefix := range []string{"devtools://", "chrome-extension://", "chrome-untrusted://"} {
		if strings.HasPrefix(info.URL, prefix) {
			return false
		}
	}
	return true
}
