package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
)

const (
	GreetingText    = "Hi there! I'm your AI assistant."
	GreetingSubtext = "I can help you analyze and discuss the content of the current webpage. What would you like to know?"

	PageUnavailableTitle = "Unable to get page info"
	PageUnavailableHint  = "Browser debugging access may be needed"

	thinkingText = "AI is thinking... This may take up to 3 minutes."
	sendingText  = "Sending request to AI... This may take up to 3 minutes."

	errorDismissAfter = 8 * time.Second

	headerHeight = 3
	footerHeight = 4
)

// Controller is the part of chat.Session the front end drives.
type Controller interface {
	Start(ctx context.Context) error
	Submit(ctx context.Context, text string) error
	Cancel()
	Clear()
}

// ThemeStore persists the chosen theme. *prefs.Store implements it.
type ThemeStore interface {
	Theme(prefersDark func() bool) string
	ToggleTheme(prefersDark func() bool) (string, error)
}

type Options struct {
	Controller Controller
	// Prefs may be nil, in which case the theme follows PrefersDark and
	// toggling is not persisted.
	Prefs       ThemeStore
	PrefersDark func() bool
	Logger      *slog.Logger
}

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
)

type entry struct {
	kind entryKind
	text string
}

type dismissErrorMsg struct{ seq int }

type themeMsg struct {
	theme string
	err   error
}

type Model struct {
	ctx    context.Context
	ctrl   Controller
	prefs  ThemeStore
	dark   func() bool
	logger *slog.Logger

	theme  string
	styles styles

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	spinning bool

	entries      []entry
	showGreeting bool
	page         *chat.PageContext
	pageKnown    bool
	state        chat.State
	errText      string
	errSeq       int

	width  int
	height int
}

func New(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	theme := "light"
	if opts.Prefs != nil {
		theme = opts.Prefs.Theme(opts.PrefersDark)
	} else if opts.PrefersDark != nil && opts.PrefersDark() {
		theme = "dark"
	}
	st := newStyles(theme)

	input := textinput.New()
	input.Placeholder = "Ask about this page..."
	input.Prompt = "› "
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = st.spinner

	return &Model{
		ctx:          ctx,
		ctrl:         opts.Controller,
		prefs:        opts.Prefs,
		dark:         opts.PrefersDark,
		logger:       logger,
		theme:        theme,
		styles:       st,
		input:        input,
		spinner:      sp,
		viewport:     viewport.New(80, 20),
		showGreeting: true,
		state:        chat.Idle,
		width:        80,
	}
}

func (m *Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(textinput.Blink, func() tea.Msg {
		_ = ctrl.Start(ctx)
		return nil
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.input.Width = max(msg.Width-14, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case userMsg:
		m.showGreeting = false
		m.errText = ""
		m.entries = append(m.entries, entry{entryUser, msg.text})
		m.refresh()
		return m, nil

	case assistantMsg:
		m.showGreeting = false
		m.entries = append(m.entries, entry{entryAssistant, msg.text})
		m.refresh()
		return m, nil

	case noticeMsg:
		m.entries = append(m.entries, entry{entryNotice, msg.text})
		m.refresh()
		return m, nil

	case errorMsg:
		m.errSeq++
		m.errText = "Error: " + msg.err.Message
		seq := m.errSeq
		return m, tea.Tick(errorDismissAfter, func(time.Time) tea.Msg {
			return dismissErrorMsg{seq}
		})

	case dismissErrorMsg:
		if msg.seq == m.errSeq {
			m.errText = ""
		}
		return m, nil

	case stateMsg:
		m.state = msg.state
		if m.state.Busy() && !m.spinning {
			m.spinning = true
			return m, m.spinner.Tick
		}
		return m, nil

	case greetingMsg:
		m.entries = nil
		m.showGreeting = true
		m.errText = ""
		m.refresh()
		return m, nil

	case pageMsg:
		m.page = msg.page
		m.pageKnown = true
		return m, nil

	case themeMsg:
		if msg.err != nil {
			m.logger.Warn("failed to save theme", "error", msg.err)
		}
		m.theme = msg.theme
		m.styles = newStyles(msg.theme)
		m.spinner.Style = m.styles.spinner
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.state.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Session calls block on the program's message channel, so they always run
// inside commands and never inside Update.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl, ctx := m.ctrl, m.ctx

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		if m.state.Busy() {
			return m, func() tea.Msg {
				ctrl.Cancel()
				return nil
			}
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.state = chat.AwaitingHealthCheck
		return m, func() tea.Msg {
			_ = ctrl.Submit(ctx, text)
			return nil
		}

	case "ctrl+l":
		m.input.Reset()
		return m, func() tea.Msg {
			ctrl.Clear()
			return nil
		}

	case "ctrl+t":
		return m, m.toggleTheme()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.state.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) toggleTheme() tea.Cmd {
	prefs, dark, current := m.prefs, m.dark, m.theme
	return func() tea.Msg {
		if prefs == nil {
			if current == "dark" {
				return themeMsg{theme: "light"}
			}
			return themeMsg{theme: "dark"}
		}
		next, err := prefs.ToggleTheme(dark)
		return themeMsg{theme: next, err: err}
	}
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	wrap := max(m.width-6, 20)

	if m.showGreeting && len(m.entries) == 0 {
		return m.styles.greeting.Render(GreetingText) + "\n" +
			m.styles.subtext.Render(wordwrap.String(GreetingSubtext, wrap))
	}

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		text := wordwrap.String(e.text, wrap)
		switch e.kind {
		case entryUser:
			bubble := m.styles.user.Render(text)
			b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble))
		case entryAssistant:
			b.WriteString(m.styles.assistant.Render(text))
		case entryNotice:
			b.WriteString(m.styles.notice.Render(text))
		}
	}
	return b.String()
}

func (m *Model) renderHeader() string {
	title, url := "Loading page info...", ""
	switch {
	case m.pageKnown && m.page == nil:
		title, url = PageUnavailableTitle, PageUnavailableHint
	case m.page != nil:
		title, url = m.page.Title, m.page.URL
		if title == "" {
			title = "Untitled Page"
		}
		if url == "" {
			url = "No URL"
		}
	}

	w := max(m.width-2, 10)
	return m.styles.title.Render("tabchat") + "\n" +
		m.styles.header.Width(m.width).Render(m.styles.pageTitle.Render(truncate.StringWithTail(title, uint(w), "..."))) + "\n" +
		m.styles.header.Width(m.width).Render(m.styles.pageURL.Render(truncate.StringWithTail(url, uint(w), "...")))
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString(m.styles.errBanner.Render(m.errText))
	}
	b.WriteString("\n")

	if m.state.Busy() {
		text := thinkingText
		if m.state == chat.AwaitingResponse {
			text = sendingText
		}
		b.WriteString(m.spinner.View() + " " + m.styles.loading.Render(text))
	}
	b.WriteString("\n")

	label := "[Send]"
	if m.state.Busy() {
		label = "[Cancel]"
	}
	b.WriteString(m.input.View() + " " + m.styles.button.Render(label))
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(fmt.Sprintf("enter %s • ctrl+l clear • ctrl+t theme (%s) • ctrl+c quit",
		strings.ToLower(strings.Trim(label, "[]")), m.theme)))
	return b.String()
}
