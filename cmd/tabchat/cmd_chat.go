package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tabchat/internal/browser"
	"github.com/MikeSquared-Agency/tabchat/internal/chat"
	"github.com/MikeSquared-Agency/tabchat/internal/prefs"
	"github.com/MikeSquared-Agency/tabchat/internal/relayclient"
	"github.com/MikeSquared-Agency/tabchat/internal/tui"
)

var noBrowser bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not attach to Chrome for page context")
}

func runChat(cmd *cobra.Command, args []string) error {
	// The screen belongs to the TUI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := setupLogging(cfg.LogLevel, logOut)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	backend := relayclient.New(cfg.RelayURL, logger)

	var host chat.Host
	var tabs *browser.Host
	if !noBrowser {
		tabs = browser.New(cfg.ChromeDebuggerURL, logger)
		defer tabs.Close()
		host = tabs
	}

	var themes tui.ThemeStore
	if store, err := prefs.Open(cfg.PrefsPath); err != nil {
		logger.Warn("preferences unavailable, theme will not be saved", "error", err)
	} else {
		themes = store
	}

	bridge := tui.NewBridge()
	session := chat.New(backend, host, bridge, chat.Options{
		HealthTimeout: cfg.HealthTimeout,
		ChatTimeout:   cfg.ChatTimeout,
		Logger:        logger,
	})

	model := tui.New(ctx, tui.Options{
		Controller:  session,
		Prefs:       themes,
		PrefersDark: lipgloss.HasDarkBackground,
		Logger:      logger,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)

	if tabs != nil {
		go func() {
			err := tabs.Watch(ctx, func() {
				go session.RefreshPageContext(ctx)
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("tab watcher stopped", "error", err)
			}
		}()
	}

	_, err := program.Run()
	session.Cancel()
	if err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}
