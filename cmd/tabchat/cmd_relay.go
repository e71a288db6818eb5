package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tabchat/internal/config"
	"github.com/MikeSquared-Agency/tabchat/internal/hermes"
	"github.com/MikeSquared-Agency/tabchat/internal/relay"
	"github.com/MikeSquared-Agency/tabchat/internal/upstream"
)

var relayPort int

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the local AI relay the chat client talks to",
	Long: `Serves /api/health and /api/chat on 127.0.0.1 and forwards each turn to
the upstream selected by TABCHAT_UPSTREAM (pipeline, anthropic or openai).`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().IntVar(&relayPort, "port", 0, "Listen port (default TABCHAT_RELAY_PORT)")
}

func runRelay(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	if relayPort != 0 {
		cfg.RelayPort = relayPort
	}

	completer, err := buildCompleter(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var events relay.Publisher
	hc, err := connectEvents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if hc != nil {
		defer hc.Close()
		events = hc
	}

	srv := relay.NewServer(relay.Config{
		Port:         cfg.RelayPort,
		UpstreamName: cfg.Upstream,
		ReadTimeout:  cfg.UpstreamReadTimeout,
	}, completer, events, logger)

	return serveUntilSignal(srv.Start, srv.Shutdown, logger)
}

// buildCompleter picks the upstream named by cfg.Upstream.
func buildCompleter(cfg config.Config, logger *slog.Logger) (upstream.Completer, error) {
	switch cfg.Upstream {
	case "pipeline":
		if cfg.PipelineURL == "" {
			return nil, errors.New("TABCHAT_PIPELINE_URL is required for the pipeline upstream")
		}
		return upstream.NewPipeline(cfg.PipelineURL, cfg.PipelineAPIKey,
			cfg.UpstreamConnectTimeout, cfg.UpstreamReadTimeout, logger), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required for the anthropic upstream")
		}
		return upstream.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.UpstreamReadTimeout), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, errors.New("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai upstream")
		}
		return upstream.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel,
			option.WithRequestTimeout(cfg.UpstreamReadTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown upstream %q (want pipeline, anthropic or openai)", cfg.Upstream)
	}
}

// connectEvents returns nil without error when NATS is not configured.
func connectEvents(ctx context.Context, cfg config.Config, logger *slog.Logger) (*hermes.Client, error) {
	if cfg.NatsURL == "" {
		logger.Info("NATS_URL not set, events disabled")
		return nil, nil
	}
	hc, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("NATS connected", "url", cfg.NatsURL)
	return hc, nil
}

func serveUntilSignal(start func() error, shutdown func(context.Context) error, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
