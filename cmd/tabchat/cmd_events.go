package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tabchat/internal/hermes"
)

var eventsSubject string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print chat and record events from NATS",
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsSubject, "subject", hermes.SubjectAll, "Subject to subscribe to")
}

func runEvents(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	if cfg.NatsURL == "" {
		return errors.New("NATS_URL is required")
	}

	hc, err := hermes.NewClient(cmd.Context(), cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer hc.Close()

	out := cmd.OutOrStdout()
	if err := hc.Subscribe(eventsSubject, func(msg hermes.Message) {
		fmt.Fprintln(out, msg)
	}); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-cmd.Context().Done():
	}
	return nil
}
