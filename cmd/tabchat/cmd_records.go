package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tabchat/internal/records"
	"github.com/MikeSquared-Agency/tabchat/internal/store"
)

var (
	recordsPort   int
	recordCompany string
	recordURL     string
	recordData    string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Run or use the records API",
}

var recordsServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the records API backed by Postgres",
	RunE:  runRecordsServe,
}

var recordsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a record",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := records.NewClient(cfg.RecordsURL).Add(cmd.Context(), recordCompany, recordURL, recordData)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all records",
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := records.NewClient(cfg.RecordsURL).List(cmd.Context())
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entries found")
			return nil
		}
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := records.NewClient(cfg.RecordsURL).Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

var recordsUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update fields of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := patchFromFlags(cmd)
		if err := records.NewClient(cfg.RecordsURL).Update(cmd.Context(), args[0], patch); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Data updated successfully")
		return nil
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := records.NewClient(cfg.RecordsURL).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Data deleted successfully")
		return nil
	},
}

func init() {
	recordsServeCmd.Flags().IntVar(&recordsPort, "port", 0, "Listen port (default TABCHAT_RECORDS_PORT)")

	recordsAddCmd.Flags().StringVar(&recordCompany, "company", "", "Company name (required)")
	recordsAddCmd.Flags().StringVar(&recordURL, "url", "", "URL (required)")
	recordsAddCmd.Flags().StringVar(&recordData, "data", "", "Free text (default \""+records.DefaultData+"\")")
	recordsAddCmd.MarkFlagRequired("company")
	recordsAddCmd.MarkFlagRequired("url")

	recordsUpdateCmd.Flags().StringVar(&recordCompany, "company", "", "New company name")
	recordsUpdateCmd.Flags().StringVar(&recordURL, "url", "", "New URL")
	recordsUpdateCmd.Flags().StringVar(&recordData, "data", "", "New free text")

	recordsCmd.AddCommand(recordsServeCmd)
	recordsCmd.AddCommand(recordsAddCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGetCmd)
	recordsCmd.AddCommand(recordsUpdateCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
}

func runRecordsServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	if recordsPort != 0 {
		cfg.RecordsPort = recordsPort
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx := cmd.Context()
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("database connected")

	var events records.Publisher
	hc, err := connectEvents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if hc != nil {
		defer hc.Close()
		events = hc
	}

	srv := records.NewServer(cfg.RecordsPort, db, events, logger)
	return serveUntilSignal(srv.Start, srv.Shutdown, logger)
}

// patchFromFlags includes only the flags the user actually passed.
func patchFromFlags(cmd *cobra.Command) records.Patch {
	var p records.Patch
	if cmd.Flags().Changed("company") {
		p.Company = &recordCompany
	}
	if cmd.Flags().Changed("url") {
		p.URL = &recordURL
	}
	if cmd.Flags().Changed("data") {
		p.Data = &recordData
	}
	return p
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
