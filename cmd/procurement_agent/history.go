package main

import (
	"fmt"

	"github.com/jonathan/procurement-caller/internal/db"
	"github.com/jonathan/procurement-caller/internal/observability"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show archived calls",
	Long:  "Lists the most recent finished calls from the PostgreSQL call archive.",
	RunE:  runHistory,
}

var (
	historyLimit int
	historyJobID string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of calls to show")
	historyCmd.Flags().StringVar(&historyJobID, "job", "", "Show the full record of one job")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("config error: missing database_url")
	}
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	archive, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer archive.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if historyJobID != "" {
		record, err := archive.GetCall(cmd.Context(), historyJobID)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("no archived call for job %s", historyJobID)
		}
		printer.PrintJob(record.Snapshot())
		return nil
	}

	calls, err := archive.ListCalls(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	printer.PrintCallHistory(calls)
	return nil
}
