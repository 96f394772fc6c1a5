package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"arkadia-host/janus/pkg/audit"
	"arkadia-host/janus/pkg/cli"
	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/telemetry/logging"
)

var auditFlags struct {
	db     string
	limit  int
	days   int
	format string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query and maintain the audit trail database.

The audit command provides offline access to the SQLite audit trail
recorded by the running server.

Subcommands:
  recent - Show the most recent audit events
  prune  - Delete events older than a retention window

Examples:
  # Show the last 50 events
  janus audit recent --limit 50

  # Export events as JSON
  janus audit recent --format json

  # Delete everything older than 30 days
  janus audit prune --days 30`,
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent audit events",
	Long:  `Show the most recent audit events, newest first.`,
	RunE:  showRecentEvents,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old audit events",
	Long:  `Delete audit events older than the given number of days.`,
	RunE:  pruneEvents,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecentCmd, auditPruneCmd)

	auditCmd.PersistentFlags().StringVar(&auditFlags.db, "db", "", "audit database path (uses config if not specified)")
	auditRecentCmd.Flags().IntVar(&auditFlags.limit, "limit", 100, "max events")
	auditRecentCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", 90, "retention window in days")
}

// openAuditDB resolves the database path from the flag or the config
// file and opens a recorder against it.
func openAuditDB() (*audit.Recorder, error) {
	auditCfg := config.AuditConfig{SQLitePath: auditFlags.db}
	if auditFlags.db == "" {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
		}
		auditCfg = cfg.Audit
	}
	if auditCfg.SQLitePath == "" {
		return nil, cli.NewConfigError("audit.sqlite_path", "no audit database configured")
	}
	return audit.NewRecorder(auditCfg, logging.Discard())
}

func showRecentEvents(cmd *cobra.Command, args []string) error {
	recorder, err := openAuditDB()
	if err != nil {
		return err
	}
	defer recorder.Close()

	events, err := recorder.Recent(context.Background(), auditFlags.limit)
	if err != nil {
		return cli.NewCommandError("audit recent", err)
	}

	if auditFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, events)
	}

	if len(events) == 0 {
		fmt.Println("No audit events recorded")
		return nil
	}
	for _, ev := range events {
		fmt.Printf("%s  %-12s %-12s %-10s %s\n",
			ev.At.Format(time.RFC3339), ev.Site, ev.Actor, ev.Action, ev.Detail)
	}
	fmt.Printf("\n%d events\n", len(events))
	return nil
}

func pruneEvents(cmd *cobra.Command, args []string) error {
	if auditFlags.days <= 0 {
		return fmt.Errorf("invalid retention window: %d days", auditFlags.days)
	}

	recorder, err := openAuditDB()
	if err != nil {
		return err
	}
	defer recorder.Close()

	cutoff := time.Now().AddDate(0, 0, -auditFlags.days)
	deleted, err := recorder.Prune(context.Background(), cutoff)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	fmt.Printf("✓ Deleted %d events older than %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}
