package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"LeakScanner/internal/app"
	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/logging"
)

var onceFlags struct {
	markdown bool
}

var onceCmd = &cobra.Command{
	Use:       "once <source>",
	Short:     "Run a single pass over one source and print the batch report",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"paste", "gist", "forum", "telegram", "breach"},
	RunE:      runOnce,
}

func init() {
	onceCmd.Flags().BoolVar(&onceFlags.markdown, "markdown", false, "Render the report as a Markdown table")
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.RunOnce(ctx, domain.SourceKind(args[0]))
	if err != nil {
		return fmt.Errorf("%w (enabled: %v)", err, application.Sources())
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(report, onceFlags.markdown))
	if report.Err != nil {
		return fmt.Errorf("batch %s: %w", report.Outcome, report.Err)
	}
	return nil
}
