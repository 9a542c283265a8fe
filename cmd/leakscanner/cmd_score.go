package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"LeakScanner/internal/config"
	"LeakScanner/internal/severity"
	"LeakScanner/internal/signals"
)

var scoreFlags struct {
	watchlist []string
}

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Extract signals from a file (or stdin) and print its severity",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringSliceVarP(&scoreFlags.watchlist, "watch", "w", nil, "Extra watchlist terms")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open sample: %w", err)
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}

	watchlist := append(append([]string(nil), cfg.Watchlist...), scoreFlags.watchlist...)
	counts := signals.NewExtractor(watchlist).Extract(string(raw))
	counts.SizeBytes = len(raw)
	result, err := severity.Evaluate(counts, cfg.Thresholds)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderScore(counts, result))
	return nil
}
