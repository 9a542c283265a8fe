// leakscanner watches public sources for leaked data and triages what it finds.
//
// Usage:
//
//	leakscanner run
//	leakscanner once <paste|gist|forum|telegram|breach>
//	leakscanner score [file]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "leakscanner",
	Short: "Leak ingestion and triage pipeline",
	Long: "leakscanner polls paste sites, gists, forums, Telegram chats and breach listings,\n" +
		"scores a bounded peek of every item and downloads only what looks sensitive.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if rootFlags.configPath != "" {
			if err := os.Setenv(configPathEnv, rootFlags.configPath); err != nil {
				return err
			}
		}
		if rootFlags.logLevel != "" {
			return os.Setenv(logLevelEnv, rootFlags.logLevel)
		}
		return nil
	},
}

const (
	configPathEnv = "LEAK_SCANNER_CONFIG"
	logLevelEnv   = "LOG_LEVEL"
)

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&rootFlags.configPath, "config", "c", "", "YAML config path (overrides "+configPathEnv+")")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
