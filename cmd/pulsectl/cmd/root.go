// Package cmd contains the CLI commands for pulsectl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

var (
	// Used for flags
	verbose bool
	output  string
	dbPath  string
)

// defaultDBPath is the default database path, can be overridden via
// PULSEWATCH_DB_PATH env var.
var defaultDBPath = "./data/pulsewatch.db"

func init() {
	if envPath := os.Getenv("PULSEWATCH_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulsectl",
	Short: "PulseWatch - Metric alerting control tool",
	Long: `pulsectl manages PulseWatch alerting resources.

It operates directly on the server's database file, so it is intended
for operators with access to the server host.

Examples:
  # List rules in a workspace
  pulsectl rule list --workspace default

  # Validate a rule condition before creating it
  pulsectl rule validate --type threshold --condition '{"operator":">","threshold":90}'

  # Silence a noisy metric for two hours
  pulsectl silence create --workspace default --kind metric --value cpu_usage --for 2h

  # Acknowledge an alert
  pulsectl alert ack <alert-id> --by alice`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")
}

// openDB opens the configured SQLite database.
func openDB() (*storage.SQLiteStorage, error) {
	store := storage.NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database at %s: %w", dbPath, err)
	}
	return store, nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-2] + ".."
}
