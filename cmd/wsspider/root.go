package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/wsspider/internal/config"
)

// NewRootCmd creates the root command for wsspider.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wsspider",
		Short: "FOFA result crawler that streams records to a WebSocket collector",
		Long: `wsspider crawls FOFA search result pages and the refine links they offer
(ports, products, countries, ...), extracting one record per result item and
streaming every record to a collector process over a WebSocket.

Queries are processed from a durable job queue. The collector can add jobs,
start and stop the spider over the same connection. Visited links are
remembered across runs so no refine link is crawled twice.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .wsspider in current or home directory)")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory holding the SQLite state database")
	cmd.PersistentFlags().String("store", config.StoreSQLite,
		"State backend: sqlite or redis")
	cmd.PersistentFlags().String("redis-addr", config.DefaultRedisAddr,
		"Redis address used with --store redis")
	cmd.PersistentFlags().String("log-file", "",
		"Append every log record as JSON to this file")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewJobsCmd())
	cmd.AddCommand(NewVisitedCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
