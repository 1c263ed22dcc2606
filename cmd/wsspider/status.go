package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/wsspider/internal/config"
	"github.com/nao1215/wsspider/internal/database"
	"github.com/nao1215/wsspider/internal/model"
	"github.com/nao1215/wsspider/internal/report"
)

// statusRecentVisits is the number of visits included in the report.
const statusRecentVisits = 10

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the persisted queue and visited set",
		Long: `Status prints a snapshot of the state backend: pending jobs, the size of
the visited set, the most recent visits and the auto-start preference.

Examples:
  wsspider status
  wsspider status --json
  wsspider status --markdown -o status.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, cfg *config.Config, store database.Store) error {
		status, err := buildStatusReport(ctx, cfg.Store, store)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputPath != "" {
			f, err := createReportFile(outputPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		_, err = newReportWriter(out, jsonOut, markdownOut, cfg.Verbose).Write(status)
		return err
	})
}

// buildStatusReport reads a snapshot from store.
func buildStatusReport(ctx context.Context, backend string, store database.Store) (*model.StatusReport, error) {
	jobs, err := store.LoadJobs(ctx)
	if err != nil {
		return nil, err
	}
	count, err := store.CountVisited(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := store.RecentVisits(ctx, statusRecentVisits)
	if err != nil {
		return nil, err
	}
	autoStart, err := store.LoadPreference(ctx, database.PrefAutoStart)
	if err != nil {
		return nil, err
	}

	if jobs == nil {
		jobs = []string{}
	}
	return &model.StatusReport{
		GeneratedAt:  time.Now(),
		Store:        backend,
		Jobs:         jobs,
		VisitedCount: count,
		RecentVisits: recent,
		AutoStart:    autoStart,
	}, nil
}

// newReportWriter selects the report format.
func newReportWriter(out io.Writer, jsonOut, markdownOut, verbose bool) report.Writer {
	switch {
	case jsonOut:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOut:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithShowEmpty(true), report.WithVerbose(verbose))
	}
}

// createReportFile creates path and its parent directories.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // path is given by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, nil
}
