package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/wsspider/internal/config"
	"github.com/nao1215/wsspider/internal/crawler"
	"github.com/nao1215/wsspider/internal/database"
)

// NewJobsCmd creates the jobs command group.
func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage the persisted job queue",
		Long: `Manage the job queue without connecting to the collector.

Changes are written to the state backend and picked up by the next run.
Do not edit the queue of a store that a running spider is using.`,
	}

	cmd.AddCommand(newJobsAddCmd())
	cmd.AddCommand(newJobsListCmd())
	cmd.AddCommand(newJobsClearCmd())

	return cmd
}

func newJobsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [query...]",
		Short: "Append queries to the job queue",
		Long: `Add appends FOFA queries to the end of the job queue. Queries already
queued are skipped.

Examples:
  wsspider jobs add 'app="nginx"' 'port="8080"'

  # One query per line; blank lines and lines starting with # are ignored
  wsspider jobs add --file queries.txt`,
		RunE: runJobsAddCmd,
	}

	cmd.Flags().StringP("file", "f", "", "Read queries from a file, one per line")

	return cmd
}

func runJobsAddCmd(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}

	queries := append([]string(nil), args...)
	if file != "" {
		fromFile, err := readQueryFile(file)
		if err != nil {
			return err
		}
		queries = append(queries, fromFile...)
	}
	if len(queries) == 0 {
		return errors.New("no queries provided (specify queries as arguments or use --file)")
	}

	return withStore(cmd, func(ctx context.Context, _ *config.Config, store database.Store) error {
		state, err := crawler.LoadState(ctx, store)
		if err != nil {
			return err
		}
		added, total, err := state.AddJobs(ctx, queries)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d job(s), %d in queue\n", added, total)
		return nil
	})
}

// readQueryFile reads one query per line, skipping blank lines and
// comments.
func readQueryFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is given by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open query file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return queries, nil
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the job queue in dequeue order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, store database.Store) error {
				jobs, err := store.LoadJobs(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Job queue is empty")
					return nil
				}
				for i, q := range jobs {
					fmt.Fprintf(out, "%3d. %s\n", i+1, q)
				}
				return nil
			})
		},
	}
}

func newJobsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every job from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, store database.Store) error {
				jobs, err := store.LoadJobs(ctx)
				if err != nil {
					return err
				}
				if err := store.SaveJobs(ctx, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d job(s)\n", len(jobs))
				return nil
			})
		},
	}
}
