package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/wsspider/internal/config"
	"github.com/nao1215/wsspider/internal/database"
)

// defaultVisitedLimit is how many entries visited list prints.
const defaultVisitedLimit = 20

// NewVisitedCmd creates the visited command group.
func NewVisitedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visited",
		Short: "Inspect or reset the visited link set",
		Long: `Every refine link the spider crawls is remembered so it is never crawled
again, across jobs and across runs. Clearing the set makes every link
eligible again.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the most recently visited links",
		Args:  cobra.NoArgs,
		RunE:  runVisitedListCmd,
	}
	listCmd.Flags().IntP("limit", "n", defaultVisitedLimit, "Number of entries to print")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every visited link",
		Args:  cobra.NoArgs,
		RunE:  runVisitedClearCmd,
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func runVisitedListCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, _ *config.Config, store database.Store) error {
		total, err := store.CountVisited(ctx)
		if err != nil {
			return err
		}
		visits, err := store.RecentVisits(ctx, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d visited link(s)\n", total)
		for _, v := range visits {
			fmt.Fprintf(out, "%s  %s\n", v.FirstVisit.Format("2006-01-02 15:04:05"), v.Href)
		}
		return nil
	})
}

func runVisitedClearCmd(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, _ *config.Config, store database.Store) error {
		total, err := store.CountVisited(ctx)
		if err != nil {
			return err
		}
		if err := store.ClearVisited(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Visited links cleared (%d)\n", total)
		return nil
	})
}
