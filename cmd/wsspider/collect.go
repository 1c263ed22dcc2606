package main

import (
	"github.com/spf13/cobra"
)

// NewCollectCmd creates the collect command.
func NewCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect <result-url>",
		Short: "Collect the records of one result URL without following links",
		Long: `Collect fetches pages 1..N of a single FOFA result URL and streams the
extracted records to the collector. Refine links are not followed and the
visited set is not touched.

Examples:
  # Collect a result page copied from the browser
  wsspider collect 'https://fofa.info/result?qbase64=YXBwPSJuZ2lueCI%3D'

  # Collect a relative link, resolved against --base-url
  wsspider collect '/result?qbase64=cG9ydD0iODA4MCI%3D' --pages 3`,
		Args: cobra.ExactArgs(1),
		RunE: runCollectCmd,
	}

	addCrawlFlags(cmd)

	return cmd
}

// runCollectCmd executes the collect command.
func runCollectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	return startCrawler(cmd, cfg, modeCollect, args[0])
}
