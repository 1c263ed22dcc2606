package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wsspider/internal/config"
	"github.com/nao1215/wsspider/internal/crawler"
	wslog "github.com/nao1215/wsspider/internal/log"
	"github.com/nao1215/wsspider/internal/monitor"
	"github.com/nao1215/wsspider/internal/stream"
	"github.com/nao1215/wsspider/internal/transport"
)

// runMode selects what a crawler process does once connected.
type runMode int

const (
	// modeServe keeps the process connected and lets the collector (or
	// auto-start, or POST /toggle) drive the queue.
	modeServe runMode = iota
	// modeOnce drains the queue once and exits.
	modeOnce
	// modeQuery crawls a single query without touching the queue.
	modeQuery
	// modeCollect fetches one result URL without following links.
	modeCollect
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the collector and crawl",
		Long: `Run connects to the collector over a WebSocket and serves it until interrupted.

By default the spider waits for the collector to add jobs and start it. With
--auto-start (or the persisted preference) the queue starts as soon as jobs
are pending. The connection is re-established automatically after a drop.

Examples:
  # Serve the collector on the default endpoint
  wsspider run

  # Drain the persisted queue once and exit
  wsspider run --once

  # Crawl a single query and exit
  wsspider run --query 'app="nginx" && country="JP"'

  # Expose Prometheus metrics, /status and POST /toggle
  wsspider run --metrics-addr 127.0.0.1:9100`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("query", "q", "",
		"Crawl this single query and exit (the job queue is left untouched)")
	cmd.Flags().Bool("once", false,
		"Process the job queue once and exit")
	cmd.Flags().Bool("auto-start", false,
		"Start the queue automatically when jobs are pending (persisted)")
	cmd.Flags().String("metrics-addr", "",
		"Serve /metrics, /status and /toggle on this address")

	return cmd
}

// addCrawlFlags registers the flags shared by every crawling command.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"FOFA origin that job URLs are built against")
	cmd.Flags().String("collector", config.DefaultCollectorURL,
		"WebSocket endpoint of the collector")
	cmd.Flags().IntP("pages", "p", config.DefaultPages,
		"Result pages fetched per query and per link")
	cmd.Flags().Int("page-size", config.DefaultPageSize,
		"page_size parameter sent with every page request")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Pause between page fetches (jobs are separated by twice this)")
	cmd.Flags().Int("retries", config.DefaultMaxRetry,
		"Total attempts per page")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Pause between attempts on the same page")
	cmd.Flags().Duration("reconnect-delay", config.DefaultReconnectDelay,
		"Pause before reconnecting to the collector")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("cookie", "",
		"FOFA session cookie (overrides the configuration file)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent with page requests")
}

// buildCrawlConfig creates a Config from the global and crawl flags and
// merges the configuration file.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
		return nil, err
	}
	if cfg.CollectorURL, err = flags.GetString("collector"); err != nil {
		return nil, err
	}
	if cfg.Pages, err = flags.GetInt("pages"); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = flags.GetInt("page-size"); err != nil {
		return nil, err
	}
	cfg.PagesSet = flags.Changed("pages")
	cfg.PageSizeSet = flags.Changed("page-size")
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.MaxRetry, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = flags.GetDuration("reconnect-delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}

	if f := flags.Lookup("auto-start"); f != nil {
		cfg.AutoStartSet = f.Changed
		if cfg.AutoStart, err = flags.GetBool("auto-start"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("metrics-addr") != nil {
		if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
			return nil, err
		}
	}

	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}
	cfg.ApplySite()

	return cfg, nil
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}

	mode := modeServe
	query, err := cmd.Flags().GetString("query")
	if err != nil {
		return err
	}
	once, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	switch {
	case query != "" && once:
		return errors.New("--query and --once are mutually exclusive")
	case query != "":
		mode = modeQuery
	case once:
		mode = modeOnce
	}

	return startCrawler(cmd, cfg, mode, query)
}

// startCrawler validates cfg, sets up logging and signal handling, and
// runs the crawler process.
func startCrawler(cmd *cobra.Command, cfg *config.Config, mode runMode, target string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ring := wslog.NewRing(cfg.LogMax)
	logger, closeLog, err := setupLogger(cfg, cmd.ErrOrStderr(), ring)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawler(ctx, cfg, mode, target, logger, ring, cmd.OutOrStdout())
}

// runCrawler wires the crawler components and runs them until ctx is
// cancelled or the selected mode completes.
func runCrawler(ctx context.Context, cfg *config.Config, mode runMode, target string, logger *slog.Logger, ring *wslog.Ring, out io.Writer) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := crawler.LoadState(ctx, store)
	if err != nil {
		return err
	}
	if cfg.AutoStartSet {
		if err := state.SetAutoStart(ctx, cfg.AutoStart); err != nil {
			logger.Warn("auto-start preference not persisted", "error", err)
		}
	}

	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)", err, cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	client, err := transport.NewHTTPClient(transport.Options{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
		Cookie:       cfg.Cookie,
		Headers:      cfg.Headers,
		UserAgent:    cfg.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if cfg.Cookie == "" {
		logger.Warn("no FOFA session cookie configured; results may require login")
	}

	channel, err := stream.New(cfg.CollectorURL,
		stream.WithReconnectDelay(cfg.ReconnectDelay),
		stream.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	metrics := monitor.NewMetrics()
	extractor := crawler.FOFAExtractor{}
	fetcher := crawler.NewFetcher(client, extractor,
		crawler.WithRetry(cfg.MaxRetry, cfg.RetryDelay),
		crawler.WithReporter(channel),
		crawler.WithFetchLogger(logger),
		crawler.WithFetchMetrics(metrics),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)
	spider := crawler.NewSpider(fetcher, extractor, state, channel,
		crawler.WithBaseURL(cfg.BaseURL),
		crawler.WithPages(cfg.Pages),
		crawler.WithPageSize(cfg.PageSize),
		crawler.WithDelay(cfg.Delay),
		crawler.WithLogger(logger),
		crawler.WithMetrics(metrics),
		crawler.WithAutoStart(mode == modeServe),
	)

	logger.Info("starting spider",
		"collector", cfg.CollectorURL,
		"store", cfg.Store,
		"jobs", state.JobCount(),
		"visited", state.VisitedCount(),
		"autoStart", state.AutoStart(),
	)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return channel.Run(runCtx, spider)
	})

	if cfg.MetricsAddr != "" {
		srv := monitor.NewServer(runCtx, metrics, spider, state, channel, ring, logger)
		g.Go(func() error {
			if err := srv.ListenAndServe(runCtx, cfg.MetricsAddr); err != nil {
				return fmt.Errorf("monitor server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer stop()
		return mode.drive(runCtx, spider, channel, target, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	stats := channel.Stats()
	fmt.Fprintf(out, "T:%d D:%d | +%d =%d E:%d\n", stats.Total, stats.Today, stats.New, stats.Dup, stats.Errors)
	return nil
}

// drive performs the mode's work. It returns when the work is done or
// ctx is cancelled.
func (m runMode) drive(ctx context.Context, spider *crawler.Spider, channel *stream.Channel, target string, logger *slog.Logger) error {
	if m == modeServe {
		<-ctx.Done()
		spider.Stop()
		spider.Wait()
		return nil
	}

	if err := channel.WaitConnected(ctx); err != nil {
		return nil //nolint:nilerr // cancelled before the collector came up
	}

	var err error
	switch m {
	case modeOnce:
		err = spider.RunQueue(ctx)
		if errors.Is(err, crawler.ErrQueueEmpty) {
			logger.Warn("job queue is empty")
			err = nil
		}
	case modeQuery:
		err = spider.RunQuery(ctx, target)
	case modeCollect:
		err = spider.Collect(ctx, target)
	}
	return err
}
