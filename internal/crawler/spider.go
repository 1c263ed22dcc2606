package crawler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/wsspider/internal/model"
	"github.com/nao1215/wsspider/internal/protocol"
)

// Default pacing, matching config defaults.
const (
	defaultPages    = 6
	defaultPageSize = 10
	defaultDelay    = 2500 * time.Millisecond
	defaultBaseURL  = "https://fofa.info"
)

// Sink is the outbound side of the collector channel. Sends are
// fire-and-forget: a disconnected sink drops messages.
type Sink interface {
	SendRecord(r model.Record)
	SendControl(msg protocol.Control)
	Connected() bool
}

// Spider is the run controller. At most one crawl runs at a time.
type Spider struct {
	fetcher   *Fetcher
	extractor Extractor
	state     *State
	sink      Sink
	logger    *slog.Logger
	metrics   Metrics

	baseURL  string
	pages    int
	pageSize int
	delay    time.Duration
	sleep    SleepFunc
	now      func() time.Time

	// autoStart gates the persisted auto-start preference.
	autoStart bool

	// active is held for the whole lifetime of a crawl. running is the
	// cooperative flag the crawl polls; Stop clears it.
	active  atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Spider.
type Option func(*Spider)

// WithBaseURL sets the origin for job URLs and relative links.
func WithBaseURL(u string) Option {
	return func(s *Spider) {
		s.baseURL = u
	}
}

// WithPages sets how many pages are fetched per query and per link.
func WithPages(n int) Option {
	return func(s *Spider) {
		if n > 0 {
			s.pages = n
		}
	}
}

// WithPageSize sets the page_size parameter.
func WithPageSize(n int) Option {
	return func(s *Spider) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDelay sets the pause between page fetches. Jobs are separated by
// twice this value.
func WithDelay(d time.Duration) Option {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSleep replaces the function used for inter-request delays.
func WithSleep(sleep SleepFunc) Option {
	return func(s *Spider) {
		s.sleep = sleep
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Spider) {
		s.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Spider) {
		s.metrics = m
	}
}

// WithClock sets the time source for visited timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Spider) {
		s.now = now
	}
}

// WithAutoStart controls whether the persisted auto-start preference may
// start the queue on connect or after add_jobs. Processes that drive the
// crawl themselves pass false.
func WithAutoStart(enabled bool) Option {
	return func(s *Spider) {
		s.autoStart = enabled
	}
}

// NewSpider creates a Spider.
func NewSpider(fetcher *Fetcher, extractor Extractor, state *State, sink Sink, opts ...Option) *Spider {
	s := &Spider{
		fetcher:   fetcher,
		extractor: extractor,
		state:     state,
		sink:      sink,
		logger:    slog.New(slog.DiscardHandler),
		metrics:   nopMetrics{},
		baseURL:   defaultBaseURL,
		pages:     defaultPages,
		pageSize:  defaultPageSize,
		delay:     defaultDelay,
		sleep:     Sleep,
		now:       time.Now,
		autoStart: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a crawl is in progress.
func (s *Spider) Running() bool {
	return s.active.Load()
}

// Stop asks the current crawl to end at its next checkpoint.
func (s *Spider) Stop() {
	if s.running.CompareAndSwap(true, false) {
		s.logger.Warn("stop requested")
	}
}

// Wait blocks until a crawl started with StartQueue has ended.
func (s *Spider) Wait() {
	s.wg.Wait()
}

func (s *Spider) acquire() error {
	if !s.sink.Connected() {
		return ErrNotConnected
	}
	if !s.active.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.running.Store(true)
	s.metrics.SetRunning(true)
	return nil
}

func (s *Spider) release() {
	s.running.Store(false)
	s.active.Store(false)
	s.metrics.SetRunning(false)
}

// RunQueue processes the durable job queue until it is empty or the
// crawl is stopped. It blocks.
func (s *Spider) RunQueue(ctx context.Context) error {
	if s.active.Load() {
		return ErrAlreadyRunning
	}
	if s.state.JobCount() == 0 {
		return ErrQueueEmpty
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.runBatch(ctx)
	return nil
}

// StartQueue is RunQueue in a new goroutine. It returns as soon as the
// crawl has been started.
func (s *Spider) StartQueue(ctx context.Context) error {
	if s.active.Load() {
		return ErrAlreadyRunning
	}
	if s.state.JobCount() == 0 {
		return ErrQueueEmpty
	}
	if err := s.acquire(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		s.runBatch(ctx)
	}()
	return nil
}

// Toggle is the local start/stop trigger: it stops a running crawl and
// otherwise starts the queue.
func (s *Spider) Toggle(ctx context.Context) error {
	if s.Running() {
		s.Stop()
		return nil
	}
	return s.StartQueue(ctx)
}

// RunQuery crawls a single query without touching the job queue.
func (s *Spider) RunQuery(ctx context.Context, query string) error {
	if query == "" {
		return ErrNoQuery
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.logger.Info("spider", "query", query)
	s.runJob(ctx, query, 1, 1)
	return nil
}

// Collect fetches the pages of one result URL and emits their records
// without following any links.
func (s *Spider) Collect(ctx context.Context, rawURL string) error {
	target, err := ResolveHref(s.baseURL, rawURL)
	if err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.logger.Info("collecting", "url", target)

	query := ""
	for page := 1; page <= s.pages; page++ {
		pageURL := target
		if page > 1 {
			if !s.checkpoint(ctx) {
				break
			}
			if pageURL, err = PageURL(target, page, s.pageSize); err != nil {
				return err
			}
		}
		if ext := s.fetchAndEmit(ctx, pageURL, query); ext != nil && query == "" {
			query = ext.Query
		}
	}

	s.logger.Info("collection complete", "url", target)
	return nil
}

func (s *Spider) runBatch(ctx context.Context) {
	total := s.state.JobCount()
	s.logger.Info("starting jobs", "total", total)
	s.sink.SendControl(protocol.NewBatchStart(total))

	idx := 0
	for s.running.Load() && ctx.Err() == nil {
		query, ok, err := s.state.PopJob(ctx)
		if err != nil {
			s.logger.Warn("job queue not persisted", "error", err)
		}
		if !ok {
			break
		}
		idx++

		s.runJob(ctx, query, idx, total)

		if s.state.JobCount() > 0 && s.running.Load() {
			s.logger.Info("waiting before next job")
			if err := s.sleep(ctx, 2*s.delay); err != nil {
				break
			}
		}
	}

	s.logger.Info("batch complete", "jobs", idx)
	s.sink.SendControl(protocol.NewBatchDone(idx))
}

// runJob runs one job through RunningMainQuery and RunningSpiderQueue
// and returns the number of links processed.
func (s *Spider) runJob(ctx context.Context, query string, idx, total int) int {
	s.logger.Info("job started", "idx", idx, "total", total, "query", truncate(query, 40))
	s.sink.SendControl(protocol.NewJobStart(query, idx, total))

	jobURL := JobURL(s.baseURL, query)

	var discovered []model.Link
	for page := 1; page <= s.pages; page++ {
		pageURL := jobURL
		if page > 1 {
			if !s.checkpoint(ctx) {
				break
			}
			var err error
			if pageURL, err = PageURL(jobURL, page, s.pageSize); err != nil {
				s.logger.Error("invalid page url", "error", err)
				break
			}
		}
		if ext := s.fetchAndEmit(ctx, pageURL, query); ext != nil {
			discovered = append(discovered, ext.Links...)
		}
	}

	// queued holds every href queued during this job
	queued := make(map[string]struct{})
	var queue []model.Link
	enqueue := func(links []model.Link) int {
		n := 0
		for _, l := range links {
			if _, ok := queued[l.Href]; ok || s.state.IsVisited(l.Href) {
				continue
			}
			queued[l.Href] = struct{}{}
			queue = append(queue, l)
			n++
		}
		return n
	}

	enqueue(discovered)
	s.logger.Info("spider queue", "links", len(queue))
	s.sink.SendControl(protocol.NewSpiderStart(query, len(queue)))

	processed := 0
	for len(queue) > 0 && s.running.Load() && ctx.Err() == nil {
		link := queue[0]
		queue = queue[1:]

		marked, err := s.state.MarkVisited(ctx, link.Href, s.now())
		if err != nil {
			s.logger.Warn("visited set not persisted", "href", link.Href, "error", err)
		}
		if !marked {
			continue
		}
		processed++
		s.metrics.LinkVisited()

		s.logger.Info("link", "idx", processed, "category", link.Category, "name", link.Name)
		s.sink.SendControl(protocol.NewSpiderLink(link.Name, link.Category, processed, query))

		linkURL, err := ResolveHref(s.baseURL, link.Href)
		if err != nil {
			s.logger.Error("invalid link", "href", link.Href, "error", err)
			continue
		}

		for page := 1; page <= s.pages; page++ {
			if !s.checkpoint(ctx) {
				break
			}
			pageURL, err := PageURL(linkURL, page, s.pageSize)
			if err != nil {
				s.logger.Error("invalid page url", "error", err)
				break
			}
			ext := s.fetchAndEmit(ctx, pageURL, query)
			if page == 1 && ext != nil {
				if n := enqueue(ext.Links); n > 0 {
					s.logger.Info("new links", "added", n, "queue", len(queue))
				}
			}
		}
	}

	s.logger.Info("job done", "idx", idx, "links", processed)
	s.sink.SendControl(protocol.NewSpiderDone(query, processed))
	s.sink.SendControl(protocol.NewJobDone(query, idx, total, processed))
	s.metrics.JobCompleted()
	return processed
}

// checkpoint runs the inter-request delay. It reports false if the crawl
// was stopped before or during the delay, or ctx was cancelled.
func (s *Spider) checkpoint(ctx context.Context) bool {
	if !s.running.Load() {
		return false
	}
	if err := s.sleep(ctx, s.delay); err != nil {
		return false
	}
	return s.running.Load()
}

// fetchAndEmit fetches one page and sends its records. It returns nil
// when the page failed after all retries; the failure has already been
// logged and reported.
func (s *Spider) fetchAndEmit(ctx context.Context, pageURL, query string) *model.Extraction {
	page, err := s.fetcher.FetchWithRetry(ctx, pageURL)
	if err != nil {
		return nil
	}

	ext := s.extractor.Extract(page, query)
	for _, r := range ext.Records {
		s.sink.SendRecord(r)
	}
	s.metrics.RecordsEmitted(len(ext.Records))

	if len(ext.Records) > 0 {
		s.logger.Info("page", "url", pageURL, "results", len(ext.Records))
	} else {
		s.logger.Warn("page", "url", pageURL, "results", 0)
	}
	return ext
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
