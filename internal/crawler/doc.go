// Package crawler is the FOFA spider engine.
//
// # Architecture
//
// A Spider owns one crawl at a time. A crawl is a batch over the durable
// job queue, a single query, or a plain collection of one result URL.
// For each job the spider walks a fixed state machine:
//
//	Idle -> RunningMainQuery -> RunningSpiderQueue -> Idle
//
// The main query's pages are fetched first. Every refine link found on
// them that is not yet in the visited set seeds a per-job FIFO queue,
// which is then drained. Each link's first page may discover further
// links, appended to the back of the queue. A link's page range is
// fetched at most once across the lifetime of the persisted visited set.
//
// # Components
//
//   - Fetcher: one GET per page, classified into FetchError kinds, retried
//     a fixed number of times with a fixed delay
//   - Extractor: turns a parsed Page into records and refine links; the
//     FOFA markup binding is FOFAExtractor
//   - State: visited set, job queue and preferences, persisted through a
//     Store on every mutation
//   - Spider: the run controller and job state machine
//
// # Cancellation
//
// Stop is cooperative. The running flag is checked before every delay
// and again immediately before every fetch, so a stop issued during a
// delay prevents the next fetch. In-flight requests and delays are not
// interrupted; only cancelling the context does that.
package crawler
