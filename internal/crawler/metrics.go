package crawler

// Metrics receives crawl counters. The monitor package provides the
// Prometheus implementation.
type Metrics interface {
	FetchAttempt()
	FetchFailed(kind string)
	PageFetched()
	RecordsEmitted(n int)
	LinkVisited()
	JobCompleted()
	SetRunning(running bool)
}

type nopMetrics struct{}

func (nopMetrics) FetchAttempt()      {}
func (nopMetrics) FetchFailed(string) {}
func (nopMetrics) PageFetched()       {}
func (nopMetrics) RecordsEmitted(int) {}
func (nopMetrics) LinkVisited()       {}
func (nopMetrics) JobCompleted()      {}
func (nopMetrics) SetRunning(bool)    {}
