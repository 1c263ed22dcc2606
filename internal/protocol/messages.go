package protocol

// Control command names.
const (
	// Spider to collector.
	CmdClientReady = "client_ready"
	CmdError       = "error"
	CmdJobsAdded   = "jobs_added"
	CmdQueueStatus = "queue_status"
	CmdJobStart    = "job_start"
	CmdJobDone     = "job_done"
	CmdSpiderStart = "spider_start"
	CmdSpiderLink  = "spider_link"
	CmdSpiderDone  = "spider_done"
	CmdBatchStart  = "batch_start"
	CmdBatchDone   = "batch_done"

	// Collector to spider.
	CmdAddJobs     = "add_jobs"
	CmdClearJobs   = "clear_jobs"
	CmdGetQueue    = "get_queue"
	CmdStartSpider = "start_spider"
	CmdStopSpider  = "stop_spider"
)

// ClientType identifies this process in the client_ready handshake.
// The collector routes commands to clients that are not API clients.
const ClientType = "spider"

// Control is an outbound control message.
type Control interface {
	// Command returns the value of the "cmd" field.
	Command() string
}

// ClientReady is the handshake sent right after connecting.
type ClientReady struct {
	Cmd       string `json:"cmd"`
	Type      string `json:"type"`
	ClientID  string `json:"client_id"`
	Jobs      int    `json:"jobs"`
	AutoStart bool   `json:"autoStart"`
}

// NewClientReady returns a handshake declaring the pending job count.
func NewClientReady(clientID string, jobs int, autoStart bool) ClientReady {
	return ClientReady{Cmd: CmdClientReady, Type: ClientType, ClientID: clientID, Jobs: jobs, AutoStart: autoStart}
}

// Command implements Control.
func (m ClientReady) Command() string { return m.Cmd }

// ErrorReport reports a fetch retry or failure.
type ErrorReport struct {
	Cmd string `json:"cmd"`
	Msg string `json:"msg"`
	URL string `json:"url"`
}

// NewErrorReport returns an error message with its URL context.
func NewErrorReport(msg, url string) ErrorReport {
	return ErrorReport{Cmd: CmdError, Msg: msg, URL: url}
}

// Command implements Control.
func (m ErrorReport) Command() string { return m.Cmd }

// JobsAdded answers add_jobs.
type JobsAdded struct {
	Cmd   string `json:"cmd"`
	Added int    `json:"added"`
	Total int    `json:"total"`
}

// NewJobsAdded returns the reply to an add_jobs command.
func NewJobsAdded(added, total int) JobsAdded {
	return JobsAdded{Cmd: CmdJobsAdded, Added: added, Total: total}
}

// Command implements Control.
func (m JobsAdded) Command() string { return m.Cmd }

// QueueStatus answers get_queue.
type QueueStatus struct {
	Cmd     string   `json:"cmd"`
	Jobs    []string `json:"jobs"`
	Count   int      `json:"count"`
	Running bool     `json:"running"`
}

// NewQueueStatus returns a snapshot reply. A nil job list is sent as [].
func NewQueueStatus(jobs []string, running bool) QueueStatus {
	if jobs == nil {
		jobs = []string{}
	}
	return QueueStatus{Cmd: CmdQueueStatus, Jobs: jobs, Count: len(jobs), Running: running}
}

// Command implements Control.
func (m QueueStatus) Command() string { return m.Cmd }

// JobStart marks the beginning of a job.
type JobStart struct {
	Cmd   string `json:"cmd"`
	Query string `json:"query"`
	Idx   int    `json:"idx"`
	Total int    `json:"total"`
}

// NewJobStart returns a job_start message. idx is 1-based.
func NewJobStart(query string, idx, total int) JobStart {
	return JobStart{Cmd: CmdJobStart, Query: query, Idx: idx, Total: total}
}

// Command implements Control.
func (m JobStart) Command() string { return m.Cmd }

// JobDone marks the end of a job.
type JobDone struct {
	Cmd       string `json:"cmd"`
	Query     string `json:"query"`
	Idx       int    `json:"idx"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
}

// NewJobDone returns a job_done message.
func NewJobDone(query string, idx, total, processed int) JobDone {
	return JobDone{Cmd: CmdJobDone, Query: query, Idx: idx, Total: total, Processed: processed}
}

// Command implements Control.
func (m JobDone) Command() string { return m.Cmd }

// SpiderStart marks the start of the link phase of a job.
type SpiderStart struct {
	Cmd   string `json:"cmd"`
	Query string `json:"query"`
	Links int    `json:"links"`
}

// NewSpiderStart returns a spider_start message with the seeded queue size.
func NewSpiderStart(query string, links int) SpiderStart {
	return SpiderStart{Cmd: CmdSpiderStart, Query: query, Links: links}
}

// Command implements Control.
func (m SpiderStart) Command() string { return m.Cmd }

// SpiderLink announces that a link's pages are about to be fetched.
type SpiderLink struct {
	Cmd      string `json:"cmd"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Idx      int    `json:"idx"`
	Query    string `json:"query"`
}

// NewSpiderLink returns a spider_link message. idx is 1-based.
func NewSpiderLink(name, category string, idx int, query string) SpiderLink {
	return SpiderLink{Cmd: CmdSpiderLink, Name: name, Category: category, Idx: idx, Query: query}
}

// Command implements Control.
func (m SpiderLink) Command() string { return m.Cmd }

// SpiderDone marks the end of the link phase of a job.
type SpiderDone struct {
	Cmd       string `json:"cmd"`
	Query     string `json:"query"`
	Processed int    `json:"processed"`
}

// NewSpiderDone returns a spider_done message.
func NewSpiderDone(query string, processed int) SpiderDone {
	return SpiderDone{Cmd: CmdSpiderDone, Query: query, Processed: processed}
}

// Command implements Control.
func (m SpiderDone) Command() string { return m.Cmd }

// BatchStart marks the start of a queue run.
type BatchStart struct {
	Cmd   string `json:"cmd"`
	Total int    `json:"total"`
}

// NewBatchStart returns a batch_start message.
func NewBatchStart(total int) BatchStart {
	return BatchStart{Cmd: CmdBatchStart, Total: total}
}

// Command implements Control.
func (m BatchStart) Command() string { return m.Cmd }

// BatchDone marks the end of a queue run.
type BatchDone struct {
	Cmd       string `json:"cmd"`
	Processed int    `json:"processed"`
}

// NewBatchDone returns a batch_done message.
func NewBatchDone(processed int) BatchDone {
	return BatchDone{Cmd: CmdBatchDone, Processed: processed}
}

// Command implements Control.
func (m BatchDone) Command() string { return m.Cmd }
