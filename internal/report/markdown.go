package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/wsspider/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.StatusReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeQueue(md, report)
	w.writeVisits(md, report)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by wsspider*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.StatusReport) {
	md.H1("wsspider Status")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", report.GeneratedAt.Format(timeLayout)},
			{"Store", report.Store},
			{"Auto-start", onOff(report.AutoStart)},
			{"Pending Jobs", strconv.Itoa(len(report.Jobs))},
			{"Visited Links", strconv.Itoa(report.VisitedCount)},
		},
	})
	md.PlainText("")

	if report.AutoStart && len(report.Jobs) > 0 {
		md.Tip("The queue will start on the next connection to the collector.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeQueue(md *markdown.Markdown, report *model.StatusReport) {
	md.H2("Job Queue")
	md.PlainText("")

	if len(report.Jobs) == 0 {
		md.Note("The job queue is empty.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Jobs))
	for i, q := range report.Jobs {
		rows[i] = []string{strconv.Itoa(i + 1), "`" + q + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Query"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeVisits(md *markdown.Markdown, report *model.StatusReport) {
	md.H2("Recent Visits")
	md.PlainText("")

	if len(report.RecentVisits) == 0 {
		md.PlainText("No links visited yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.RecentVisits))
	for i, v := range report.RecentVisits {
		rows[i] = []string{v.FirstVisit.Format(timeLayout), truncateString(v.Href, hrefMaxWidth)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"First Visit", "Link"},
		Rows:   rows,
	})
	md.PlainText("")
}
