package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/wsspider/internal/model"
)

const (
	ruleWidth    = 70
	timeLayout   = "2006-01-02 15:04:05 MST"
	hrefMaxWidth = 80
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose prints links untruncated.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose disables truncation of long links.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.StatusReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeQueue(&sb, report)
	w.writeVisits(&sb, report)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.StatusReport) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          WSSPIDER STATUS\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Generated:   %s\n", report.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Store:       %s\n", report.Store)
	fmt.Fprintf(sb, "Auto-start:  %s\n", onOff(report.AutoStart))
	fmt.Fprintf(sb, "Jobs:        %d\n", len(report.Jobs))
	fmt.Fprintf(sb, "Visited:     %d\n", report.VisitedCount)
	sb.WriteString("\n")
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeQueue(sb *strings.Builder, report *model.StatusReport) {
	if len(report.Jobs) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "JOB QUEUE")
	if len(report.Jobs) == 0 {
		sb.WriteString("  Queue is empty\n\n")
		return
	}
	for i, q := range report.Jobs {
		fmt.Fprintf(sb, "  %3d. %s\n", i+1, q)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVisits(sb *strings.Builder, report *model.StatusReport) {
	if len(report.RecentVisits) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "RECENT VISITS")
	if len(report.RecentVisits) == 0 {
		sb.WriteString("  No links visited\n\n")
		return
	}
	for _, v := range report.RecentVisits {
		href := v.Href
		if !w.verbose {
			href = truncateString(href, hrefMaxWidth)
		}
		fmt.Fprintf(sb, "  %s  %s\n", v.FirstVisit.Format(timeLayout), href)
	}
	sb.WriteString("\n")
}
