// Package report renders snapshots of the persisted spider state.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for sharing, built with nao1215/markdown
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably by the status command.
package report
