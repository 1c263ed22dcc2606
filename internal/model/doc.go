// Package model defines the data structures shared across wsspider.
//
// This package contains the following main types:
//   - Link: A refine link discovered on a result page
//   - Record: One extracted result row streamed to the collector
//   - Extraction: The records, links and query of one page
//   - StatusReport: A snapshot of persisted spider state
//
// Models live in their own package so that crawler, stream and report can
// share them without import cycles.
package model
