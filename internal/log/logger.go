package log

import (
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures NewLogger.
type Options struct {
	// Verbose lowers the console level from Warn to Debug.
	Verbose bool

	// JSON selects JSON console output instead of text.
	JSON bool

	// Ring, if set, receives every record at Info and above regardless of
	// Verbose.
	Ring *Ring

	// File, if set, receives every record as JSON at Debug and above.
	File io.Writer
}

// NewLogger builds the application logger: console output fanned out
// to the rolling log and an optional JSON file, all behind a SecureHandler.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if opts.JSON {
		console = slog.NewJSONHandler(w, handlerOpts)
	} else {
		console = slog.NewTextHandler(w, handlerOpts)
	}

	handlers := []slog.Handler{console}
	if opts.Ring != nil {
		handlers = append(handlers, NewRingHandler(opts.Ring, slog.LevelInfo))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.File, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(NewSecureHandler(slogmulti.Fanout(handlers...)))
}
