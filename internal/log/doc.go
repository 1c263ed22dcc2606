// Package log provides the spider's logging stack, built on log/slog.
//
// NewLogger fans every record out to up to three destinations:
//   - the console, at Warn or at Debug in verbose mode
//   - a bounded in-memory Ring that keeps the most recent entries for the
//     status endpoint
//   - an optional JSON log file
//
// # Security Features
//
// Every logger is wrapped in a SecureHandler, which masks sensitive values
// before they reach any destination:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - FOFA session cookies and tokens
//   - values that look like bearer tokens, JWTs or long API keys
//
// # Usage
//
//	ring := log.NewRing(log.DefaultRingSize)
//	logger := log.NewLogger(os.Stderr, log.Options{Verbose: true, Ring: ring})
//	logger.Info("fetching", "url", pageURL, "cookie", cookie) // cookie is masked
//	for _, e := range ring.Entries() {
//	    fmt.Println(e)
//	}
package log
