package crawler

import (
	"errors"
	"fmt"
)

// Sentinel errors. FetchError unwraps to one of the first five.
var (
	// ErrNetwork is a transport-level failure other than a timeout.
	ErrNetwork = errors.New("network error")

	// ErrTimeout is a request that exceeded the per-request timeout.
	ErrTimeout = errors.New("timeout")

	// ErrHTTPStatus is a response with a status other than 200.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrAuthRequired is an unusable page that looks like a login page.
	ErrAuthRequired = errors.New("login required")

	// ErrEmptyOrMalformed is a 200 response that is not a result page.
	ErrEmptyOrMalformed = errors.New("no items found")

	// ErrBodyTooLarge marks a KindEmptyOrMalformed failure whose body
	// did not fit the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrQueueEmpty is returned when starting a batch with no jobs.
	ErrQueueEmpty = errors.New("no jobs in queue")

	// ErrNotConnected is returned when starting a crawl while the
	// collector channel is down.
	ErrNotConnected = errors.New("not connected to collector")

	// ErrAlreadyRunning is returned when a crawl is already in progress.
	ErrAlreadyRunning = errors.New("spider already running")

	// ErrNoQuery is returned by the single-query mode for an empty query.
	ErrNoQuery = errors.New("no query given")
)

// FetchErrorKind classifies a page fetch failure.
type FetchErrorKind int

const (
	// KindNetwork is a transport failure.
	KindNetwork FetchErrorKind = iota
	// KindTimeout is a request timeout.
	KindTimeout
	// KindHTTP is a non-200 status.
	KindHTTP
	// KindAuthRequired is a login page.
	KindAuthRequired
	// KindEmptyOrMalformed is a 200 without result markup.
	KindEmptyOrMalformed
)

// String returns the kind's label, used as a metrics label value.
func (k FetchErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindAuthRequired:
		return "auth_required"
	case KindEmptyOrMalformed:
		return "empty_or_malformed"
	default:
		return "unknown"
	}
}

// FetchError describes why a single fetch attempt failed.
type FetchError struct {
	Kind FetchErrorKind

	// Status is the HTTP status code, set for KindHTTP.
	Status int

	// BodySize is the response size in bytes, set for KindEmptyOrMalformed.
	BodySize int

	// Err is the underlying transport error, if any.
	Err error
}

// Error formats the failure the way it appears in the rolling log and in
// error messages sent to the collector.
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("HTTP %d", e.Status)
	case KindAuthRequired:
		return "Login required"
	case KindEmptyOrMalformed:
		if errors.Is(e.Err, ErrBodyTooLarge) {
			return fmt.Sprintf("Page larger than %d bytes", e.BodySize)
		}
		return fmt.Sprintf("No items found (page size: %d)", e.BodySize)
	case KindTimeout:
		return "Timeout"
	default:
		if e.Err != nil {
			return "Network error: " + e.Err.Error()
		}
		return "Network error"
	}
}

// Unwrap returns the sentinel for the kind and the underlying error.
func (e *FetchError) Unwrap() []error {
	var sentinel error
	switch e.Kind {
	case KindTimeout:
		sentinel = ErrTimeout
	case KindHTTP:
		sentinel = ErrHTTPStatus
	case KindAuthRequired:
		sentinel = ErrAuthRequired
	case KindEmptyOrMalformed:
		sentinel = ErrEmptyOrMalformed
	default:
		sentinel = ErrNetwork
	}
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}
