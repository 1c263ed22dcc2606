package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidBaseURL is returned when the FOFA base URL is not absolute.
	ErrInvalidBaseURL = errors.New("invalid base url: must be an absolute http(s) url")

	// ErrInvalidCollectorURL is returned when the collector URL is not ws:// or wss://.
	ErrInvalidCollectorURL = errors.New("invalid collector url: must use ws or wss scheme")

	// ErrInvalidPages is returned when the page count is not positive.
	ErrInvalidPages = errors.New("invalid pages: must be positive")

	// ErrInvalidPageSize is returned when the page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidMaxRetry is returned when the attempt count is not positive.
	ErrInvalidMaxRetry = errors.New("invalid max retry: must be positive")

	// ErrInvalidDelay is returned when any delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to select the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownStore is returned for a store name other than sqlite or redis.
	ErrUnknownStore = errors.New("unknown store: must be sqlite or redis")

	// ErrMissingRedisAddr is returned when the redis store has no address.
	ErrMissingRedisAddr = errors.New("redis store requires --redis-addr")
)
