package stream

import "errors"

var (
	// ErrNotConnected is returned by Send while no connection is open.
	ErrNotConnected = errors.New("collector channel not connected")

	// ErrInvalidURL is returned when the collector URL is not a ws or wss URL.
	ErrInvalidURL = errors.New("invalid collector URL")
)
