// Package stream implements the persistent WebSocket channel between the
// spider and its collector process.
//
// A Channel carries two kinds of outbound traffic: extracted records, one
// JSON object per message, and control messages (see package protocol).
// Sends never block the crawl on the network and never buffer: while the
// channel is disconnected, messages are dropped.
//
// Inbound frames are decoded with protocol.Decode. Commands are handed to
// a Handler; collector acknowledgements and legacy status lines update
// the channel's CollectorStats. Everything else is discarded.
//
// Run keeps the channel connected until its context is cancelled,
// redialling after a fixed delay whenever the connection drops.
package stream
