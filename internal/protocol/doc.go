// Package protocol defines the WebSocket wire protocol spoken between the
// spider and its collector process.
//
// # Message families
//
// Every frame is a single JSON object. Two families travel from the spider
// to the collector:
//   - Data: an extracted record, sent verbatim with no "cmd" field
//   - Control: {"cmd": <name>, ...payload} for progress telemetry, errors
//     and replies to collector commands
//
// The collector sends control commands (add_jobs, clear_jobs, get_queue,
// start_spider, stop_spider), JSON acknowledgements for stored records, and
// for older collectors a plain-text line per record ("NEW ..." / "DUP ..."
// with a "T:<n> D:<n>" counter suffix).
//
// # Decoding
//
// Decode is a two-stage chain. It first attempts a structured JSON decode
// and, if that fails, a legacy line decode. If both fail the frame is
// reported as ErrUnrecognized and callers discard it; a malformed frame is
// never fatal.
package protocol
