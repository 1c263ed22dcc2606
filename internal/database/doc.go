// Package database persists the spider's durable state: the visited-link
// set, the pending job queue and the boolean UI preferences.
//
// Two backends implement Store:
//   - StateDB, a single SQLite file (modernc.org/sqlite, CGO-free) under
//     the XDG data directory. This is the default.
//   - RedisStore, for operators who run several spiders against one
//     shared visited set.
//
// Visited timestamps are stored as Unix epoch milliseconds. Only the
// first visit of an href is ever recorded.
package database
