package model

import "time"

// Visit is one entry of the visited set.
type Visit struct {
	// Href is the link identity.
	Href string `json:"href"`

	// FirstVisit is when the link's fetch sequence was started.
	FirstVisit time.Time `json:"first_visit"`
}

// CollectorStats are the counters reported back by the collector process,
// plus the local fetch error count.
type CollectorStats struct {
	Total  int `json:"total"`
	Today  int `json:"today"`
	New    int `json:"new"`
	Dup    int `json:"dup"`
	Errors int `json:"errors"`
}

// StatusReport is a snapshot of the persisted spider state.
type StatusReport struct {
	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`

	// Store names the backend the state was read from.
	Store string `json:"store"`

	// Jobs is the pending job queue in dequeue order.
	Jobs []string `json:"jobs"`

	// VisitedCount is the size of the visited set.
	VisitedCount int `json:"visited_count"`

	// RecentVisits holds the most recently visited links, newest first.
	RecentVisits []Visit `json:"recent_visits,omitempty"`

	// AutoStart is the persisted auto-start preference.
	AutoStart bool `json:"auto_start"`
}
