package database

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/wsspider/internal/model"
)

// Preference keys.
const (
	// PrefAutoStart starts the queue when jobs arrive.
	PrefAutoStart = "autoStart"

	// PrefPanelOpen is kept for parity with the browser panel state.
	PrefPanelOpen = "panelOpen"
)

// ErrEmptyHref is returned when marking an empty href as visited.
var ErrEmptyHref = errors.New("href must not be empty")

// Store is the durable state shared by every backend.
type Store interface {
	// LoadVisited returns every visited href with its first-visit time
	// in epoch milliseconds.
	LoadVisited(ctx context.Context) (map[string]int64, error)

	// MarkVisited records href as visited at at. An existing entry keeps
	// its original timestamp.
	MarkVisited(ctx context.Context, href string, at time.Time) error

	// ClearVisited removes every visited entry.
	ClearVisited(ctx context.Context) error

	// CountVisited returns the size of the visited set.
	CountVisited(ctx context.Context) (int, error)

	// RecentVisits returns up to limit entries, newest first.
	RecentVisits(ctx context.Context, limit int) ([]model.Visit, error)

	// LoadJobs returns the persisted job queue in order.
	LoadJobs(ctx context.Context) ([]string, error)

	// SaveJobs replaces the persisted job queue.
	SaveJobs(ctx context.Context, jobs []string) error

	// LoadPreference returns a boolean preference; missing keys are false.
	LoadPreference(ctx context.Context, key string) (bool, error)

	// SavePreference stores a boolean preference.
	SavePreference(ctx context.Context, key string, value bool) error

	// Close releases the backend.
	Close() error
}
