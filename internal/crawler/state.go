package crawler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Preference keys shared with the database package.
const (
	prefAutoStart = "autoStart"
	prefPanelOpen = "panelOpen"
)

// Store persists State. database.StateDB and database.RedisStore
// implement it.
type Store interface {
	LoadVisited(ctx context.Context) (map[string]int64, error)
	MarkVisited(ctx context.Context, href string, at time.Time) error
	LoadJobs(ctx context.Context) ([]string, error)
	SaveJobs(ctx context.Context, jobs []string) error
	LoadPreference(ctx context.Context, key string) (bool, error)
	SavePreference(ctx context.Context, key string, value bool) error
}

// State is the spider's durable state: the visited set, the job queue
// and the preferences. Every mutation is written through to the Store.
// It is safe for concurrent use; inbound commands mutate it from the
// channel goroutine while a crawl reads it.
type State struct {
	mu        sync.Mutex
	store     Store
	visited   map[string]int64
	jobs      []string
	autoStart bool
	panelOpen bool
}

// LoadState reads the persisted state from store.
func LoadState(ctx context.Context, store Store) (*State, error) {
	visited, err := store.LoadVisited(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load visited set: %w", err)
	}
	jobs, err := store.LoadJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load job queue: %w", err)
	}
	autoStart, err := store.LoadPreference(ctx, prefAutoStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	panelOpen, err := store.LoadPreference(ctx, prefPanelOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	if visited == nil {
		visited = make(map[string]int64)
	}
	return &State{
		store:     store,
		visited:   visited,
		jobs:      jobs,
		autoStart: autoStart,
		panelOpen: panelOpen,
	}, nil
}

// AddJobs appends the queries that are non-empty and not already queued.
// Duplicates within queries count once. It returns the number added and
// the new queue length. The in-memory queue is updated even if
// persisting fails.
func (s *State) AddJobs(ctx context.Context, queries []string) (added, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range queries {
		if q == "" || slices.Contains(s.jobs, q) {
			continue
		}
		s.jobs = append(s.jobs, q)
		added++
	}
	if added > 0 {
		err = s.saveJobsLocked(ctx)
	}
	return added, len(s.jobs), err
}

// PopJob removes and returns the head of the queue, persisting the
// shortened queue before returning.
func (s *State) PopJob(ctx context.Context) (job string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) == 0 {
		return "", false, nil
	}
	job = s.jobs[0]
	s.jobs = slices.Clone(s.jobs[1:])
	return job, true, s.saveJobsLocked(ctx)
}

// ClearJobs empties the queue.
func (s *State) ClearJobs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = nil
	return s.saveJobsLocked(ctx)
}

// Jobs returns a copy of the queue.
func (s *State) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.jobs)
}

// JobCount returns the queue length.
func (s *State) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *State) saveJobsLocked(ctx context.Context) error {
	if err := s.store.SaveJobs(ctx, slices.Clone(s.jobs)); err != nil {
		return fmt.Errorf("failed to persist job queue: %w", err)
	}
	return nil
}

// IsVisited reports whether href is in the visited set.
func (s *State) IsVisited(href string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[href]
	return ok
}

// MarkVisited adds href to the visited set and persists it. It returns
// false if href was already visited, in which case nothing is written.
func (s *State) MarkVisited(ctx context.Context, href string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.visited[href]; ok {
		return false, nil
	}
	s.visited[href] = at.UnixMilli()
	if err := s.store.MarkVisited(ctx, href, at); err != nil {
		return true, fmt.Errorf("failed to persist visited link: %w", err)
	}
	return true, nil
}

// VisitedCount returns the size of the visited set.
func (s *State) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// AutoStart returns the auto-start preference.
func (s *State) AutoStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoStart
}

// SetAutoStart updates and persists the auto-start preference.
func (s *State) SetAutoStart(ctx context.Context, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoStart = v
	if err := s.store.SavePreference(ctx, prefAutoStart, v); err != nil {
		return fmt.Errorf("failed to persist preference: %w", err)
	}
	return nil
}

// PanelOpen returns the stored panel preference. The headless spider has
// no panel; the value is carried so that a shared store keeps it.
func (s *State) PanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}
