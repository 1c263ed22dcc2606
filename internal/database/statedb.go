package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wsspider/internal/model"
)

// DBFileName is the SQLite file created inside the data directory.
const DBFileName = "wsspider.db"

// StateDB is the SQLite implementation of Store.
type StateDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

var _ Store = (*StateDB)(nil)

// Options configures StateDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that `wsspider status`
	// can read while a crawl is writing.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a StateDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*StateDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &StateDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (sdb *StateDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *StateDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *StateDB) createTables() error {
	schema := `
	-- Links whose page range has been fetched; first visit wins
	CREATE TABLE IF NOT EXISTS visited (
		href TEXT PRIMARY KEY,
		first_visit INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_visited_first_visit ON visited(first_visit);

	-- Pending search queries in dequeue order
	CREATE TABLE IF NOT EXISTS job_queue (
		position INTEGER PRIMARY KEY,
		query TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// LoadVisited implements Store.
func (sdb *StateDB) LoadVisited(ctx context.Context) (map[string]int64, error) {
	rows, err := sdb.db.QueryContext(ctx, "SELECT href, first_visit FROM visited")
	if err != nil {
		return nil, fmt.Errorf("failed to query visited: %w", err)
	}
	defer rows.Close()

	visited := make(map[string]int64)
	for rows.Next() {
		var (
			href string
			ts   int64
		)
		if err := rows.Scan(&href, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan visited: %w", err)
		}
		visited[href] = ts
	}
	return visited, rows.Err()
}

// MarkVisited implements Store.
func (sdb *StateDB) MarkVisited(ctx context.Context, href string, at time.Time) error {
	if href == "" {
		return ErrEmptyHref
	}
	_, err := sdb.db.ExecContext(ctx,
		"INSERT INTO visited (href, first_visit) VALUES (?, ?) ON CONFLICT(href) DO NOTHING",
		href, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to mark visited: %w", err)
	}
	return nil
}

// ClearVisited implements Store.
func (sdb *StateDB) ClearVisited(ctx context.Context) error {
	if _, err := sdb.db.ExecContext(ctx, "DELETE FROM visited"); err != nil {
		return fmt.Errorf("failed to clear visited: %w", err)
	}
	return nil
}

// CountVisited implements Store.
func (sdb *StateDB) CountVisited(ctx context.Context) (int, error) {
	var n int
	if err := sdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visited").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count visited: %w", err)
	}
	return n, nil
}

// RecentVisits implements Store.
func (sdb *StateDB) RecentVisits(ctx context.Context, limit int) ([]model.Visit, error) {
	rows, err := sdb.db.QueryContext(ctx,
		"SELECT href, first_visit FROM visited ORDER BY first_visit DESC, href ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent visits: %w", err)
	}
	defer rows.Close()

	var visits []model.Visit
	for rows.Next() {
		var (
			v  model.Visit
			ts int64
		)
		if err := rows.Scan(&v.Href, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.FirstVisit = time.UnixMilli(ts)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// LoadJobs implements Store.
func (sdb *StateDB) LoadJobs(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, "SELECT query FROM job_queue ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, q)
	}
	return jobs, rows.Err()
}

// SaveJobs implements Store. The queue is replaced in one transaction.
func (sdb *StateDB) SaveJobs(ctx context.Context, jobs []string) (err error) {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM job_queue"); err != nil {
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	for i, q := range jobs {
		if _, err = tx.ExecContext(ctx, "INSERT INTO job_queue (position, query) VALUES (?, ?)", i, q); err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit jobs: %w", err)
	}
	return nil
}

// LoadPreference implements Store.
func (sdb *StateDB) LoadPreference(ctx context.Context, key string) (bool, error) {
	var v int
	err := sdb.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load preference %s: %w", key, err)
	}
	return v != 0, nil
}

// SavePreference implements Store.
func (sdb *StateDB) SavePreference(ctx context.Context, key string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	_, err := sdb.db.ExecContext(ctx,
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, v)
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}
