package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Run is one recorded run attempt.
type Run struct {
	ID          string
	Goal        string
	Strategy    string
	Source      string
	Outcome     string
	FailureCode string
	FailedStep  int
	Distance    int
	CacheFile   string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Outcome values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Source values.
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// Store provides durable storage for the run history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path. Applies pragmas and
// the schema automatically; safe to call repeatedly on the same file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history database: %w", err)
	}

	// Single writer avoids SQLITE_BUSY under the one-connection pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts one run record.
func (s *Store) Append(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, goal, strategy, source, outcome, failure_code, failed_step, distance, cache_file, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Goal,
		run.Strategy,
		run.Source,
		run.Outcome,
		run.FailureCode,
		run.FailedStep,
		run.Distance,
		run.CacheFile,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first, up to limit.
// A non-empty goal filters to runs for that goal.
func (s *Store) List(ctx context.Context, goal string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, goal, strategy, source, outcome, failure_code, failed_step, distance, cache_file, started_at, finished_at
		FROM runs
	`
	args := []any{}
	if goal != "" {
		query += " WHERE goal = ?"
		args = append(args, goal)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Goal, &r.Strategy, &r.Source, &r.Outcome,
			&r.FailureCode, &r.FailedStep, &r.Distance, &r.CacheFile, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finished, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// applySchema installs the schema and stamps the version on first use.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	}
	if err != nil {
		return err
	}
	if version != currentSchemaVersion {
		return fmt.Errorf("unsupported history schema version %d (want %d)", version, currentSchemaVersion)
	}
	return nil
}
