// Package store persists run reports and violation evidence to SQLite.
//
// The store is a sink: the engine never depends on it, the CLI writes a
// finished RunReport after the run and reads it back for replay and
// inspection. Forbidden outcomes are rare and precious evidence, so the
// full record, including the per-variable trace, survives the process.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Store provides durable storage for litmus run reports.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path (":memory:"
// for tests). Applies pragmas and the schema idempotently.
//
// SQLite supports one writer at a time, so the pool is capped at a single
// connection; runs are written whole, after the harness loop has finished,
// so contention never reaches the timed sections.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
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

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// SaveReport writes a finished run report atomically: the run row, its
// histogram, and its evidence records commit together or not at all.
func (s *Store) SaveReport(ctx context.Context, r *litmus.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save of run %s: %w", r.RunID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, test, status, seed, trials, forbidden, unexpected, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Test, string(r.Status), int64(r.Seed), r.Trials,
		int64(r.Forbidden), int64(r.Unexpected), nullable(r.Fault),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	for key, count := range r.Histogram {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_outcomes (run_id, outcome, count) VALUES (?, ?, ?)`,
			r.RunID, key, int64(count),
		); err != nil {
			return fmt.Errorf("insert outcome %q for run %s: %w", key, r.RunID, err)
		}
	}

	for _, ev := range r.Evidence {
		var vars any
		if ev.Vars != nil {
			blob, err := json.Marshal(ev.Vars)
			if err != nil {
				return fmt.Errorf("marshal evidence trace for trial %d: %w", ev.Trial, err)
			}
			vars = string(blob)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_violations (run_id, trial, seed, outcome, classification, vars)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, ev.Trial, int64(ev.Seed), ev.Key, ev.Classification, vars,
		); err != nil {
			return fmt.Errorf("insert violation trial %d for run %s: %w", ev.Trial, r.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.RunID, err)
	}
	return nil
}

// GetReport reads a stored run report back, including histogram and
// evidence.
func (s *Store) GetReport(ctx context.Context, runID string) (*litmus.RunReport, error) {
	r := &litmus.RunReport{RunID: runID, Histogram: map[string]uint64{}}
	var status string
	var seed, forbidden, unexpected int64
	var fault sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT test, status, seed, trials, forbidden, unexpected, fault
		FROM runs WHERE id = ?`, runID,
	).Scan(&r.Test, &status, &seed, &r.Trials, &forbidden, &unexpected, &fault)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	r.Status = litmus.Status(status)
	r.Seed = uint32(seed)
	r.Forbidden = uint64(forbidden)
	r.Unexpected = uint64(unexpected)
	r.Fault = fault.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, count FROM run_outcomes WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("read outcomes for run %s: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		r.Histogram[key] = uint64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	evRows, err := s.db.QueryContext(ctx, `
		SELECT trial, seed, outcome, classification, vars
		FROM run_violations WHERE run_id = ? ORDER BY trial`, runID)
	if err != nil {
		return nil, fmt.Errorf("read violations for run %s: %w", runID, err)
	}
	defer evRows.Close()
	for evRows.Next() {
		var ev litmus.Evidence
		var evSeed int64
		var vars sql.NullString
		if err := evRows.Scan(&ev.Trial, &evSeed, &ev.Key, &ev.Classification, &vars); err != nil {
			return nil, fmt.Errorf("scan violation row: %w", err)
		}
		ev.Seed = uint32(evSeed)
		ev.Outcome, err = parseOutcomeKey(ev.Key)
		if err != nil {
			return nil, fmt.Errorf("violation trial %d: %w", ev.Trial, err)
		}
		if vars.Valid {
			if err := json.Unmarshal([]byte(vars.String), &ev.Vars); err != nil {
				return nil, fmt.Errorf("unmarshal evidence trace for trial %d: %w", ev.Trial, err)
			}
		}
		r.Evidence = append(r.Evidence, ev)
	}
	if err := evRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return r, nil
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunID     string
	Test      string
	Status    litmus.Status
	Trials    int
	Forbidden uint64
	CreatedAt string
}

// ListRuns returns stored runs, newest first. RunIDs are UUIDv7, so id
// order is creation order.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, test, status, trials, forbidden, created_at
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var status string
		var forbidden int64
		if err := rows.Scan(&rs.RunID, &rs.Test, &status, &rs.Trials, &forbidden, &rs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		rs.Status = litmus.Status(status)
		rs.Forbidden = uint64(forbidden)
		out = append(out, rs)
	}
	return out, rows.Err()
}

func parseOutcomeKey(key string) (litmus.Outcome, error) {
	if key == "" {
		return litmus.Outcome{}, nil
	}
	parts := strings.Split(key, ",")
	o := make(litmus.Outcome, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed outcome key %q: %w", key, err)
		}
		o[i] = v
	}
	return o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
