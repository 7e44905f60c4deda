// Package store keeps imported measurement rows, published summaries and
// dataset source status in SQLite. It is the row and summary fetcher the
// report service reads from.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	_ "modernc.org/sqlite"
)

var schema = []string{`CREATE TABLE IF NOT EXISTS measurement_rows (
	topic       TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	dimensions  TEXT NOT NULL,
	measure     TEXT,
	PRIMARY KEY (topic, seq)
)`, `CREATE TABLE IF NOT EXISTS summaries (
	topic       TEXT NOT NULL,
	field       TEXT NOT NULL,
	value       REAL NOT NULL,
	origin      TEXT NOT NULL DEFAULT '',
	fetched_at  INTEGER NOT NULL,
	PRIMARY KEY (topic, field)
)`, `CREATE TABLE IF NOT EXISTS dataset_sources (
	topic        TEXT PRIMARY KEY,
	adapter      TEXT NOT NULL,
	location     TEXT NOT NULL,
	last_check   INTEGER,
	last_status  INTEGER,
	last_error   TEXT,
	updated_at   INTEGER NOT NULL
)`}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	for _, ddl := range schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceRows atomically swaps the stored rows of a topic. Row order is kept.
func (s *Store) ReplaceRows(ctx context.Context, topic string, rows []aggregate.Row) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return replaceRows(ctx, tx, topic, rows)
	})
}

// PutSummary replaces the headline totals of a topic.
func (s *Store) PutSummary(ctx context.Context, topic string, sum *aggregate.Summary) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return putSummary(ctx, tx, topic, sum)
	})
}

// ReplaceDataset swaps a topic's rows and summary in one transaction, so a
// failed import leaves the previous dataset intact.
func (s *Store) ReplaceDataset(ctx context.Context, topic string, rows []aggregate.Row, sum *aggregate.Summary) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := replaceRows(ctx, tx, topic, rows); err != nil {
			return err
		}
		return putSummary(ctx, tx, topic, sum)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceRows(ctx context.Context, tx *sql.Tx, topic string, rows []aggregate.Row) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM measurement_rows WHERE topic = ?`, topic); err != nil {
		return fmt.Errorf("clear rows for %s: %w", topic, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurement_rows (topic, seq, dimensions, measure) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		dims, err := json.Marshal(row.Dimensions)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		var measure *string
		if !row.Measure.IsMissing() {
			m := row.Measure.String()
			measure = &m
		}
		if _, err := stmt.ExecContext(ctx, topic, i, string(dims), measure); err != nil {
			return fmt.Errorf("insert row %d for %s: %w", i, topic, err)
		}
	}
	return nil
}

func putSummary(ctx context.Context, tx *sql.Tx, topic string, sum *aggregate.Summary) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE topic = ?`, topic); err != nil {
		return fmt.Errorf("clear summary for %s: %w", topic, err)
	}
	if sum == nil {
		return nil
	}
	fetched := sum.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	for field, v := range sum.Totals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("summary %s.%s is not a finite number", topic, field)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summaries (topic, field, value, origin, fetched_at) VALUES (?, ?, ?, ?, ?)`,
			topic, field, v, sum.Origin, fetched.Unix()); err != nil {
			return fmt.Errorf("insert summary %s.%s: %w", topic, field, err)
		}
	}
	return nil
}

// Summary returns the stored headline totals, or nil when none exist.
func (s *Store) Summary(ctx context.Context, topic string) (*aggregate.Summary, error) {
	rs, err := s.db.QueryContext(ctx,
		`SELECT field, value, origin, fetched_at FROM summaries WHERE topic = ? ORDER BY field`, topic)
	if err != nil {
		return nil, fmt.Errorf("query summary for %s: %w", topic, err)
	}
	defer rs.Close()

	var sum *aggregate.Summary
	for rs.Next() {
		var field, origin string
		var value float64
		var fetched int64
		if err := rs.Scan(&field, &value, &origin, &fetched); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if sum == nil {
			sum = &aggregate.Summary{Totals: make(map[string]float64), Origin: origin, FetchedAt: time.Unix(fetched, 0)}
		}
		sum.Totals[field] = value
	}
	return sum, rs.Err()
}

// Topics lists the topics that have stored rows.
func (s *Store) Topics(ctx context.Context) ([]string, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT DISTINCT topic FROM measurement_rows ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rs.Close()

	var topics []string
	for rs.Next() {
		var t string
		if err := rs.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rs.Err()
}
