package store

import (
	"context"
	"fmt"
	"time"
)

// Source is a row of the dataset_sources table.
type Source struct {
	Topic      string
	Adapter    string
	Location   string
	LastCheck  *int64
	LastStatus *int
	LastError  *string
	UpdatedAt  int64
}

// SourceSeed is the default location of one topic's dataset.
type SourceSeed struct {
	Topic    string
	Adapter  string
	Location string
}

// SeedSources inserts default rows (INSERT OR IGNORE: existing rows are left
// untouched so that location overrides survive restarts).
func (s *Store) SeedSources(ctx context.Context, seeds []SourceSeed) error {
	const q = `INSERT OR IGNORE INTO dataset_sources (topic, adapter, location, updated_at) VALUES (?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, seed := range seeds {
		if _, err := s.db.ExecContext(ctx, q, seed.Topic, seed.Adapter, seed.Location, now); err != nil {
			return fmt.Errorf("seed %s: %w", seed.Topic, err)
		}
	}
	return nil
}

// SourceLocation returns the current dataset location of a topic.
func (s *Store) SourceLocation(ctx context.Context, topic string) (string, error) {
	var loc string
	err := s.db.QueryRowContext(ctx, `SELECT location FROM dataset_sources WHERE topic = ?`, topic).Scan(&loc)
	if err != nil {
		return "", fmt.Errorf("get location for %s: %w", topic, err)
	}
	return loc, nil
}

// SetSourceLocation overrides the dataset location of a topic.
func (s *Store) SetSourceLocation(ctx context.Context, topic, location string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dataset_sources SET location = ?, updated_at = ? WHERE topic = ?`,
		location, time.Now().Unix(), topic,
	)
	if err != nil {
		return fmt.Errorf("set location for %s: %w", topic, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("topic %s not found in dataset_sources", topic)
	}
	return nil
}

// UpdateCheck records the result of an availability check.
func (s *Store) UpdateCheck(ctx context.Context, topic string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE dataset_sources SET last_check = ?, last_status = ?, last_error = ? WHERE topic = ?`,
		time.Now().Unix(), status, errPtr, topic,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", topic, err)
	}
	return nil
}

// ListSources returns every dataset source ordered by topic.
func (s *Store) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT topic, adapter, location,
		last_check, last_status, last_error, updated_at
		FROM dataset_sources ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Topic, &src.Adapter, &src.Location,
			&src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
