package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duskforge/revenant/internal/model"
)

// Store wraps a pgx connection pool for encounter persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store handle.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RecordKill inserts one row per authoritative enemy death.
func (s *Store) RecordKill(ctx context.Context, e *model.Enemy, playerLevel int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kill_log (enemy_id, archetype, is_boss, player_level, killed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		int64(e.ID()), int32(e.Archetype()), e.IsBoss(), playerLevel, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("inserting kill for enemy %d: %w", e.ID(), err)
	}
	return nil
}

// SaveKillCounter upserts the cumulative non-boss kill counter so a
// restarted host resumes progress toward the next boss.
func (s *Store) SaveKillCounter(ctx context.Context, n int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO counters (name, value) VALUES ('boss_kill_counter', $1)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		n,
	)
	if err != nil {
		return fmt.Errorf("saving kill counter: %w", err)
	}
	return nil
}

// LoadKillCounter reads the persisted kill counter (0 when absent).
func (s *Store) LoadKillCounter(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM counters WHERE name = 'boss_kill_counter'`,
	).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("loading kill counter: %w", err)
	}
	return n, nil
}

// KillCount returns the total rows in the kill log (admin/diagnostics).
func (s *Store) KillCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM kill_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting kill log: %w", err)
	}
	return n, nil
}
