package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/optimal-selector/pkg/database"
)

// Repository handles snapshot and window persistence in PostgreSQL
// ⭐ SSOT: Selection 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ SnapshotStore = (*Repository)(nil)

// Schema is the DDL for the selection tables
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS selection`,
	`CREATE TABLE IF NOT EXISTS selection.snapshots (
		name        TEXT PRIMARY KEY,
		config      JSONB NOT NULL,
		candidates  JSONB NOT NULL,
		hash        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS selection.window_results (
		selector    TEXT NOT NULL,
		seq         INT NOT NULL,
		train_start TIMESTAMPTZ NOT NULL,
		train_end   TIMESTAMPTZ NOT NULL,
		test_start  TIMESTAMPTZ NOT NULL,
		test_end    TIMESTAMPTZ NOT NULL,
		candidate   INT NOT NULL,
		name        TEXT NOT NULL,
		instrument  TEXT NOT NULL,
		score       DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (selector, seq)
	)`,
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts a snapshot by name
func (r *Repository) Save(ctx context.Context, snap *Snapshot) error {
	configJSON, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	candidatesJSON, err := json.Marshal(snap.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}

	query := `
		INSERT INTO selection.snapshots (name, config, candidates, hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			config = EXCLUDED.config,
			candidates = EXCLUDED.candidates,
			hash = EXCLUDED.hash,
			created_at = EXCLUDED.created_at
	`

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, query, snap.Name, configJSON, candidatesJSON, snap.Hash, createdAt); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.Name, err)
	}
	return nil
}

// Load retrieves a snapshot by name; the hash is checked by Restore
func (r *Repository) Load(ctx context.Context, name string) (*Snapshot, error) {
	query := `
		SELECT name, config, candidates, hash, created_at
		FROM selection.snapshots
		WHERE name = $1
	`

	var snap Snapshot
	var configJSON, candidatesJSON []byte

	err := r.pool.QueryRow(ctx, query, name).Scan(&snap.Name, &configJSON, &candidatesJSON, &snap.Hash, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal(configJSON, &snap.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := json.Unmarshal(candidatesJSON, &snap.Candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
	}
	return &snap, nil
}

// SaveWindows replaces the stored windows of a selector
func (r *Repository) SaveWindows(ctx context.Context, selector string, views []WindowView) error {
	query := `
		INSERT INTO selection.window_results (
			selector, seq, train_start, train_end, test_start, test_end,
			candidate, name, instrument, score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM selection.window_results WHERE selector = $1", selector); err != nil {
			return fmt.Errorf("failed to delete old windows: %w", err)
		}

		for i, v := range views {
			_, err := tx.Exec(ctx, query,
				selector, i, v.Train.Start, v.Train.End, v.Test.Start, v.Test.End,
				v.Index, v.Name, v.Instrument, v.Score,
			)
			if err != nil {
				return fmt.Errorf("failed to insert window %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetWindows retrieves stored windows of a selector in order.
// The returned views carry no live Candidate.
func (r *Repository) GetWindows(ctx context.Context, selector string) ([]WindowView, error) {
	query := `
		SELECT train_start, train_end, test_start, test_end, candidate, name, instrument, score
		FROM selection.window_results
		WHERE selector = $1
		ORDER BY seq ASC
	`

	rows, err := r.pool.Query(ctx, query, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query windows: %w", err)
	}
	defer rows.Close()

	views := make([]WindowView, 0)
	for rows.Next() {
		var v WindowView
		if err := rows.Scan(
			&v.Train.Start, &v.Train.End, &v.Test.Start, &v.Test.End,
			&v.Index, &v.Name, &v.Instrument, &v.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return views, nil
}
