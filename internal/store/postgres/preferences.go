package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/face-studio/internal/store"
)

// PreferenceStore is the PostgreSQL implementation of store.Store. The whole
// record lives in one row under the fixed preference key; partial updates
// merge inside a transaction so concurrent writers of unrelated fields cannot
// lose each other's changes.
type PreferenceStore struct {
	pool *Pool
}

// NewPreferenceStore creates a new PostgreSQL preference store.
func NewPreferenceStore(pool *Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

// Load reads and normalizes the stored record, nil when absent.
func (s *PreferenceStore) Load(ctx context.Context) (*store.Record, error) {
	var raw []byte
	err := s.pool.db.QueryRowContext(ctx,
		"SELECT record FROM preferences WHERE key = $1", store.PreferenceKey,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	var record store.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	record.Normalize()
	return &record, nil
}

// Update merges the partial into the stored record read-modify-write.
func (s *PreferenceStore) Update(ctx context.Context, p store.Partial) error {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preferences transaction: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	var current *store.Record
	err = tx.QueryRowContext(ctx,
		"SELECT record FROM preferences WHERE key = $1 FOR UPDATE", store.PreferenceKey,
	).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		current = nil
	case err != nil:
		return fmt.Errorf("read preferences for update: %w", err)
	default:
		current = &store.Record{}
		if err := json.Unmarshal(raw, current); err != nil {
			return fmt.Errorf("parse preferences: %w", err)
		}
	}

	merged, err := json.Marshal(store.Merge(current, p))
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO preferences (key, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at
	`, store.PreferenceKey, merged)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}
