package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hebedit/internal/editor/model"
	"hebedit/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS editor_records (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps each record as a JSONB row keyed by the session key.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// EnsureSchema creates the editor_records table when it is missing.
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		logger.Sugar.Errorf("Failed to create editor_records table: %v", err)
		return err
	}
	return nil
}

func (r *PostgresStore) Get(ctx context.Context, key string) (model.PersistedRecord, bool, error) {
	var rec model.PersistedRecord
	var raw []byte
	err := r.DB.QueryRowContext(ctx, "SELECT value FROM editor_records WHERE key = $1", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read record %s: %v", key, err)
		return rec, false, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false, fmt.Errorf("decode record %s: %w", key, err)
	}
	return rec, true, nil
}

func (r *PostgresStore) Set(ctx context.Context, key string, rec model.PersistedRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO editor_records (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`, key, string(raw))
	if err != nil {
		logger.Sugar.Errorf("Failed to write record %s: %v", key, err)
	}
	return err
}

func (r *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM editor_records WHERE key = $1", key)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete record %s: %v", key, err)
	}
	return err
}
