package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/dbx"
)

// SQLiteRepository stores metadata in the local snapshot database.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

// RefreshedAt returns the stored refresh time; ok is false if none was recorded.
func (r *SQLiteRepository) RefreshedAt(ctx context.Context, collection string) (time.Time, bool, error) {
	raw, err := r.Get(ctx, RefreshedAtKey(collection))
	if err != nil || raw == nil {
		return time.Time{}, false, err
	}
	var at time.Time
	if err := at.UnmarshalText(raw); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse metadata[%s]: %w", RefreshedAtKey(collection), err)
	}
	return at, true, nil
}

func (r *SQLiteRepository) SetRefreshedAt(ctx context.Context, collection string, at time.Time) error {
	raw, err := at.UTC().MarshalText()
	if err != nil {
		return err
	}
	return r.Set(ctx, RefreshedAtKey(collection), raw)
}
