package snapshots

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/dbx"
)

// SQLiteRepository implements Repository on the local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceCollection(ctx context.Context, collection string, records []Record) error {
	return dbx.WithTx(ctx, r.db, func(tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE collection = ?`, collection); err != nil {
			return fmt.Errorf("failed to clear snapshot[%s]: %w", collection, err)
		}
		for _, rec := range records {
			if models.IsTemporaryID(rec.ID) {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO snapshots (collection, view, id, payload, created_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(collection, view, id) DO UPDATE SET
					payload = excluded.payload,
					created_at = excluded.created_at`,
				collection, rec.View, rec.ID, rec.Payload, rec.CreatedAt.UnixNano())
			if err != nil {
				return fmt.Errorf("failed to store snapshot[%s/%s/%s]: %w", collection, rec.View, rec.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadCollection(ctx context.Context, collection string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT view, id, payload, created_at FROM snapshots
		WHERE collection = ?
		ORDER BY view, created_at DESC, id`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select snapshot[%s]: %w", collection, err)
	}
	result, err := dbx.Collect(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot[%s]: %w", collection, err)
	}
	return result, nil
}

func scanRecord(rs *sql.Rows) (Record, error) {
	var (
		rec Record
		ns  int64
	)
	if err := rs.Scan(&rec.View, &rec.ID, &rec.Payload, &ns); err != nil {
		return rec, err
	}
	rec.CreatedAt = time.Unix(0, ns).UTC()
	return rec, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}
