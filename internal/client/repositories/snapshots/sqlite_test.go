package snapshots

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database shared across the tx
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE snapshots (
  collection TEXT NOT NULL,
  view       TEXT NOT NULL,
  id         TEXT NOT NULL,
  payload    BLOB NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (collection, view, id)
);`)
	require.NoError(t, err)
	return db
}

func TestReplaceCollection_ThenLoad(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	require.NoError(t, r.ReplaceCollection(ctx, "donors", []Record{
		{View: "all", ID: "d-1", Payload: []byte(`{"id":"d-1"}`), CreatedAt: t1},
		{View: "all", ID: "d-2", Payload: []byte(`{"id":"d-2"}`), CreatedAt: t2},
		{View: "all", ID: "tmp-01HX", Payload: []byte(`{}`), CreatedAt: t2},
		{View: "byCode:AB12-CD34", ID: "d-1", Payload: []byte(`{"id":"d-1"}`), CreatedAt: t1},
	}))

	recs, err := r.LoadCollection(ctx, "donors")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "d-2", recs[0].ID)
	assert.Equal(t, "d-1", recs[1].ID)
	assert.True(t, t2.Equal(recs[0].CreatedAt))
	assert.Equal(t, "byCode:AB12-CD34", recs[2].View)
}

func TestReplaceCollection_SwapsPreviousRows(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceCollection(ctx, "donors", []Record{{View: "all", ID: "old", Payload: []byte("{}")}}))
	require.NoError(t, r.ReplaceCollection(ctx, "blood_requests", []Record{{View: "all", ID: "r-1", Payload: []byte("{}")}}))
	require.NoError(t, r.ReplaceCollection(ctx, "donors", []Record{{View: "all", ID: "new", Payload: []byte("{}")}}))

	recs, err := r.LoadCollection(ctx, "donors")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].ID)

	other, err := r.LoadCollection(ctx, "blood_requests")
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceCollection(ctx, "donors", []Record{{View: "all", ID: "d-1", Payload: []byte("{}")}}))
	require.NoError(t, r.ReplaceCollection(ctx, "blood_requests", []Record{{View: "all", ID: "r-1", Payload: []byte("{}")}}))

	require.NoError(t, r.Clear(ctx))
	for _, c := range []string{"donors", "blood_requests"} {
		recs, err := r.LoadCollection(ctx, c)
		require.NoError(t, err)
		assert.Empty(t, recs)
	}
}

func TestReplaceCollection_RollsBackOnError(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceCollection(ctx, "donors", []Record{{View: "all", ID: "keep", Payload: []byte("{}")}}))
	_, err := db.Exec(`CREATE TRIGGER reject_bad BEFORE INSERT ON snapshots
		WHEN NEW.id = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END;`)
	require.NoError(t, err)

	err = r.ReplaceCollection(ctx, "donors", []Record{
		{View: "all", ID: "good", Payload: []byte("{}")},
		{View: "all", ID: "bad", Payload: []byte("{}")},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to store snapshot[donors/all/bad]")

	recs, err := r.LoadCollection(ctx, "donors")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "keep", recs[0].ID)
}

func TestLoadCollection_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, err := r.LoadCollection(context.Background(), "donors")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to select snapshot[donors]")
}
