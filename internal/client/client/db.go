package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/donorlink/internal/client/migrations"
	"github.com/dmitrijs2005/donorlink/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/donorlink/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/donorlink/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Repositories bundles the local persistence used by the CLI.
type Repositories struct {
	Metadata  metadata.Repository
	Snapshots snapshots.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata:  metadata.NewSQLiteRepository(db),
		Snapshots: snapshots.NewSQLiteRepository(db),
	}
}

var gooseUpContext = goose.UpContext

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return gooseUpContext(ctx, db, ".")
}

// InitDatabase opens the local SQLite database and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	dsn, err := filex.EnsureParentDir(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
