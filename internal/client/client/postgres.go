package client

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/donorlink/internal/client/mapper"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/dbx"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var sqlOpen = sql.Open

// OpenPostgres opens a database/sql handle backed by the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, remoteError("ping", "postgres", mapTransportError(err))
	}
	return db, nil
}

// PostgresAccessor reads and writes the store's tables directly.
type PostgresAccessor[E models.Entity, D any, P any, R any] struct {
	db    dbx.DBTX
	table Table[E, D, P, R]
	ident string
	cols  string
}

func NewPostgresAccessor[E models.Entity, D any, P any, R any](db dbx.DBTX, table Table[E, D, P, R]) *PostgresAccessor[E, D, P, R] {
	return &PostgresAccessor[E, D, P, R]{
		db:    db,
		table: table,
		ident: pgx.Identifier{table.Name}.Sanitize(),
		cols:  strings.Join(table.Columns, ", "),
	}
}

func NewPostgresDonors(db dbx.DBTX) *PostgresAccessor[models.Donor, models.DonorDraft, models.DonorPatch, mapper.DonorRow] {
	return NewPostgresAccessor(db, DonorTable)
}

func NewPostgresRequests(db dbx.DBTX) *PostgresAccessor[models.Request, models.RequestDraft, models.RequestPatch, mapper.RequestRow] {
	return NewPostgresAccessor(db, RequestTable)
}

func (a *PostgresAccessor[E, D, P, R]) fail(op string, err error) error {
	return remoteError(op, a.table.Name, fmt.Errorf("db error: %w", err))
}

func (a *PostgresAccessor[E, D, P, R]) query(ctx context.Context, op, q string, args ...any) ([]E, error) {
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, a.fail(op, err)
	}
	out, err := dbx.Collect(rows, func(rs *sql.Rows) (E, error) {
		r, err := a.table.Scan(rs)
		if err != nil {
			var zero E
			return zero, err
		}
		return a.table.ToDomain(r), nil
	})
	if err != nil {
		return nil, a.fail(op, err)
	}
	return out, nil
}

func (a *PostgresAccessor[E, D, P, R]) ListAll(ctx context.Context) ([]E, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC`, a.cols, a.ident)
	return a.query(ctx, "list", q)
}

func (a *PostgresAccessor[E, D, P, R]) ListByKey(ctx context.Context, code string) ([]E, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE access_code = $1 ORDER BY created_at DESC`, a.cols, a.ident)
	return a.query(ctx, "list by key", q, models.NormalizeAccessCode(code))
}

func (a *PostgresAccessor[E, D, P, R]) GetByKey(ctx context.Context, code string) (E, error) {
	var zero E
	code = models.NormalizeAccessCode(code)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE access_code = $1 ORDER BY created_at DESC LIMIT 1`, a.cols, a.ident)

	r, err := a.table.Scan(a.db.QueryRowContext(ctx, q, code))
	if dbx.IsNoRows(err) {
		return zero, &common.NotFoundError{Collection: a.table.Name, Key: code}
	}
	if err != nil {
		return zero, a.fail("get by key", err)
	}
	return a.table.ToDomain(r), nil
}

func placeholders(from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", from+i)
	}
	return out
}

func (a *PostgresAccessor[E, D, P, R]) Create(ctx context.Context, draft D) (E, error) {
	var zero E
	p := a.table.ToInsert(draft)
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		a.ident, strings.Join(p.Columns(), ", "), strings.Join(placeholders(1, len(p)), ", "), a.cols)

	r, err := a.table.Scan(a.db.QueryRowContext(ctx, q, p.Values()...))
	if err != nil {
		return zero, a.fail("create", err)
	}
	return a.table.ToDomain(r), nil
}

func (a *PostgresAccessor[E, D, P, R]) UpdateFields(ctx context.Context, sel Selector, patch P) (E, error) {
	var zero E
	if err := sel.Validate(); err != nil {
		return zero, err
	}
	p := a.table.ToUpdate(patch)
	if len(p) == 0 {
		return zero, fmt.Errorf("update %s: empty patch", a.table.Name)
	}
	col, val := sel.filter()

	sets := make([]string, len(p))
	for i, c := range p.Columns() {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
	}
	q := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $%d RETURNING %s`,
		a.ident, strings.Join(sets, ", "), col, len(p)+1, a.cols)

	items, err := a.query(ctx, "update", q, append(p.Values(), val)...)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, &common.NotFoundError{Collection: a.table.Name, Key: val}
	}
	return items[0], nil
}

func (a *PostgresAccessor[E, D, P, R]) Delete(ctx context.Context, sel Selector) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	col, val := sel.filter()
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, a.ident, col)
	if _, err := a.db.ExecContext(ctx, q, val); err != nil {
		return a.fail("delete", err)
	}
	return nil
}

// PostgresStats counts rows with SELECT count(*).
type PostgresStats struct {
	db dbx.DBTX
}

func NewPostgresStats(db dbx.DBTX) *PostgresStats { return &PostgresStats{db: db} }

func (s *PostgresStats) count(ctx context.Context, table string) (int, error) {
	var n int
	q := fmt.Sprintf(`SELECT count(*) FROM %s`, pgx.Identifier{table}.Sanitize())
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, remoteError("count", table, fmt.Errorf("db error: %w", err))
	}
	return n, nil
}

func (s *PostgresStats) Stats(ctx context.Context) (models.Stats, error) {
	donors, err := s.count(ctx, common.DonorsCollection)
	if err != nil {
		return models.Stats{}, err
	}
	requests, err := s.count(ctx, common.RequestsCollection)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{Donors: donors, Requests: requests}, nil
}
