package client

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/donorlink/internal/client/mapper"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestsWithMock(t *testing.T) (*PostgresAccessor[models.Request, models.RequestDraft, models.RequestPatch, mapper.RequestRow], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRequests(db), mock
}

var ts = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func requestRows() *sqlmock.Rows {
	return sqlmock.NewRows(mapper.RequestColumns)
}

func TestPostgres_ListAll(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	mock.ExpectQuery(`SELECT id, access_code, .* FROM "blood_requests" ORDER BY created_at DESC`).
		WillReturnRows(requestRows().
			AddRow("r-2", "X1", "A+", nil, "555", "Ward 3", "Urgent", nil, "active", ts.Add(time.Hour)).
			AddRow("r-1", "X1", "A+", "Bo", "555", "Ward 3", "Normal", "n", "fulfilled", ts))

	got, err := a.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r-2", got[0].ID)
	assert.Equal(t, "", got[0].PatientName)
	assert.Equal(t, models.StatusFulfilled, got[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListByKey_Empty(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	mock.ExpectQuery(`FROM "blood_requests" WHERE access_code = \$1 ORDER BY created_at DESC`).
		WithArgs("X1").
		WillReturnRows(requestRows())

	got, err := a.ListByKey(context.Background(), "x1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgres_GetByKey_NotFound(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	mock.ExpectQuery(`WHERE access_code = \$1 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("X1").
		WillReturnError(sql.ErrNoRows)

	_, err := a.GetByKey(context.Background(), "x1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_Create_Returning(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	q := regexp.QuoteMeta(`INSERT INTO "blood_requests" (access_code, blood_group, patient_name, contact_number, location, urgency, notes, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id,`)
	mock.ExpectQuery(q).
		WithArgs("X1", "B-", nil, "555", "Ward 3", "Critical", nil, "active").
		WillReturnRows(requestRows().AddRow("r-9", "X1", "B-", nil, "555", "Ward 3", "Critical", nil, "active", ts))

	r, err := a.Create(context.Background(), models.RequestDraft{
		AccessCode: "x1", BloodGroup: models.BloodGroupBNeg, ContactNumber: "555",
		Location: "Ward 3", Urgency: models.UrgencyCritical,
	})
	require.NoError(t, err)
	assert.Equal(t, "r-9", r.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateFields(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	q := regexp.QuoteMeta(`UPDATE "blood_requests" SET "status" = $1 WHERE id = $2 RETURNING`)
	mock.ExpectQuery(q).
		WithArgs("notNeeded", "r-1").
		WillReturnRows(requestRows().AddRow("r-1", "X1", "A+", nil, "555", "Ward 3", "Normal", nil, "notNeeded", ts))

	r, err := a.UpdateFields(context.Background(), ByID("r-1"), models.StatusPatch(models.StatusNotNeeded))
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotNeeded, r.Status)

	mock.ExpectQuery(q).WithArgs("notNeeded", "r-404").WillReturnRows(requestRows())
	_, err = a.UpdateFields(context.Background(), ByID("r-404"), models.StatusPatch(models.StatusNotNeeded))
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = a.UpdateFields(context.Background(), ByID("r-1"), models.RequestPatch{})
	require.Error(t, err)
}

func TestPostgres_Delete(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "blood_requests" WHERE access_code = $1`)).
		WithArgs("X1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, a.Delete(context.Background(), ByAccessCode("x1")))

	mock.ExpectExec(`DELETE FROM "blood_requests" WHERE id = \$1`).
		WithArgs("r-1").
		WillReturnError(errors.New("conn reset"))
	err := a.Delete(context.Background(), ByID("r-1"))

	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "delete", re.Op)
	assert.Contains(t, err.Error(), "db error: conn reset")
}

func TestPostgres_RowErrorPropagates(t *testing.T) {
	a, mock := newRequestsWithMock(t)

	rows := requestRows().
		AddRow("r-1", "X1", "A+", nil, "555", "Ward 3", "Normal", nil, "active", ts).
		RowError(0, errors.New("row boom"))
	mock.ExpectQuery(`FROM "blood_requests"`).WillReturnRows(rows)

	_, err := a.ListAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row boom")
}

func TestPostgresStats(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "donors"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "blood_requests"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	s, err := NewPostgresStats(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Donors: 3, Requests: 5}, s)
}

func TestOpenPostgres_OpenError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") }

	_, err := OpenPostgres(context.Background(), "postgres://")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open postgres: bad dsn")
}
