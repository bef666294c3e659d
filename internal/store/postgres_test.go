package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelguard/compliance-cli/internal/model"
)

func newMockPg(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresWithPool(mock)
}

func TestPostgres_CreateRun(t *testing.T) {
	mock, s := newMockPg(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), string(model.RunStatusQueued), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), testListing("https://example.com/p/1"))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRunStatus(t *testing.T) {
	mock, s := newMockPg(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(string(model.RunStatusResolving), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, s.UpdateRunStatus(context.Background(), "run-1", model.RunStatusResolving))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRunStatusNotFound(t *testing.T) {
	mock, s := newMockPg(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(string(model.RunStatusComplete), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusComplete)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FailRun(t *testing.T) {
	mock, s := newMockPg(t)

	mock.ExpectExec("UPDATE runs SET status .+ error").
		WithArgs(string(model.RunStatusFailed), "image unreadable", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, s.FailRun(context.Background(), "run-1", "image unreadable"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveReport(t *testing.T) {
	mock, s := newMockPg(t)

	report := testReport("run-1", model.VerdictCompliant)
	mock.ExpectExec("UPDATE runs SET report").
		WithArgs(pgxmock.AnyArg(), string(model.VerdictCompliant), string(model.RunStatusComplete), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, s.SaveReport(context.Background(), "run-1", report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun(t *testing.T) {
	mock, s := newMockPg(t)

	listing := testListing("https://example.com/p/1")
	listingJSON, err := json.Marshal(listing)
	require.NoError(t, err)
	reportJSON, err := json.Marshal(testReport("run-1", model.VerdictIndeterminate))
	require.NoError(t, err)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "listing", "status", "report", "error", "created_at", "updated_at"}).
		AddRow("run-1", listingJSON, model.RunStatusComplete, &reportJSON, (*string)(nil), now, now)

	mock.ExpectQuery("SELECT id, listing, status, report, error, created_at, updated_at FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, listing.URL, run.Listing.URL)
	require.NotNil(t, run.Report)
	assert.Equal(t, model.VerdictIndeterminate, run.Report.Verdict)
	assert.Empty(t, run.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRunsWithFilter(t *testing.T) {
	mock, s := newMockPg(t)

	listingJSON, err := json.Marshal(testListing("https://example.com/p/1"))
	require.NoError(t, err)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "listing", "status", "report", "error", "created_at", "updated_at"}).
		AddRow("run-1", listingJSON, model.RunStatusComplete, (*[]byte)(nil), (*string)(nil), now, now)

	mock.ExpectQuery("SELECT .+ FROM runs WHERE true AND status = .+ ORDER BY created_at DESC LIMIT").
		WithArgs(string(model.RunStatusComplete), 100).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
