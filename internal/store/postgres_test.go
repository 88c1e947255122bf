package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit
// testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", pgxmock.AnyArg(), "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.CreateRun(context.Background(), "run-1", []string{"potential", "flow"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, RunStatusRunning, rec.Status)
	assert.Equal(t, []string{"potential", "flow"}, rec.Outputs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, error = \$2, finished_at = \$3 WHERE id = \$4`).
		WithArgs("complete", "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), "run-1", RunStatusComplete, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", RunStatusFailed, "boom")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, outputs, status, error, created_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutStatistics_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("run-1", "potential", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutStatistics(context.Background(), "run-1", "potential",
		raster.Statistics{Count: 4, Sum: 2, Mean: 0.5, Min: 0, Max: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetStatistics(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT stats FROM run_stats`).
		WithArgs("run-1", "potential").
		WillReturnRows(pgxmock.NewRows([]string{"stats"}).
			AddRow([]byte(`{"count":4,"sum":2,"mean":0.5,"min":0,"max":1,"stddev":0.25}`)))

	stats, err := s.GetStatistics(context.Background(), "run-1", "potential")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 0.5, stats.Mean)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutGetTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO run_tables`).
		WithArgs("run-1", "flow", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rows := []zonal.SummaryRow{{ZoneID: 1, Count: 2, Sum: 3, Mean: 1.5, Min: 1, Max: 2}}
	require.NoError(t, s.PutTable(context.Background(), "run-1", "flow", rows))

	mock.ExpectQuery(`SELECT rows FROM run_tables`).
		WithArgs("run-1", "flow").
		WillReturnRows(pgxmock.NewRows([]string{"rows"}).
			AddRow([]byte(`[{"zone_id":1,"count":2,"sum":3,"mean":1.5,"min":1,"max":2,"stddev":0}]`)))

	got, err := s.GetTable(context.Background(), "run-1", "flow")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ZoneID)
	assert.Equal(t, 3.0, got[0].Sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTable_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT rows FROM run_tables`).
		WithArgs("run-1", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetTable(context.Background(), "run-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTables(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT name FROM run_tables`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("flow").AddRow("supply"))

	names, err := s.ListTables(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"flow", "supply"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}
