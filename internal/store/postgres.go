package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it for
// unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	outputs     JSONB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_stats (
	run_id TEXT NOT NULL REFERENCES runs(id),
	output TEXT NOT NULL,
	stats  JSONB NOT NULL,
	PRIMARY KEY (run_id, output)
);

CREATE TABLE IF NOT EXISTS run_tables (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	rows   JSONB NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, id string, outputs []string) (*RunRecord, error) {
	now := time.Now().UTC()

	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal outputs")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, outputs, status, created_at) VALUES ($1, $2, $3, $4)`,
		id, outputsJSON, string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &RunRecord{
		ID:        id,
		Outputs:   outputs,
		Status:    RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status RunStatus, runErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(status), runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, outputs, status, error, created_at, finished_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, outputs, status, error, created_at, finished_at FROM runs`
	args := []any{}
	arg := 1
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
		arg++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(arg)
		args = append(args, filter.Limit)
		arg++
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(arg)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) PutStatistics(ctx context.Context, runID, output string, stats raster.Statistics) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_stats (run_id, output, stats) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, output) DO UPDATE SET stats = excluded.stats`,
		runID, output, statsJSON,
	)
	return eris.Wrapf(err, "postgres: put stats %s/%s", runID, output)
}

func (s *PostgresStore) GetStatistics(ctx context.Context, runID, output string) (*raster.Statistics, error) {
	var statsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT stats FROM run_stats WHERE run_id = $1 AND output = $2`,
		runID, output,
	).Scan(&statsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get stats %s/%s", runID, output)
	}

	var stats raster.Statistics
	if err := json.Unmarshal(statsJSON, &stats); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stats")
	}
	return &stats, nil
}

func (s *PostgresStore) PutTable(ctx context.Context, runID, name string, tableRows []zonal.SummaryRow) error {
	rowsJSON, err := json.Marshal(tableRows)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal table")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_tables (run_id, name, rows) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, name) DO UPDATE SET rows = excluded.rows`,
		runID, name, rowsJSON,
	)
	return eris.Wrapf(err, "postgres: put table %s/%s", runID, name)
}

func (s *PostgresStore) GetTable(ctx context.Context, runID, name string) ([]zonal.SummaryRow, error) {
	var rowsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT rows FROM run_tables WHERE run_id = $1 AND name = $2`,
		runID, name,
	).Scan(&rowsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get table %s/%s", runID, name)
	}

	var tableRows []zonal.SummaryRow
	if err := json.Unmarshal(rowsJSON, &tableRows); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal table")
	}
	return tableRows, nil
}

func (s *PostgresStore) ListTables(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM run_tables WHERE run_id = $1 ORDER BY name`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list tables %s", runID)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan table name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: list tables")
}

func scanPgRun(row pgx.Row) (*RunRecord, error) {
	var (
		rec         RunRecord
		outputsJSON []byte
		runErr      *string
		finishedAt  *time.Time
	)
	err := row.Scan(&rec.ID, &outputsJSON, &rec.Status, &runErr, &rec.CreatedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if err := json.Unmarshal(outputsJSON, &rec.Outputs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal outputs")
	}
	if runErr != nil {
		rec.Error = *runErr
	}
	rec.FinishedAt = finishedAt
	return &rec, nil
}
