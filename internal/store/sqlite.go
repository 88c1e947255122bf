package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	outputs     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_stats (
	run_id TEXT NOT NULL REFERENCES runs(id),
	output TEXT NOT NULL,
	stats  TEXT NOT NULL,
	PRIMARY KEY (run_id, output)
);

CREATE TABLE IF NOT EXISTS run_tables (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	rows   TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, id string, outputs []string) (*RunRecord, error) {
	now := time.Now().UTC()

	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal outputs")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, outputs, status, created_at) VALUES (?, ?, ?, ?)`,
		id, string(outputsJSON), string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &RunRecord{
		ID:        id,
		Outputs:   outputs,
		Status:    RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, outputs, status, error, created_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	rec, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, outputs, status, error, created_at, finished_at FROM runs`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) PutStatistics(ctx context.Context, runID, output string, stats raster.Statistics) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_stats (run_id, output, stats) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, output) DO UPDATE SET stats = excluded.stats`,
		runID, output, string(statsJSON),
	)
	return eris.Wrapf(err, "sqlite: put stats %s/%s", runID, output)
}

func (s *SQLiteStore) GetStatistics(ctx context.Context, runID, output string) (*raster.Statistics, error) {
	var statsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT stats FROM run_stats WHERE run_id = ? AND output = ?`,
		runID, output,
	).Scan(&statsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get stats %s/%s", runID, output)
	}

	var stats raster.Statistics
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stats")
	}
	return &stats, nil
}

func (s *SQLiteStore) PutTable(ctx context.Context, runID, name string, tableRows []zonal.SummaryRow) error {
	rowsJSON, err := json.Marshal(tableRows)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal table")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_tables (run_id, name, rows) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, name) DO UPDATE SET rows = excluded.rows`,
		runID, name, string(rowsJSON),
	)
	return eris.Wrapf(err, "sqlite: put table %s/%s", runID, name)
}

func (s *SQLiteStore) GetTable(ctx context.Context, runID, name string) ([]zonal.SummaryRow, error) {
	var rowsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT rows FROM run_tables WHERE run_id = ? AND name = ?`,
		runID, name,
	).Scan(&rowsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get table %s/%s", runID, name)
	}

	var tableRows []zonal.SummaryRow
	if err := json.Unmarshal([]byte(rowsJSON), &tableRows); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal table")
	}
	return tableRows, nil
}

func (s *SQLiteStore) ListTables(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM run_tables WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tables %s", runID)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan table name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list tables")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec         RunRecord
		outputsJSON string
		runErr      sql.NullString
		finishedAt  sql.NullTime
	)
	err := row.Scan(&rec.ID, &outputsJSON, &rec.Status, &runErr, &rec.CreatedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(outputsJSON), &rec.Outputs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outputs")
	}
	rec.Error = runErr.String
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	return &rec, nil
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for run %s", runID)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
