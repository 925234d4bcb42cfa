package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/paddock-labs/equinet/internal/model"
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
	id         TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	elapsed_ns INTEGER NOT NULL,
	sources    TEXT NOT NULL,
	records    INTEGER NOT NULL,
	failures   INTEGER NOT NULL,
	report     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun stores the full report as JSON alongside a few queryable
// columns. The source list is stored comma-separated for filtering.
func (s *SQLiteStore) RecordRun(ctx context.Context, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, elapsed_ns, sources, records, failures, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC(),
		int64(report.Elapsed),
		strings.Join(report.Sources, ","),
		report.TotalRecords(),
		len(report.Errors),
		string(reportJSON),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", report.RunID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Report, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM runs WHERE id = ?`, runID,
	).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal run %s", runID)
	}
	return &report, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	query := `SELECT id, started_at, elapsed_ns, sources, records, failures FROM runs WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND (',' || sources || ',') LIKE ?`
		args = append(args, "%,"+filter.Source+",%")
	}

	query += ` ORDER BY started_at DESC`
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

	var out []RunSummary
	for rows.Next() {
		var (
			summary RunSummary
			elapsed int64
			srcsCSV string
		)
		if err := rows.Scan(&summary.RunID, &summary.StartedAt, &elapsed, &srcsCSV, &summary.Records, &summary.Failures); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		summary.Elapsed = time.Duration(elapsed)
		if srcsCSV != "" {
			summary.Sources = len(strings.Split(srcsCSV, ","))
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
