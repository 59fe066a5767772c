package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the report store.
const schema = `
CREATE TABLE IF NOT EXISTS reports (
    id           TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    format       TEXT NOT NULL,
    sha256       TEXT,
    risk_score   INTEGER NOT NULL,
    risk_level   TEXT,
    flag_count   INTEGER NOT NULL,
    failed       INTEGER NOT NULL,
    created_at   INTEGER NOT NULL,
    result_json  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_level ON reports(risk_level, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_sha256 ON reports(sha256);
`

// SQLite is the durable report store.
type SQLite struct {
	db *sql.DB
}

// Options tune the SQLite connection.
type Options struct {
	MaxConnections int
	BusyTimeoutMs  int
}

// Open opens or creates the SQLite database at the given path and
// applies the schema.
func Open(path string, opts Options) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL"
	if opts.BusyTimeoutMs > 0 {
		dsn += fmt.Sprintf("&_busy_timeout=%d", opts.BusyTimeoutMs)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxConnections > 0 {
		db.SetMaxOpenConns(opts.MaxConnections)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert stores a new report.
func (s *SQLite) Insert(ctx context.Context, r *Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, filename, format, sha256, risk_score, risk_level, flag_count, failed, created_at, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Filename, r.Format, r.SHA256, r.RiskScore, r.RiskLevel,
		r.FlagCount, boolInt(r.Failed), r.CreatedAt.UnixNano(), string(r.Result),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Get returns the report with the given ID, or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, id string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, format, sha256, risk_score, risk_level, flag_count, failed, created_at, result_json
		FROM reports WHERE id = ?`, id)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// List returns reports newest first, filtered and paged by opts.
func (s *SQLite) List(ctx context.Context, opts ListOptions) ([]Report, error) {
	var (
		clauses []string
		args    []any
	)
	if opts.Level != "" {
		clauses = append(clauses, "risk_level = ?")
		args = append(args, opts.Level)
	}
	if opts.Format != "" {
		clauses = append(clauses, "format = ?")
		args = append(args, opts.Format)
	}

	query := `SELECT id, filename, format, sha256, risk_score, risk_level, flag_count, failed, created_at, result_json FROM reports`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Count returns the total number of stored reports.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*Report, error) {
	var (
		r          Report
		failed     int
		createdNs  int64
		resultJSON string
	)
	err := row.Scan(&r.ID, &r.Filename, &r.Format, &r.SHA256, &r.RiskScore,
		&r.RiskLevel, &r.FlagCount, &failed, &createdNs, &resultJSON)
	if err != nil {
		return nil, err
	}
	r.Failed = failed != 0
	r.CreatedAt = time.Unix(0, createdNs).UTC()
	r.Result = []byte(resultJSON)
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
