// Package sqlite keeps the relay's record of submitted reports.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type submissionRow struct {
	ReportKey     string `db:"report_key"`
	ObservationID int    `db:"observation_id"`
	Topic         string `db:"topic"`
	Offset        int64  `db:"kafka_offset"`
	SubmittedAt   string `db:"submitted_at"`
}

// SubmissionLog is the relay's idempotency ledger: a report key is submitted
// at most once.
type SubmissionLog struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// Open opens (or creates) the log at dbPath. Use ":memory:" in tests.
func Open(dbPath string) (*SubmissionLog, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("make db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	for _, p := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;"} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SubmissionLog{db: db, sb: sq.StatementBuilder}, nil
}

// applyMigrations runs the pending migrations. Applied versions are tracked
// in goose's version table.
func applyMigrations(db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Lookup returns the observation id recorded for key.
func (l *SubmissionLog) Lookup(ctx context.Context, key string) (int, bool, error) {
	query, args, err := l.sb.Select("observation_id").
		From("submissions").
		Where(sq.Eq{"report_key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build lookup: %w", err)
	}

	var id int
	if err := l.db.GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup submission %q: %w", key, err)
	}
	return id, true, nil
}

// Record stores a submission. Recording the same key twice keeps the first.
func (l *SubmissionLog) Record(ctx context.Context, s domain.Submission) error {
	submittedAt := s.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = domain.Now()
	}
	query, args, err := l.sb.Insert("submissions").
		Columns("report_key", "observation_id", "topic", "kafka_offset", "submitted_at").
		Values(s.ReportKey, s.ObservationID, s.Topic, s.Offset, submittedAt.UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(report_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record submission %q: %w", s.ReportKey, err)
	}
	return nil
}

// Recent lists the latest submissions, newest first.
func (l *SubmissionLog) Recent(ctx context.Context, limit uint64) ([]domain.Submission, error) {
	query, args, err := l.sb.Select("report_key", "observation_id", "topic", "kafka_offset", "submitted_at").
		From("submissions").
		OrderBy("submitted_at DESC", "report_key").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent: %w", err)
	}

	var rows []submissionRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, len(rows))
	for i, r := range rows {
		submittedAt, err := time.Parse(time.RFC3339, r.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("parse submitted_at of %q: %w", r.ReportKey, err)
		}
		out[i] = domain.Submission{
			ReportKey:     r.ReportKey,
			ObservationID: r.ObservationID,
			Topic:         r.Topic,
			Offset:        r.Offset,
			SubmittedAt:   submittedAt,
		}
	}
	return out, nil
}

// CheckReadiness pings the database.
func (l *SubmissionLog) CheckReadiness(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SubmissionLog) Close() error {
	return l.db.Close()
}
