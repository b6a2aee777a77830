package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/duallang/duallang/pkg/models"
)

// Tracker records and queries backend usage.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// QueryByEngine returns usage records for an engine since a given time.
	QueryByEngine(ctx context.Context, engine models.Engine, since time.Time) ([]models.UsageRecord, error)
	// TotalChars returns the characters sent to an engine since a given time.
	TotalChars(ctx context.Context, engine models.Engine, since time.Time) (int64, error)
	// Summary returns aggregated usage, optionally filtered by engine.
	Summary(ctx context.Context, engine models.Engine) ([]models.UsageSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL DEFAULT '',
	engine TEXT NOT NULL,
	target_language TEXT NOT NULL,
	characters INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_engine_time ON usage_records(engine, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (request_id, engine, target_language, characters, outcome, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, string(rec.Engine), rec.TargetLanguage, rec.Characters, string(rec.Outcome), rec.LatencyMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// QueryByEngine returns usage records for an engine since a given time.
func (t *SQLiteTracker) QueryByEngine(ctx context.Context, engine models.Engine, since time.Time) ([]models.UsageRecord, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, request_id, engine, target_language, characters, outcome, latency_ms, created_at
		 FROM usage_records WHERE engine = ? AND created_at >= ? ORDER BY created_at DESC`,
		string(engine), since,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var eng, outcome string
		if err := rows.Scan(&r.ID, &r.RequestID, &eng, &r.TargetLanguage, &r.Characters, &outcome, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		r.Engine = models.Engine(eng)
		r.Outcome = models.Outcome(outcome)
		records = append(records, r)
	}
	return records, rows.Err()
}

// TotalChars returns the characters sent to an engine since a given time.
func (t *SQLiteTracker) TotalChars(ctx context.Context, engine models.Engine, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(characters), 0) FROM usage_records WHERE engine = ? AND created_at >= ?`,
		string(engine), since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// Summary returns aggregated usage grouped by engine and target language.
func (t *SQLiteTracker) Summary(ctx context.Context, engine models.Engine) ([]models.UsageSummary, error) {
	query := `SELECT engine, target_language, COUNT(*),
		SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END),
		SUM(CASE WHEN outcome = 'soft_failure' THEN 1 ELSE 0 END),
		SUM(characters), CAST(AVG(latency_ms) AS INTEGER)
		 FROM usage_records`
	var args []any
	if engine != "" {
		query += ` WHERE engine = ?`
		args = append(args, string(engine))
	}
	query += ` GROUP BY engine, target_language ORDER BY engine, target_language`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		var eng string
		if err := rows.Scan(&eng, &s.TargetLanguage, &s.RequestCount, &s.Failures, &s.SoftFailures, &s.TotalChars, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Engine = models.Engine(eng)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
