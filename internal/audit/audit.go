// Package audit is the C12 operation audit log: every externally triggered
// operation opens an IN_PROGRESS record and is mutated exactly once to a
// terminal status.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/store/sqliteutil"
	"github.com/flightfusion/fusion/pkg/logger"
)

// Log is the sqlite-backed C12 audit log.
type Log struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if necessary) the processing_history store.
func Open(path string, log *logger.Logger) (*Log, error) {
	auditLogger := log.Named("audit")
	db, err := sqliteutil.Open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db, log: auditLogger}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processing_history (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			operation TEXT NOT NULL,
			endpoint TEXT,
			status TEXT NOT NULL,
			duration_ms INTEGER,
			records_processed INTEGER,
			records_with_errors INTEGER,
			details TEXT,
			error_message TEXT,
			request_parameters TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_history_operation ON processing_history(operation);
		CREATE INDEX IF NOT EXISTS idx_history_status ON processing_history(status);
		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON processing_history(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create processing_history table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Log) Close() error { return l.db.Close() }

// Handle represents one in-progress operation, returned by Start and
// consumed by exactly one terminal call to Finish.
type Handle struct {
	id        string
	operation model.Operation
	endpoint  string
	startedAt time.Time
	params    string
}

// Start opens a new IN_PROGRESS record and returns a handle for the
// terminal update.
func (l *Log) Start(ctx context.Context, operation model.Operation, endpoint, requestParameters string) (*Handle, error) {
	h := &Handle{
		id:        uuid.NewString(),
		operation: operation,
		endpoint:  endpoint,
		startedAt: time.Now().UTC(),
		params:    requestParameters,
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO processing_history (id, timestamp, operation, endpoint, status, request_parameters)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.id, h.startedAt.UnixMilli(), string(operation), endpoint, string(model.StatusInProgress), requestParameters)
	if err != nil {
		return nil, fmt.Errorf("start processing history: %w", err)
	}
	return h, nil
}

// Finish writes the one terminal update for h. recordsWithErrors > 0 forces
// PARTIAL_SUCCESS when the caller otherwise reports success.
func (l *Log) Finish(ctx context.Context, h *Handle, success bool, recordsProcessed, recordsWithErrors int, details, errorMessage string) error {
	status := model.StatusSuccess
	if !success {
		status = model.StatusFailure
	} else if recordsWithErrors > 0 {
		status = model.StatusPartialSuccess
	}

	durationMs := time.Since(h.startedAt).Milliseconds()
	_, err := l.db.ExecContext(ctx, `
		UPDATE processing_history
		SET status = ?, duration_ms = ?, records_processed = ?, records_with_errors = ?, details = ?, error_message = ?
		WHERE id = ?
	`, string(status), durationMs, recordsProcessed, recordsWithErrors, details, errorMessage, h.id)
	if err != nil {
		return fmt.Errorf("finish processing history %s: %w", h.id, err)
	}
	return nil
}

// Recent returns the most recent records, newest first, paged.
func (l *Log) Recent(ctx context.Context, limit, offset int) ([]model.ProcessingHistory, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, operation, endpoint, status, duration_ms, records_processed, records_with_errors, details, error_message, request_parameters
		FROM processing_history ORDER BY timestamp DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("recent processing history: %w", err)
	}
	defer rows.Close()
	return scanHistories(rows)
}

// FilterByOperation returns records matching operation, newest first.
func (l *Log) FilterByOperation(ctx context.Context, operation model.Operation, limit, offset int) ([]model.ProcessingHistory, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, operation, endpoint, status, duration_ms, records_processed, records_with_errors, details, error_message, request_parameters
		FROM processing_history WHERE operation = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?
	`, string(operation), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("filter processing history by operation: %w", err)
	}
	defer rows.Close()
	return scanHistories(rows)
}

// FilterByStatus returns records matching status, newest first.
func (l *Log) FilterByStatus(ctx context.Context, status model.Status, limit, offset int) ([]model.ProcessingHistory, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, operation, endpoint, status, duration_ms, records_processed, records_with_errors, details, error_message, request_parameters
		FROM processing_history WHERE status = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?
	`, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("filter processing history by status: %w", err)
	}
	defer rows.Close()
	return scanHistories(rows)
}

// Today returns today's (UTC) records, newest first.
func (l *Log) Today(ctx context.Context) ([]model.ProcessingHistory, error) {
	start := time.Now().UTC().Truncate(24 * time.Hour)
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, operation, endpoint, status, duration_ms, records_processed, records_with_errors, details, error_message, request_parameters
		FROM processing_history WHERE timestamp >= ? ORDER BY timestamp DESC
	`, start.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("today's processing history: %w", err)
	}
	defer rows.Close()
	return scanHistories(rows)
}

// Statistics summarizes counts per status and operation, plus success rate.
type Statistics struct {
	CountsByStatus    map[model.Status]int
	CountsByOperation map[model.Operation]int
	SuccessRate       float64
}

// Stats computes aggregate statistics over the whole log.
func (l *Log) Stats(ctx context.Context) (Statistics, error) {
	stats := Statistics{
		CountsByStatus:    make(map[model.Status]int),
		CountsByOperation: make(map[model.Operation]int),
	}

	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM processing_history GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("stats by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.CountsByStatus[model.Status(status)] = n
	}
	rows.Close()

	rows, err = l.db.QueryContext(ctx, `SELECT operation, COUNT(*) FROM processing_history GROUP BY operation`)
	if err != nil {
		return stats, fmt.Errorf("stats by operation: %w", err)
	}
	for rows.Next() {
		var op string
		var n int
		if err := rows.Scan(&op, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.CountsByOperation[model.Operation(op)] = n
	}
	rows.Close()

	success := stats.CountsByStatus[model.StatusSuccess]
	partial := stats.CountsByStatus[model.StatusPartialSuccess]
	failure := stats.CountsByStatus[model.StatusFailure]
	denom := success + partial + failure
	if denom > 0 {
		stats.SuccessRate = float64(success+partial) / float64(denom)
	}

	return stats, nil
}

// CleanupOlderThan deletes records older than cutoffDays, returning the
// number of rows removed.
func (l *Log) CleanupOlderThan(ctx context.Context, cutoffDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -cutoffDays).UnixMilli()
	res, err := l.db.ExecContext(ctx, `DELETE FROM processing_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup processing history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanHistories(rows *sql.Rows) ([]model.ProcessingHistory, error) {
	var out []model.ProcessingHistory
	for rows.Next() {
		var h model.ProcessingHistory
		var ts int64
		var operation, status string
		var durationMs, recordsProcessed, recordsWithErrors sql.NullInt64
		var endpoint, details, errMsg, params sql.NullString

		if err := rows.Scan(&h.ID, &ts, &operation, &endpoint, &status, &durationMs, &recordsProcessed, &recordsWithErrors, &details, &errMsg, &params); err != nil {
			return nil, fmt.Errorf("scan processing history: %w", err)
		}
		h.Timestamp = time.UnixMilli(ts).UTC()
		h.Operation = model.Operation(operation)
		h.Status = model.Status(status)
		h.DurationMs = durationMs.Int64
		h.RecordsProcessed = int(recordsProcessed.Int64)
		h.RecordsWithErrors = int(recordsWithErrors.Int64)
		h.Endpoint = endpoint.String
		h.Details = details.String
		h.ErrorMessage = errMsg.String
		h.RequestParameters = params.String
		out = append(out, h)
	}
	return out, rows.Err()
}
