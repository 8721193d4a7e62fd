// Package flightstore is the C4 flight store: an append-only per-flight
// document store with indexed lookup by planId and indicative, and the
// dedup-cleanup maintenance operation.
package flightstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/store/sqliteutil"
	"github.com/flightfusion/fusion/pkg/logger"
)

// Store is the sqlite-backed C4 flight store.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if necessary) the flights document store at path.
func Open(path string, log *logger.Logger) (*Store, error) {
	storeLogger := log.Named("flightstore")
	db, err := sqliteutil.Open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: storeLogger}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			plan_id INTEGER PRIMARY KEY,
			indicative TEXT NOT NULL,
			last_packet_timestamp INTEGER,
			total_tracking_points INTEGER NOT NULL DEFAULT 0,
			document TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_flights_indicative ON flights(indicative);
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Upsert whole-document-replaces the Flight keyed by planId.
func (s *Store) Upsert(ctx context.Context, f *model.Flight) error {
	doc, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal flight %d: %w", f.PlanID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flights (plan_id, indicative, last_packet_timestamp, total_tracking_points, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			indicative = excluded.indicative,
			last_packet_timestamp = excluded.last_packet_timestamp,
			total_tracking_points = excluded.total_tracking_points,
			document = excluded.document
	`, f.PlanID, f.Indicative, f.LastPacketTimestamp.UnixMilli(), f.TotalTrackingPoints, string(doc))
	if err != nil {
		return fmt.Errorf("upsert flight %d: %w", f.PlanID, err)
	}
	return nil
}

// FindByPlanID returns the Flight for planId, or (nil, nil) if absent.
func (s *Store) FindByPlanID(ctx context.Context, planID int64) (*model.Flight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM flights WHERE plan_id = ?`, planID)
	return scanOneDocument(row)
}

// FindByIndicative returns the first Flight matching indicative, in
// insertion (rowid) order, or (nil, nil) if none.
func (s *Store) FindByIndicative(ctx context.Context, indicative string) (*model.Flight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM flights WHERE indicative = ? ORDER BY rowid LIMIT 1`, indicative)
	return scanOneDocument(row)
}

// FindAllByIndicative returns every Flight matching indicative, in
// insertion order. C6 disambiguation requires this, not just the first.
func (s *Store) FindAllByIndicative(ctx context.Context, indicative string) ([]*model.Flight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM flights WHERE indicative = ? ORDER BY rowid`, indicative)
	if err != nil {
		return nil, fmt.Errorf("find all by indicative %q: %w", indicative, err)
	}
	defer rows.Close()
	return scanAllDocuments(rows)
}

// Count returns the total number of flights.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flights`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count flights: %w", err)
	}
	return n, nil
}

// FindAll returns a page of flights, ordered by rowid.
func (s *Store) FindAll(ctx context.Context, offset, limit int) ([]*model.Flight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM flights ORDER BY rowid LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find all flights: %w", err)
	}
	defer rows.Close()
	return scanAllDocuments(rows)
}

// DeleteByPlanID removes the Flight for planId. Returns whether a row was
// deleted.
func (s *Store) DeleteByPlanID(ctx context.Context, planID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flights WHERE plan_id = ?`, planID)
	if err != nil {
		return false, fmt.Errorf("delete flight %d: %w", planID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CleanupDedup reduces the target Flight's tracking points to the legacy
// uniqueness key (round6(lat), round6(lon), indicativeSafe), keeping the
// first occurrence by insertion order, and persists the result.
func (s *Store) CleanupDedup(ctx context.Context, planID int64) (removed int, err error) {
	f, err := s.FindByPlanID(ctx, planID)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, nil
	}

	seen := make(map[model.LegacyDedupKey]bool, len(f.TrackingPoints))
	kept := make([]model.TrackingPoint, 0, len(f.TrackingPoints))
	for _, tp := range f.TrackingPoints {
		key := tp.LegacyKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, tp)
	}
	removed = len(f.TrackingPoints) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	f.TrackingPoints = kept
	f.TotalTrackingPoints = len(kept)
	if err := s.Upsert(ctx, f); err != nil {
		return 0, err
	}
	return removed, nil
}

func scanOneDocument(row *sql.Row) (*model.Flight, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan flight: %w", err)
	}
	var f model.Flight
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		return nil, fmt.Errorf("unmarshal flight: %w", err)
	}
	return &f, nil
}

func scanAllDocuments(rows *sql.Rows) ([]*model.Flight, error) {
	var out []*model.Flight
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		var f model.Flight
		if err := json.Unmarshal([]byte(doc), &f); err != nil {
			return nil, fmt.Errorf("unmarshal flight: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
