// Package predictionstore is the C5 prediction store: upsert of predicted
// flight documents keyed by instanceId, with batch save that falls back to
// per-item retry on partial batch failure.
package predictionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/store/sqliteutil"
	"github.com/flightfusion/fusion/pkg/logger"
)

// Store is the sqlite-backed C5 prediction store.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if necessary) the predicted_flights document store.
func Open(path string, log *logger.Logger) (*Store, error) {
	storeLogger := log.Named("predictionstore")
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
		CREATE TABLE IF NOT EXISTS predicted_flights (
			instance_id INTEGER PRIMARY KEY,
			indicative TEXT,
			document TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create predicted_flights table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// FindByInstanceID returns the PredictedFlight for instanceId, or (nil, nil)
// if absent.
func (s *Store) FindByInstanceID(ctx context.Context, instanceID int64) (*model.PredictedFlight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM predicted_flights WHERE instance_id = ?`, instanceID)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan predicted flight: %w", err)
	}
	var pf model.PredictedFlight
	if err := json.Unmarshal([]byte(doc), &pf); err != nil {
		return nil, fmt.Errorf("unmarshal predicted flight: %w", err)
	}
	return &pf, nil
}

// ExistsByInstanceID reports whether a prediction for instanceId exists.
func (s *Store) ExistsByInstanceID(ctx context.Context, instanceID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predicted_flights WHERE instance_id = ?`, instanceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists by instance id: %w", err)
	}
	return n > 0, nil
}

// Count returns the total number of predicted flights.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predicted_flights`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count predicted flights: %w", err)
	}
	return n, nil
}

// Save upserts a single PredictedFlight.
func (s *Store) Save(ctx context.Context, pf *model.PredictedFlight) error {
	doc, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("marshal predicted flight %d: %w", pf.InstanceID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predicted_flights (instance_id, indicative, document)
		VALUES (?, ?, ?)
		ON CONFLICT(instance_id) DO UPDATE SET
			indicative = excluded.indicative,
			document = excluded.document
	`, pf.InstanceID, pf.Indicative, string(doc))
	if err != nil {
		return fmt.Errorf("save predicted flight %d: %w", pf.InstanceID, err)
	}
	return nil
}

// SaveAllResult reports how many of a batch were persisted and which failed.
type SaveAllResult struct {
	Persisted int
	Failed    map[int64]error
}

// SaveAll saves a batch of PredictedFlights in a single transaction; on
// transaction failure it falls back to saving each item individually and
// records per-item failures instead of aborting the whole batch.
func (s *Store) SaveAll(ctx context.Context, batch []*model.PredictedFlight) SaveAllResult {
	result := SaveAllResult{Failed: make(map[int64]error)}

	tx, err := s.db.BeginTx(ctx, nil)
	if err == nil {
		ok := true
		for _, pf := range batch {
			doc, merr := json.Marshal(pf)
			if merr != nil {
				ok = false
				break
			}
			if _, eerr := tx.ExecContext(ctx, `
				INSERT INTO predicted_flights (instance_id, indicative, document)
				VALUES (?, ?, ?)
				ON CONFLICT(instance_id) DO UPDATE SET
					indicative = excluded.indicative,
					document = excluded.document
			`, pf.InstanceID, pf.Indicative, string(doc)); eerr != nil {
				ok = false
				break
			}
		}
		if ok {
			if cerr := tx.Commit(); cerr == nil {
				result.Persisted = len(batch)
				return result
			}
		} else {
			tx.Rollback()
		}
	}

	for _, pf := range batch {
		if err := s.Save(ctx, pf); err != nil {
			result.Failed[pf.InstanceID] = err
			continue
		}
		result.Persisted++
	}
	return result
}

// FindAll returns a page of predicted flights, ordered by rowid.
func (s *Store) FindAll(ctx context.Context, offset, limit int) ([]*model.PredictedFlight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM predicted_flights ORDER BY rowid LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find all predicted flights: %w", err)
	}
	defer rows.Close()

	var out []*model.PredictedFlight
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan predicted flight: %w", err)
		}
		var pf model.PredictedFlight
		if err := json.Unmarshal([]byte(doc), &pf); err != nil {
			return nil, fmt.Errorf("unmarshal predicted flight: %w", err)
		}
		out = append(out, &pf)
	}
	return out, rows.Err()
}

// Delete removes the PredictedFlight for instanceId. Returns whether a row
// was deleted.
func (s *Store) Delete(ctx context.Context, instanceID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM predicted_flights WHERE instance_id = ?`, instanceID)
	if err != nil {
		return false, fmt.Errorf("delete predicted flight %d: %w", instanceID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
