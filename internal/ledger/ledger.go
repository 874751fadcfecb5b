// Package ledger keeps an optional SQLite history of evaluation runs.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS eval_runs (
	run_id        TEXT PRIMARY KEY,
	checkpoint    TEXT NOT NULL,
	channel       TEXT NOT NULL,
	device        TEXT NOT NULL,
	batch_size    INTEGER NOT NULL,
	samples       INTEGER NOT NULL,
	batches       INTEGER NOT NULL,
	accuracy      REAL NOT NULL,
	loss          REAL NOT NULL,
	f1_macro      REAL NOT NULL,
	f1_micro      REAL NOT NULL,
	f1_weighted   REAL NOT NULL,
	f1_per_class  TEXT NOT NULL,
	confusion     TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);
`

// Run is one row of eval_runs. CreatedAt is stored as unix nanoseconds so
// ordering by the column is ordering by time.
type Run struct {
	RunID      string
	Checkpoint string
	Channel    string
	Device     string
	BatchSize  int
	Samples    int
	Batches    int
	Accuracy   float64
	Loss       float64
	F1Macro    float64
	F1Micro    float64
	F1Weighted float64
	F1PerClass []float64
	Confusion  [][]int
	CreatedAt  time.Time
}

// Store manages the run history in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and creates the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run, assigning a run id and timestamp when unset, and
// returns the stored row.
func (s *Store) Record(run Run) (Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	perClass, err := json.Marshal(run.F1PerClass)
	if err != nil {
		return Run{}, fmt.Errorf("marshal f1: %w", err)
	}
	confusion, err := json.Marshal(run.Confusion)
	if err != nil {
		return Run{}, fmt.Errorf("marshal confusion: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO eval_runs (run_id, checkpoint, channel, device, batch_size, samples, batches,
			accuracy, loss, f1_macro, f1_micro, f1_weighted, f1_per_class, confusion, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Checkpoint, run.Channel, run.Device, run.BatchSize, run.Samples, run.Batches,
		run.Accuracy, run.Loss, run.F1Macro, run.F1Micro, run.F1Weighted,
		string(perClass), string(confusion), run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT run_id, checkpoint, channel, device, batch_size, samples, batches,
			accuracy, loss, f1_macro, f1_micro, f1_weighted, f1_per_class, confusion, created_at
		 FROM eval_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var perClass, confusion string
		var createdAt int64
		if err := rows.Scan(&r.RunID, &r.Checkpoint, &r.Channel, &r.Device, &r.BatchSize, &r.Samples, &r.Batches,
			&r.Accuracy, &r.Loss, &r.F1Macro, &r.F1Micro, &r.F1Weighted, &perClass, &confusion, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(perClass), &r.F1PerClass); err != nil {
			return nil, fmt.Errorf("run %s f1: %w", r.RunID, err)
		}
		if err := json.Unmarshal([]byte(confusion), &r.Confusion); err != nil {
			return nil, fmt.Errorf("run %s confusion: %w", r.RunID, err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
