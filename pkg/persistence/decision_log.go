package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/evolution"
)

// DecisionLog records one row per evaluated individual per generation. It
// implements evolution.DecisionSink.
type DecisionLog struct {
	db *sql.DB
	mu sync.Mutex
}

// NewDecisionLog opens a decision log at path.
func NewDecisionLog(path string) (*DecisionLog, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	schema := `
    CREATE TABLE IF NOT EXISTS decisions (
        individual_id TEXT NOT NULL,
        prompt        TEXT NOT NULL,
        expert_type   TEXT NOT NULL,
        fitness       REAL NOT NULL,
        reasoning     TEXT,
        causes        TEXT,
        success       INTEGER NOT NULL,
        created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_decisions_expert_type
    ON decisions(expert_type, created_at);
    `
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to initialize decision log schema")
	}

	return &DecisionLog{db: db}, nil
}

// Record implements evolution.DecisionSink.
func (l *DecisionLog) Record(ctx context.Context, record *evolution.DecisionRecord) error {
	reasoning, err := json.Marshal(record.Reasoning)
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to marshal reasoning")
	}
	causes, err := json.Marshal(record.Causes)
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to marshal causes")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err = l.db.ExecContext(ctx, `
        INSERT INTO decisions (individual_id, prompt, expert_type, fitness, reasoning, causes, success)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.IndividualID, record.Prompt, record.ExpertType, record.Fitness,
		string(reasoning), string(causes), boolToInt(record.Success))
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to record decision"),
			errors.Fields{"individual_id": record.IndividualID})
	}
	return nil
}

// Count returns the number of recorded decisions for an expert type.
func (l *DecisionLog) Count(ctx context.Context, expertType string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decisions WHERE expert_type = ?`, expertType).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.PersistenceFailed, "failed to count decisions")
	}
	return n, nil
}

// Close releases the underlying database.
func (l *DecisionLog) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
