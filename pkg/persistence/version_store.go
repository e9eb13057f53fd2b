package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/evolution"
	"github.com/foxruv/iris-go/pkg/logging"
)

// ExpertVersion is one stored prompt version for an expert type.
type ExpertVersion struct {
	ExpertType         string             `json:"expert_type"`
	Version            string             `json:"version"`
	Prompt             string             `json:"prompt"`
	Signature          string             `json:"signature,omitempty"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics,omitempty"`
	Metadata           map[string]string  `json:"metadata,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// UpgradeRecord compares a newly stored version against the immediately
// prior one.
type UpgradeRecord struct {
	ExpertType         string    `json:"expert_type"`
	FromVersion        string    `json:"from_version"`
	ToVersion          string    `json:"to_version"`
	FitnessImprovement float64   `json:"fitness_improvement"`
	GenerationsEvolved int       `json:"generations_evolved"`
	CreatedAt          time.Time `json:"created_at"`
}

// VersionStore keeps evolved expert prompts keyed by (expertType, version)
// and records upgrade deltas between consecutive versions. It implements
// evolution.BestResultSink.
type VersionStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewVersionStore opens (and initializes) a version store at path.
func NewVersionStore(path string) (*VersionStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	schema := `
    CREATE TABLE IF NOT EXISTS expert_versions (
        expert_type TEXT NOT NULL,
        version     TEXT NOT NULL,
        prompt      TEXT NOT NULL,
        signature   TEXT,
        performance TEXT,
        metadata    TEXT,
        created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (expert_type, version)
    );

    CREATE TABLE IF NOT EXISTS expert_upgrades (
        expert_type         TEXT NOT NULL,
        from_version        TEXT NOT NULL,
        to_version          TEXT NOT NULL,
        fitness_improvement REAL NOT NULL,
        generations_evolved INTEGER NOT NULL,
        created_at          DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_expert_versions_created_at
    ON expert_versions(expert_type, created_at);
    `
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to initialize version store schema")
	}

	return &VersionStore{db: db}, nil
}

// SaveBest implements evolution.BestResultSink. It stores the new version
// and, when a prior version exists, writes an upgrade record capturing the
// fitness improvement.
func (s *VersionStore) SaveBest(ctx context.Context, result *evolution.BestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.latestLocked(ctx, result.ExpertType)
	if err != nil && errors.Code(err) != errors.ResourceNotFound {
		return err
	}

	perf, err := json.Marshal(result.PerformanceMetrics)
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to marshal performance metrics")
	}
	meta, err := json.Marshal(map[string]string{
		"individual_id": result.Individual.ID,
		"created_at":    result.Individual.Metadata.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to marshal metadata")
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO expert_versions (expert_type, version, prompt, signature, performance, metadata)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(expert_type, version) DO UPDATE SET
            prompt = excluded.prompt,
            signature = excluded.signature,
            performance = excluded.performance,
            metadata = excluded.metadata`,
		result.ExpertType, result.Version, result.Individual.Prompt, result.Signature, string(perf), string(meta))
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to store expert version"),
			errors.Fields{"expert_type": result.ExpertType, "version": result.Version})
	}

	if prior != nil && prior.Version != result.Version {
		improvement := result.PerformanceMetrics["fitness"] - prior.PerformanceMetrics["fitness"]
		_, err = s.db.ExecContext(ctx, `
            INSERT INTO expert_upgrades (expert_type, from_version, to_version, fitness_improvement, generations_evolved)
            VALUES (?, ?, ?, ?, ?)`,
			result.ExpertType, prior.Version, result.Version, improvement, result.GenerationsEvolved)
		if err != nil {
			// The version row is in; losing the upgrade record is tolerable.
			logging.GetLogger().Warn(ctx, "Failed to record upgrade for %s: %v", result.ExpertType, err)
		}
	}

	return nil
}

// Latest returns the most recently stored version for the expert type.
func (s *VersionStore) Latest(ctx context.Context, expertType string) (*ExpertVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(ctx, expertType)
}

func (s *VersionStore) latestLocked(ctx context.Context, expertType string) (*ExpertVersion, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT expert_type, version, prompt, signature, performance, metadata, created_at
        FROM expert_versions
        WHERE expert_type = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT 1`, expertType)

	var v ExpertVersion
	var signature, perf, meta sql.NullString
	if err := row.Scan(&v.ExpertType, &v.Version, &v.Prompt, &signature, &perf, &meta, &v.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.WithFields(
				errors.New(errors.ResourceNotFound, "no stored version for expert type"),
				errors.Fields{"expert_type": expertType})
		}
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to query latest version")
	}

	v.Signature = signature.String
	if perf.Valid && perf.String != "" {
		if err := json.Unmarshal([]byte(perf.String), &v.PerformanceMetrics); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to unmarshal performance metrics")
		}
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &v.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to unmarshal metadata")
		}
	}
	return &v, nil
}

// Upgrades returns all upgrade records for an expert type, oldest first.
func (s *VersionStore) Upgrades(ctx context.Context, expertType string) ([]*UpgradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
        SELECT expert_type, from_version, to_version, fitness_improvement, generations_evolved, created_at
        FROM expert_upgrades
        WHERE expert_type = ?
        ORDER BY created_at ASC, rowid ASC`, expertType)
	if err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to query upgrades")
	}
	defer rows.Close()

	var upgrades []*UpgradeRecord
	for rows.Next() {
		var u UpgradeRecord
		if err := rows.Scan(&u.ExpertType, &u.FromVersion, &u.ToVersion, &u.FitnessImprovement, &u.GenerationsEvolved, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to scan upgrade record")
		}
		upgrades = append(upgrades, &u)
	}
	return upgrades, rows.Err()
}

// Close releases the underlying database.
func (s *VersionStore) Close() error {
	return s.db.Close()
}
