package persistence

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/evolution"
)

// Embedder converts prompt text into a dense vector. Implementations may
// call an external embedding model; the default is a deterministic
// feature-hash embedding so the store works offline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// hashEmbedder buckets token hashes into a fixed-width vector and
// L2-normalizes it. Deterministic, dependency-free.
type hashEmbedder struct {
	dims int
}

// NewHashEmbedder returns the default feature-hash embedder.
func NewHashEmbedder(dims int) Embedder {
	if dims <= 0 {
		dims = 64
	}
	return &hashEmbedder{dims: dims}
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// ExpertEmbedding is one stored expert with its vector.
type ExpertEmbedding struct {
	ExpertID    string            `json:"expert_id"`
	Name        string            `json:"name"`
	Signature   string            `json:"signature,omitempty"`
	Embedding   []float32         `json:"embedding"`
	Performance float64           `json:"performance"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// EmbeddingStore is the local embedding/vector sink for evolved experts.
// It implements evolution.BestResultSink.
type EmbeddingStore struct {
	db       *sql.DB
	embedder Embedder
	mu       sync.Mutex
}

// NewEmbeddingStore opens an embedding store at path. embedder may be nil,
// in which case the feature-hash default is used.
func NewEmbeddingStore(path string, embedder Embedder) (*EmbeddingStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	schema := `
    CREATE TABLE IF NOT EXISTS expert_embeddings (
        expert_id   TEXT PRIMARY KEY,
        name        TEXT NOT NULL,
        signature   TEXT,
        embedding   BLOB NOT NULL,
        performance REAL NOT NULL,
        metadata    TEXT,
        created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to initialize embedding store schema")
	}

	if embedder == nil {
		embedder = NewHashEmbedder(64)
	}
	return &EmbeddingStore{db: db, embedder: embedder}, nil
}

// SaveBest implements evolution.BestResultSink.
func (s *EmbeddingStore) SaveBest(ctx context.Context, result *evolution.BestResult) error {
	vec, err := s.embedder.Embed(ctx, result.Individual.Prompt)
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to embed prompt")
	}

	meta, err := json.Marshal(map[string]string{
		"version": result.Version,
		"prompt":  result.Individual.Prompt,
	})
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to marshal metadata")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO expert_embeddings (expert_id, name, signature, embedding, performance, metadata)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(expert_id) DO UPDATE SET
            name = excluded.name,
            signature = excluded.signature,
            embedding = excluded.embedding,
            performance = excluded.performance,
            metadata = excluded.metadata`,
		result.Individual.ID, result.ExpertType, result.Signature,
		encodeVector(vec), result.Individual.Fitness, string(meta))
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to store expert embedding"),
			errors.Fields{"expert_id": result.Individual.ID})
	}
	return nil
}

// Get returns a stored expert embedding by id.
func (s *EmbeddingStore) Get(ctx context.Context, expertID string) (*ExpertEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
        SELECT expert_id, name, signature, embedding, performance, metadata
        FROM expert_embeddings WHERE expert_id = ?`, expertID)

	var e ExpertEmbedding
	var signature, meta sql.NullString
	var blob []byte
	if err := row.Scan(&e.ExpertID, &e.Name, &signature, &blob, &e.Performance, &meta); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.WithFields(
				errors.New(errors.ResourceNotFound, "no stored embedding for expert"),
				errors.Fields{"expert_id": expertID})
		}
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to query expert embedding")
	}

	e.Signature = signature.String
	e.Embedding = decodeVector(blob)
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to unmarshal metadata")
		}
	}
	return &e, nil
}

// Close releases the underlying database.
func (s *EmbeddingStore) Close() error {
	return s.db.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
