// Package evolution implements a genetic-algorithm engine that improves
// natural-language instruction prompts ("experts") across one or more
// evaluation projects.
//
// The engine maintains a population of candidate prompts, scores them with a
// pluggable fitness evaluator, and produces successive generations through
// tournament selection, elitism, crossover, and mutation. Snapshots of every
// generation form an append-only history used for lineage reconstruction and
// automatic rollback on fitness regression.
package evolution

import (
	"time"
)

// MutationStrategy identifies one of the supported prompt mutation operators.
type MutationStrategy string

const (
	MutationZeroOrder       MutationStrategy = "zero_order"
	MutationFirstOrder      MutationStrategy = "first_order"
	MutationLineage         MutationStrategy = "lineage_mutation"
	MutationHypermutation   MutationStrategy = "hypermutation"
	MutationLamarckian      MutationStrategy = "lamarckian"
	MutationSemanticRewrite MutationStrategy = "semantic_rewrite"
)

// CrossoverStrategy identifies one of the supported crossover operators.
type CrossoverStrategy string

const (
	CrossoverUniform     CrossoverStrategy = "uniform"
	CrossoverSinglePoint CrossoverStrategy = "single_point"
	CrossoverMultiPoint  CrossoverStrategy = "multi_point"
	CrossoverSemantic    CrossoverStrategy = "semantic"
)

// Metadata carries provenance information attached to each individual.
type Metadata struct {
	CreatedAt  time.Time `json:"created_at"`
	ExpertType string    `json:"expert_type"`
	Project    string    `json:"project,omitempty"`
	Signature  string    `json:"signature,omitempty"`
}

// Individual is one candidate prompt in the population, together with its
// fitness and lineage metadata. Ids are globally unique across a run and are
// never reused, even across rollback.
type Individual struct {
	ID           string             `json:"id"`
	Prompt       string             `json:"prompt"`
	Fitness      float64            `json:"fitness"`
	Generation   int                `json:"generation"`
	ParentIDs    []string           `json:"parent_ids"`
	MutationTags []MutationStrategy `json:"mutation_tags"`
	Metadata     Metadata           `json:"metadata"`
}

// Clone returns a deep copy of the individual.
func (ind *Individual) Clone() *Individual {
	dup := *ind
	if ind.ParentIDs != nil {
		dup.ParentIDs = make([]string, len(ind.ParentIDs))
		copy(dup.ParentIDs, ind.ParentIDs)
	}
	if ind.MutationTags != nil {
		dup.MutationTags = make([]MutationStrategy, len(ind.MutationTags))
		copy(dup.MutationTags, ind.MutationTags)
	}
	return &dup
}

// GenerationSnapshot is an immutable copy of the population at one point in
// evolutionary time. Snapshots form an append-only history and are the sole
// medium for lineage traversal and rollback.
type GenerationSnapshot struct {
	Number      int           `json:"number"`
	Population  []*Individual `json:"population"`
	BestFitness float64       `json:"best_fitness"`
	AvgFitness  float64       `json:"avg_fitness"`
	Diversity   float64       `json:"diversity"` // stddev of fitness
	Timestamp   time.Time     `json:"timestamp"`
}

// FitnessMetrics carries optional per-evaluation measurements.
type FitnessMetrics struct {
	Accuracy    float64 `json:"accuracy,omitempty"`
	Latency     float64 `json:"latency,omitempty"`
	Consistency float64 `json:"consistency,omitempty"`
}

// FitnessEvaluation is the full result of scoring one prompt.
type FitnessEvaluation struct {
	Overall   float64            `json:"overall"`
	ByProject map[string]float64 `json:"by_project,omitempty"`
	Metrics   FitnessMetrics     `json:"metrics"`
	Timestamp time.Time          `json:"timestamp"`
}
