package evolution

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(config *Config, seed int64) *Selector {
	rng := rand.New(rand.NewSource(seed))
	mutator := NewMutator(nil, nil, emptyHistory{}, rng)
	crossover := NewCrossover(nil, rng)
	return NewSelector(config, mutator, crossover, rng)
}

func TestTournamentPrefersFitter(t *testing.T) {
	// One individual at fitness 1.0 among zeros: over many draws it must
	// win at least as often as the probability of being sampled at all,
	// 1 - (1 - 1/n)^k.
	config := DefaultConfig()
	config.TournamentSize = 3
	selector := newTestSelector(config, 99)

	n := 10
	population := make([]*Individual, n)
	for i := range population {
		population[i] = &Individual{ID: fmt.Sprintf("ind-%d", i), Fitness: 0.0}
	}
	population[4].Fitness = 1.0

	wins := 0
	trials := 1000
	for i := 0; i < trials; i++ {
		if selector.Tournament(population).ID == "ind-4" {
			wins++
		}
	}

	bound := 1.0 - math.Pow(1.0-1.0/float64(n), 3)
	proportion := float64(wins) / float64(trials)
	assert.GreaterOrEqual(t, proportion, bound-0.05,
		"winner proportion %.3f should track the sampling bound %.3f", proportion, bound)
}

func TestElitismPreservesTopIndividuals(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 6
	config.EliteSize = 2
	config.CrossoverRate = 0
	config.MutationRate = 0
	selector := newTestSelector(config, 5)

	population := make([]*Individual, 6)
	for i := range population {
		population[i] = &Individual{
			ID:      fmt.Sprintf("ind-%d", i),
			Prompt:  fmt.Sprintf("Prompt %d.", i),
			Fitness: float64(i) / 10.0,
		}
	}

	next := selector.BuildNextGeneration(context.Background(), population, 0)
	require.Len(t, next, 6)

	// ind-5 and ind-4 are the two fittest; they carry over with the same
	// id, prompt, and generation.
	assert.Equal(t, "ind-5", next[0].ID)
	assert.Equal(t, "Prompt 5.", next[0].Prompt)
	assert.Equal(t, 0, next[0].Generation)
	assert.Equal(t, "ind-4", next[1].ID)
}

func TestEliteReissueIsConfigurable(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 4
	config.EliteSize = 1
	config.CrossoverRate = 0
	config.MutationRate = 0
	config.ReissueEliteIDs = true
	selector := newTestSelector(config, 5)

	population := []*Individual{
		{ID: "a", Prompt: "A.", Fitness: 0.9},
		{ID: "b", Prompt: "B.", Fitness: 0.1},
		{ID: "c", Prompt: "C.", Fitness: 0.1},
		{ID: "d", Prompt: "D.", Fitness: 0.1},
	}

	next := selector.BuildNextGeneration(context.Background(), population, 3)
	assert.NotEqual(t, "a", next[0].ID)
	assert.Equal(t, "A.", next[0].Prompt)
	assert.Equal(t, 4, next[0].Generation)
}

func TestCloneOnlyGeneration(t *testing.T) {
	// With crossover and mutation both at zero, every non-elite slot is a
	// clone: fresh id, advanced generation, no mutation tags.
	config := DefaultConfig()
	config.PopulationSize = 4
	config.EliteSize = 1
	config.CrossoverRate = 0
	config.MutationRate = 0
	selector := newTestSelector(config, 11)

	seed := &Individual{
		ID:      "seed",
		Prompt:  "You are a helpful assistant. Focus on accuracy.",
		Fitness: 1.0,
		Metadata: Metadata{
			ExpertType: "assistant",
			Signature:  "sig-1",
		},
	}
	population := []*Individual{
		seed,
		{ID: "p1", Prompt: "Variant one.", Fitness: 0.2, MutationTags: []MutationStrategy{MutationFirstOrder}},
		{ID: "p2", Prompt: "Variant two.", Fitness: 0.2},
		{ID: "p3", Prompt: "Variant three.", Fitness: 0.2},
	}

	next := selector.BuildNextGeneration(context.Background(), population, 0)
	require.Len(t, next, 4)

	assert.Equal(t, "seed", next[0].ID, "the seed is the lone elite")
	for _, child := range next[1:] {
		assert.NotEqual(t, "seed", child.ID)
		assert.Equal(t, 1, child.Generation)
		assert.Empty(t, child.MutationTags)
		assert.Len(t, child.ParentIDs, 1)
	}
}

func TestCrossoverChildInheritsSignatureFromFirstParent(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 2
	config.EliteSize = 0
	config.CrossoverRate = 1.0
	config.MutationRate = 0
	selector := newTestSelector(config, 21)

	population := []*Individual{
		{ID: "a", Prompt: "You are an analyst. Focus on trends.", Fitness: 0.9,
			Metadata: Metadata{ExpertType: "analyst", Signature: "sig-a"}},
		{ID: "b", Prompt: "You are a writer. Focus on style.", Fitness: 0.8,
			Metadata: Metadata{ExpertType: "analyst", Signature: "sig-b"}},
	}

	next := selector.BuildNextGeneration(context.Background(), population, 0)
	require.Len(t, next, 2)
	for _, child := range next {
		assert.Len(t, child.ParentIDs, 2)
		assert.Equal(t, child.Metadata.Signature, "sig-"+child.ParentIDs[0])
		assert.Equal(t, 1, child.Generation)
	}
}

func TestMutationStrategyPolicyDistribution(t *testing.T) {
	config := DefaultConfig()
	config.Generations = 10
	selector := newTestSelector(config, 31)

	// Early in the run (generation 0) exploration is maximal: apart from
	// the fixed 40% semantic_rewrite share, only zero_order and
	// hypermutation should appear.
	counts := map[MutationStrategy]int{}
	for i := 0; i < 500; i++ {
		counts[selector.chooseMutationStrategy(0)]++
	}

	assert.Greater(t, counts[MutationSemanticRewrite], 100)
	assert.Greater(t, counts[MutationZeroOrder]+counts[MutationHypermutation], 200)
	assert.Zero(t, counts[MutationFirstOrder])
	assert.Zero(t, counts[MutationLamarckian])

	// At the final generation exploration has decayed to zero: the
	// non-semantic share is all first_order and lamarckian.
	counts = map[MutationStrategy]int{}
	for i := 0; i < 500; i++ {
		counts[selector.chooseMutationStrategy(10)]++
	}
	assert.Zero(t, counts[MutationZeroOrder])
	assert.Zero(t, counts[MutationHypermutation])
	assert.Greater(t, counts[MutationFirstOrder]+counts[MutationLamarckian], 200)
}
