package evolution

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxruv/iris-go/pkg/errors"
)

// roundFitness scores every individual by the evaluation round it was seen
// in, for driving the rollback path deterministically.
type roundFitness struct {
	mu             sync.Mutex
	calls          int
	populationSize int
	scores         []float64
}

func (r *roundFitness) fn(ctx context.Context, prompt, expertType string, projects []string) (*FitnessEvaluation, error) {
	r.mu.Lock()
	round := r.calls / r.populationSize
	r.calls++
	r.mu.Unlock()

	if round >= len(r.scores) {
		round = len(r.scores) - 1
	}
	return &FitnessEvaluation{Overall: r.scores[round]}, nil
}

func sortedPrompts(snap *GenerationSnapshot) []string {
	prompts := make([]string, len(snap.Population))
	for i, ind := range snap.Population {
		prompts[i] = ind.Prompt
	}
	sort.Strings(prompts)
	return prompts
}

func TestEvolveEndToEnd(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 6
	config.Generations = 4
	config.EliteSize = 2

	engine, err := NewEngine(config, WithRandSeed(42))
	require.NoError(t, err)

	seeds := []string{
		"You are a helpful assistant. Focus on accuracy.",
		"You are an expert reviewer specializing in prose. Your goal is clarity.",
	}
	best, err := engine.Evolve(context.Background(), seeds, "reviewer", "review->feedback")
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.NotEmpty(t, best.Prompt)
	assert.GreaterOrEqual(t, best.Fitness, 0.0)
	assert.Equal(t, 6, engine.Store().Size(), "population size is invariant across generations")
	assert.Len(t, engine.Store().History(), 4, "one snapshot per generation")
}

func TestEvolveRollsBackOnRegression(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 4
	config.Generations = 3
	config.EliteSize = 1

	// Round 0 scores 1.0, round 1 collapses to 0.5 and trips the rollback,
	// round 2 re-evaluates the restored generation at 1.0.
	scorer := &roundFitness{populationSize: 4, scores: []float64{1.0, 0.5, 1.0}}

	engine, err := NewEngine(config, WithRandSeed(7), WithFitnessFunc(scorer.fn))
	require.NoError(t, err)

	best, err := engine.Evolve(context.Background(),
		[]string{"You are a planner. Focus on deadlines."}, "planner", "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, best.Fitness, 1e-9)

	history := engine.Store().History()
	require.Len(t, history, 3)
	assert.Equal(t, 0, history[0].Number)
	assert.Equal(t, 1, history[1].Number)
	assert.Equal(t, 0, history[2].Number, "rollback re-captures the restored generation")

	assert.Equal(t, sortedPrompts(history[0]), sortedPrompts(history[2]),
		"restored population matches the snapshot it was rolled back to")
}

func TestEvolveWithoutAutoRollbackKeepsRegressions(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 4
	config.Generations = 3
	config.EliteSize = 1
	config.AutoRollback = false

	scorer := &roundFitness{populationSize: 4, scores: []float64{1.0, 0.5, 0.5}}

	engine, err := NewEngine(config, WithRandSeed(7), WithFitnessFunc(scorer.fn))
	require.NoError(t, err)

	_, err = engine.Evolve(context.Background(),
		[]string{"You are a planner. Focus on deadlines."}, "planner", "")
	require.NoError(t, err)

	history := engine.Store().History()
	require.Len(t, history, 3)
	for i, snap := range history {
		assert.Equal(t, i, snap.Number)
	}
}

func TestEvolveRollbackBudgetIsBounded(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 4
	config.Generations = 5
	config.EliteSize = 1
	config.MaxRollbacks = 1

	// Every round after the first regresses: only one rollback is allowed,
	// after which the run evolves forward regardless.
	scorer := &roundFitness{populationSize: 4, scores: []float64{1.0, 0.5, 0.4, 0.3, 0.2}}

	engine, err := NewEngine(config, WithRandSeed(7), WithFitnessFunc(scorer.fn))
	require.NoError(t, err)

	_, err = engine.Evolve(context.Background(),
		[]string{"You are a planner. Focus on deadlines."}, "planner", "")
	require.NoError(t, err)

	rollbacks := 0
	history := engine.Store().History()
	for i := 1; i < len(history); i++ {
		if history[i].Number <= history[i-1].Number {
			rollbacks++
		}
	}
	assert.Equal(t, 1, rollbacks)
}

func TestEvolveRejectsEmptySeeds(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), WithRandSeed(1))
	require.NoError(t, err)

	_, err = engine.Evolve(context.Background(), nil, "reviewer", "")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.Code(err))
}

func TestEvolveHonorsContextCancellation(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), WithRandSeed(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Evolve(ctx, []string{"You are a planner."}, "planner", "")
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.Code(err))
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.EliteSize = config.PopulationSize + 1

	_, err := NewEngine(config)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidConfig, errors.Code(err))
}

type recordingBestSink struct {
	mu      sync.Mutex
	results []*BestResult
	err     error
}

func (s *recordingBestSink) SaveBest(ctx context.Context, result *BestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.err
}

func TestEvolvePersistsBestResult(t *testing.T) {
	config := DefaultConfig()
	config.PopulationSize = 4
	config.Generations = 2
	config.EliteSize = 1

	sink := &recordingBestSink{}
	failing := &recordingBestSink{err: assert.AnError}

	engine, err := NewEngine(config,
		WithRandSeed(3),
		WithBestResultSink(sink),
		WithBestResultSink(failing))
	require.NoError(t, err)

	best, err := engine.Evolve(context.Background(),
		[]string{"You are a researcher. Focus on evidence."}, "researcher", "question->answer")
	require.NoError(t, err, "a failing sink never aborts the run")

	require.Len(t, sink.results, 1)
	result := sink.results[0]
	assert.Same(t, best, result.Individual)
	assert.Equal(t, "researcher", result.ExpertType)
	assert.Equal(t, "question->answer", result.Signature)
	assert.Regexp(t, `^v\d+\.0\.0$`, result.Version)
	assert.Equal(t, best.Fitness, result.PerformanceMetrics["fitness"])
	assert.Equal(t, 2, result.GenerationsEvolved)
	require.Len(t, failing.results, 1)
}
