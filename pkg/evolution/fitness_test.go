package evolution

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foxruv/iris-go/internal/testutil"
)

func TestDefaultFitnessBounds(t *testing.T) {
	fn := DefaultFitnessFunc(rand.New(rand.NewSource(1)))

	inputs := []string{
		"",
		"short",
		"You are a helpful assistant. Focus on accuracy.",
		"You are an expert software reviewer specializing in Go. Your objective is finding subtle bugs. Review each change carefully. Explain your reasoning. Be concise.",
	}

	for _, input := range inputs {
		eval, err := fn(context.Background(), input, "researcher", nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, eval.Overall, 0.0)
		assert.LessOrEqual(t, eval.Overall, 1.05)
	}
}

func TestDefaultFitnessRoleAndGoalBonuses(t *testing.T) {
	// 2 sentences and ~80 characters: the length and sentence-count
	// bonuses both miss, leaving base + role + goal.
	fn := DefaultFitnessFunc(rand.New(rand.NewSource(1)))

	eval, err := fn(context.Background(),
		"You are an expert researcher specializing in data. Focus on clarity of argument.",
		"researcher", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, eval.Overall, 1e-9)
}

func TestDefaultFitnessPerProjectNoise(t *testing.T) {
	fn := DefaultFitnessFunc(rand.New(rand.NewSource(42)))

	eval, err := fn(context.Background(),
		"You are a reviewer. Focus on quality.",
		"reviewer", []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, eval.ByProject, 2)
	for project, score := range eval.ByProject {
		assert.InDelta(t, eval.Overall, score, 0.05+1e-9, "project %s", project)
	}
}

func newTestPopulation(n int) []*Individual {
	pop := make([]*Individual, n)
	for i := range pop {
		pop[i] = &Individual{
			ID:     fmt.Sprintf("ind-%d", i),
			Prompt: fmt.Sprintf("You are expert number %d. Focus on testing.", i),
		}
	}
	return pop
}

func TestEvaluatorBatchPath(t *testing.T) {
	pop := newTestPopulation(3)

	batch := new(testutil.MockBatchEvaluator)
	batch.On("EvaluateBatch", mock.Anything, mock.Anything, "tester").Return(map[string]float64{
		"ind-0": 0.9,
		"ind-2": 0.3,
		// ind-1 deliberately missing
	}, nil)

	evaluator := NewEvaluator(DefaultConfig(), nil, batch, nil)
	evaluator.EvaluatePopulation(context.Background(), pop, "tester")

	assert.Equal(t, 0.9, pop[0].Fitness)
	assert.Equal(t, 0.5, pop[1].Fitness, "missing ids get the default score")
	assert.Equal(t, 0.3, pop[2].Fitness)
	batch.AssertExpectations(t)
}

func TestEvaluatorBatchFailureFallsBack(t *testing.T) {
	pop := newTestPopulation(3)

	batch := new(testutil.MockBatchEvaluator)
	batch.On("EvaluateBatch", mock.Anything, mock.Anything, "tester").
		Return(nil, fmt.Errorf("scoring service unreachable"))

	fn := func(ctx context.Context, prompt, expertType string, projects []string) (*FitnessEvaluation, error) {
		return &FitnessEvaluation{Overall: 0.7}, nil
	}

	evaluator := NewEvaluator(DefaultConfig(), fn, batch, nil)
	evaluator.EvaluatePopulation(context.Background(), pop, "tester")

	for _, ind := range pop {
		assert.Equal(t, 0.7, ind.Fitness)
	}
}

func TestEvaluatorSequentialErrorAssignsDefault(t *testing.T) {
	pop := newTestPopulation(2)

	fn := func(ctx context.Context, prompt, expertType string, projects []string) (*FitnessEvaluation, error) {
		return nil, fmt.Errorf("scorer blew up")
	}

	evaluator := NewEvaluator(DefaultConfig(), fn, nil, nil)
	evaluator.EvaluatePopulation(context.Background(), pop, "tester")

	for _, ind := range pop {
		assert.Equal(t, fallbackScore, ind.Fitness)
	}
}

func TestEvaluatorForwardsDecisions(t *testing.T) {
	config := DefaultConfig()
	config.MinFitnessThreshold = 0.5

	pop := newTestPopulation(2)
	pop[0].MutationTags = []MutationStrategy{MutationFirstOrder}
	pop[0].ParentIDs = []string{"parent-a"}

	fn := func(ctx context.Context, prompt, expertType string, projects []string) (*FitnessEvaluation, error) {
		if prompt == pop[0].Prompt {
			return &FitnessEvaluation{Overall: 0.9}, nil
		}
		return &FitnessEvaluation{Overall: 0.2}, nil
	}

	sink := &recordingSink{}
	evaluator := NewEvaluator(config, fn, nil, sink)
	evaluator.EvaluatePopulation(context.Background(), pop, "tester")

	require.Len(t, sink.records, 2)
	byID := map[string]*DecisionRecord{}
	for _, r := range sink.records {
		byID[r.IndividualID] = r
	}

	first := byID["ind-0"]
	require.NotNil(t, first)
	assert.True(t, first.Success)
	assert.Equal(t, []string{"first_order"}, first.Reasoning)
	assert.Equal(t, []string{"parent-a"}, first.Causes)

	second := byID["ind-1"]
	require.NotNil(t, second)
	assert.False(t, second.Success)
}

type recordingSink struct {
	records []*DecisionRecord
}

func (s *recordingSink) Record(ctx context.Context, record *DecisionRecord) error {
	s.records = append(s.records, record)
	return nil
}
