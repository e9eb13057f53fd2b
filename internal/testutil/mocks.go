// Package testutil provides shared mocks for engine tests.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/foxruv/iris-go/pkg/llm"
)

// MockCollaborator is a testify mock for llm.Collaborator.
type MockCollaborator struct {
	mock.Mock
}

func (m *MockCollaborator) IsHealthy(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockCollaborator) Predict(ctx context.Context, instructions, input string, opts ...llm.PredictOption) (*llm.Prediction, error) {
	args := m.Called(ctx, instructions, input)
	if pred := args.Get(0); pred != nil {
		return pred.(*llm.Prediction), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBatchEvaluator is a testify mock for llm.BatchEvaluator.
type MockBatchEvaluator struct {
	mock.Mock
}

func (m *MockBatchEvaluator) EvaluateBatch(ctx context.Context, candidates []llm.Candidate, expertType string) (map[string]float64, error) {
	args := m.Called(ctx, candidates, expertType)
	if scores := args.Get(0); scores != nil {
		return scores.(map[string]float64), args.Error(1)
	}
	return nil, args.Error(1)
}
