// Package llm defines the language-model collaborator boundary used by the
// evolution engine, plus concrete provider implementations.
//
// The engine never depends on a provider directly: mutation operators talk
// to the Collaborator interface and treat every failure as recoverable.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/foxruv/iris-go/pkg/errors"
)

// Prediction is the structured response from a collaborator call. The
// schema is constrained to exactly one field.
type Prediction struct {
	ImprovedPrompt string `json:"improved_prompt"`
}

// PredictOptions control sampling for a single Predict call.
type PredictOptions struct {
	Temperature float64
	MaxTokens   int
}

// PredictOption mutates PredictOptions.
type PredictOption func(*PredictOptions)

// NewPredictOptions returns defaults suitable for prompt rewriting.
func NewPredictOptions() *PredictOptions {
	return &PredictOptions{
		Temperature: 0.8,
		MaxTokens:   500,
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) PredictOption {
	return func(o *PredictOptions) {
		o.Temperature = t
	}
}

// WithMaxTokens sets the generation token cap.
func WithMaxTokens(n int) PredictOption {
	return func(o *PredictOptions) {
		o.MaxTokens = n
	}
}

// Collaborator is an optional language-model helper for prompt mutation.
// Implementations must be safe for concurrent use.
type Collaborator interface {
	// IsHealthy reports whether the collaborator is reachable and usable.
	// Callers consult this before issuing Predict and fall back to
	// deterministic transforms when it returns false.
	IsHealthy(ctx context.Context) bool

	// Predict asks the model to transform input according to instructions,
	// returning a schema-constrained response with a single improved_prompt
	// field.
	Predict(ctx context.Context, instructions, input string, opts ...PredictOption) (*Prediction, error)
}

// Candidate pairs a prompt with its individual id for batch scoring.
type Candidate struct {
	ID   string
	Text string
}

// BatchEvaluator scores many prompts in one request, returning an id→score
// map. Ids missing from the response are the caller's problem to default.
type BatchEvaluator interface {
	EvaluateBatch(ctx context.Context, candidates []Candidate, expertType string) (map[string]float64, error)
}

// ParsePrediction extracts a Prediction from raw model output. It tolerates
// markdown code fences and leading prose, but requires the improved_prompt
// field to be present and non-empty.
func ParsePrediction(content string) (*Prediction, error) {
	cleaned := strings.TrimSpace(content)

	// Strip markdown fences if present
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	// Locate the outermost JSON object when the model wraps it in prose
	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, errors.New(errors.InvalidResponse, "no JSON object in collaborator response")
		}
		cleaned = cleaned[start : end+1]
	}

	var pred Prediction
	if err := json.Unmarshal([]byte(cleaned), &pred); err != nil {
		return nil, errors.Wrap(err, errors.InvalidResponse, "failed to parse collaborator response")
	}
	if pred.ImprovedPrompt == "" {
		return nil, errors.New(errors.InvalidResponse, "collaborator response missing improved_prompt")
	}
	return &pred, nil
}
