package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/logging"
)

// AnthropicCollaborator implements Collaborator on top of Anthropic's
// Messages API.
type AnthropicCollaborator struct {
	client *anthropic.Client
	model  anthropic.Model

	healthMu      sync.Mutex
	healthChecked time.Time
	healthy       bool
}

// healthCheckTTL bounds how often IsHealthy issues a live probe.
const healthCheckTTL = 5 * time.Minute

// NewAnthropicCollaborator creates a collaborator backed by the given model.
// The API key falls back to ANTHROPIC_API_KEY when empty.
func NewAnthropicCollaborator(apiKey string, model anthropic.Model) (*AnthropicCollaborator, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicCollaborator{
		client: &client,
		model:  model,
	}, nil
}

// IsHealthy probes the API with a minimal request, caching the result for
// healthCheckTTL to avoid probing once per mutation.
func (a *AnthropicCollaborator) IsHealthy(ctx context.Context) bool {
	a.healthMu.Lock()
	defer a.healthMu.Unlock()

	if time.Since(a.healthChecked) < healthCheckTTL {
		return a.healthy
	}

	_, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock("ping"),
			),
		},
		MaxTokens: 1,
	})

	a.healthChecked = time.Now()
	a.healthy = err == nil
	if err != nil {
		logging.GetLogger().Warn(ctx, "Anthropic health check failed: %v", err)
	}
	return a.healthy
}

// Predict implements Collaborator.
func (a *AnthropicCollaborator) Predict(ctx context.Context, instructions, input string, opts ...PredictOption) (*Prediction, error) {
	logger := logging.GetLogger()
	options := NewPredictOptions()
	for _, opt := range opts {
		opt(options)
	}

	prompt := fmt.Sprintf(`%s

Input prompt:
%s

Respond with a JSON object containing exactly one field, "improved_prompt", holding the rewritten prompt. No other text.`, instructions, input)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   int64(options.MaxTokens),
		Temperature: anthropic.Float(options.Temperature),
	})

	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		}
		return nil, errors.WithFields(
			errors.Wrap(err, errors.CollaboratorUnavailable, "failed to generate prediction"),
			errors.Fields{
				"model":      string(a.model),
				"max_tokens": options.MaxTokens,
			})
	}

	if message == nil || len(message.Content) == 0 {
		return nil, errors.New(errors.InvalidResponse, "received empty content from Anthropic API")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}

	return ParsePrediction(responseText)
}
