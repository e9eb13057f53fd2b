package evolution

import (
	"context"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/foxruv/iris-go/pkg/llm"
	"github.com/foxruv/iris-go/pkg/logging"
)

// FitnessFunc scores one prompt for an expert type across the configured
// projects. Implementations may call out to external scorers.
type FitnessFunc func(ctx context.Context, prompt, expertType string, projects []string) (*FitnessEvaluation, error)

// DecisionRecord is the causal/decision record emitted once per evaluated
// individual per generation.
type DecisionRecord struct {
	IndividualID string    `json:"individual_id"`
	Prompt       string    `json:"prompt"`
	ExpertType   string    `json:"expert_type"`
	Fitness      float64   `json:"fitness"`
	Reasoning    []string  `json:"reasoning"` // mutation tags
	Causes       []string  `json:"causes"`    // parent ids
	Success      bool      `json:"success"`   // fitness > min threshold
	Timestamp    time.Time `json:"timestamp"`
}

// DecisionSink receives decision records. Delivery is best-effort; errors
// are logged and never interrupt the run.
type DecisionSink interface {
	Record(ctx context.Context, record *DecisionRecord) error
}

// fallbackScore is assigned when a batch response omits an id or a fitness
// function fails.
const fallbackScore = 0.5

// Evaluator scores a whole population, preferring one batched remote call
// and falling back to per-individual scoring.
type Evaluator struct {
	config    *Config
	fitnessFn FitnessFunc
	batch     llm.BatchEvaluator // optional
	sink      DecisionSink       // optional
}

// NewEvaluator creates a fitness evaluator. When fitnessFn is nil the
// default heuristic is used. batch and sink may be nil.
func NewEvaluator(config *Config, fitnessFn FitnessFunc, batch llm.BatchEvaluator, sink DecisionSink) *Evaluator {
	if fitnessFn == nil {
		fitnessFn = DefaultFitnessFunc(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return &Evaluator{
		config:    config,
		fitnessFn: fitnessFn,
		batch:     batch,
		sink:      sink,
	}
}

// EvaluatePopulation assigns a fitness to every individual. The batch path
// is tried first when a batch evaluator is configured; any error there is
// logged and the sequential path takes over. Every evaluation is forwarded
// to the decision sink.
func (e *Evaluator) EvaluatePopulation(ctx context.Context, population []*Individual, expertType string) {
	logger := logging.GetLogger()

	if e.batch != nil {
		if err := e.evaluateBatch(ctx, population, expertType); err != nil {
			logger.Warn(ctx, "Batch evaluation failed, falling back to sequential scoring: %v", err)
			e.evaluateSequential(ctx, population, expertType)
		}
	} else {
		e.evaluateSequential(ctx, population, expertType)
	}

	e.forwardDecisions(ctx, population, expertType)
}

func (e *Evaluator) evaluateBatch(ctx context.Context, population []*Individual, expertType string) error {
	candidates := make([]llm.Candidate, len(population))
	for i, ind := range population {
		candidates[i] = llm.Candidate{ID: ind.ID, Text: ind.Prompt}
	}

	scores, err := e.batch.EvaluateBatch(ctx, candidates, expertType)
	if err != nil {
		return err
	}

	missing := 0
	for _, ind := range population {
		if score, ok := scores[ind.ID]; ok {
			ind.Fitness = score
		} else {
			ind.Fitness = fallbackScore
			missing++
		}
	}
	if missing > 0 {
		logging.GetLogger().Warn(ctx, "Batch response missing %d of %d ids, assigned default score %.2f",
			missing, len(population), fallbackScore)
	}
	return nil
}

func (e *Evaluator) evaluateSequential(ctx context.Context, population []*Individual, expertType string) {
	logger := logging.GetLogger()

	p := pool.New().WithMaxGoroutines(e.config.ConcurrencyLevel)
	for _, ind := range population {
		ind := ind
		p.Go(func() {
			eval, err := e.fitnessFn(ctx, ind.Prompt, expertType, e.config.Projects)
			if err != nil {
				logger.Warn(ctx, "Fitness function failed for individual %s, assigning default score: %v", ind.ID, err)
				ind.Fitness = fallbackScore
				return
			}
			ind.Fitness = eval.Overall
		})
	}
	p.Wait()
}

func (e *Evaluator) forwardDecisions(ctx context.Context, population []*Individual, expertType string) {
	if e.sink == nil {
		return
	}

	logger := logging.GetLogger()
	for _, ind := range population {
		reasoning := make([]string, len(ind.MutationTags))
		for i, tag := range ind.MutationTags {
			reasoning[i] = string(tag)
		}

		record := &DecisionRecord{
			IndividualID: ind.ID,
			Prompt:       ind.Prompt,
			ExpertType:   expertType,
			Fitness:      ind.Fitness,
			Reasoning:    reasoning,
			Causes:       append([]string(nil), ind.ParentIDs...),
			Success:      ind.Fitness > e.config.MinFitnessThreshold,
			Timestamp:    time.Now(),
		}
		if err := e.sink.Record(ctx, record); err != nil {
			logger.Warn(ctx, "Decision sink rejected record for %s: %v", ind.ID, err)
		}
	}
}

var (
	fitnessRolePattern = regexp.MustCompile(`(?i)\b(?:you are|as an?)\b`)
	fitnessGoalPattern = regexp.MustCompile(`(?i)\b(?:focus|objective|goal)`)
)

// DefaultFitnessFunc returns the heuristic fitness function used when no
// custom scorer is supplied. The score starts at 0.5 and earns bonuses for
// moderate length, sentence count in a readable range, an explicit role,
// and an explicit goal; the result stays within [0, 1.05]. Per-project
// scores perturb the overall score with independent noise in +/-0.05.
func DefaultFitnessFunc(rng *rand.Rand) FitnessFunc {
	var mu sync.Mutex

	return func(ctx context.Context, prompt, expertType string, projects []string) (*FitnessEvaluation, error) {
		score := 0.5

		if length := len(prompt); length > 100 && length < 500 {
			score += 0.1
		}
		if n := len(splitSentences(prompt)); n >= 3 && n <= 8 {
			score += 0.1
		}
		if fitnessRolePattern.MatchString(prompt) {
			score += 0.15
		}
		if fitnessGoalPattern.MatchString(prompt) {
			score += 0.15
		}

		eval := &FitnessEvaluation{
			Overall:   score,
			Timestamp: time.Now(),
		}

		if len(projects) > 0 {
			eval.ByProject = make(map[string]float64, len(projects))
			mu.Lock()
			for _, project := range projects {
				noise := rng.Float64()*0.1 - 0.05
				eval.ByProject[project] = score + noise
			}
			mu.Unlock()
		}

		return eval, nil
	}
}
