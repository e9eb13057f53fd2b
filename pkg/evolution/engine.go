package evolution

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/llm"
	"github.com/foxruv/iris-go/pkg/logging"
)

// rollbackThreshold triggers a restore when a generation's best fitness
// drops below this fraction of the previous generation's best.
const rollbackThreshold = 0.95

// BestResult describes the winning individual of a completed run, handed to
// persistence sinks.
type BestResult struct {
	Individual         *Individual
	ExpertType         string
	Signature          string
	Version            string // v{generation}.0.0
	PerformanceMetrics map[string]float64
	GenerationsEvolved int
}

// BestResultSink persists the best individual after a run. Failures are
// logged and never abort the run.
type BestResultSink interface {
	SaveBest(ctx context.Context, result *BestResult) error
}

// Engine drives the evolution loop. One engine instance owns one run's
// mutable state; concurrent runs need separate instances.
type Engine struct {
	config    *Config
	store     *Store
	mutator   *Mutator
	crossover *Crossover
	selector  *Selector
	evaluator *Evaluator
	rng       *rand.Rand

	collaborator llm.Collaborator
	batch        llm.BatchEvaluator
	fitnessFn    FitnessFunc
	sink         DecisionSink
	extractor    ConceptExtractor
	bestSinks    []BestResultSink

	currentGeneration int
	rollbacks         int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCollaborator wires an LLM collaborator into the LLM-backed mutation
// strategies.
func WithCollaborator(c llm.Collaborator) Option {
	return func(e *Engine) { e.collaborator = c }
}

// WithBatchEvaluator enables the batched fitness path.
func WithBatchEvaluator(b llm.BatchEvaluator) Option {
	return func(e *Engine) { e.batch = b }
}

// WithFitnessFunc replaces the default heuristic fitness function.
func WithFitnessFunc(fn FitnessFunc) Option {
	return func(e *Engine) { e.fitnessFn = fn }
}

// WithDecisionSink wires a decision/telemetry sink.
func WithDecisionSink(s DecisionSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithExtractor replaces the default regex concept extractor.
func WithExtractor(x ConceptExtractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithBestResultSink registers a persistence sink for the final best
// individual. May be given multiple times.
func WithBestResultSink(s BestResultSink) Option {
	return func(e *Engine) { e.bestSinks = append(e.bestSinks, s) }
}

// WithRandSeed fixes the random source, for reproducible runs and tests.
func WithRandSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// NewEngine validates the configuration and assembles an engine. Config
// violations are the only fatal errors; they surface here, before the loop
// starts.
func NewEngine(config *Config, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.extractor == nil {
		e.extractor = NewRegexExtractor()
	}

	e.store = NewStore(config, e.rng)
	e.mutator = NewMutator(e.collaborator, e.extractor, e.store, e.rng)
	e.crossover = NewCrossover(e.extractor, e.rng)
	e.selector = NewSelector(config, e.mutator, e.crossover, e.rng)
	e.evaluator = NewEvaluator(config, e.fitnessFn, e.batch, e.sink)

	return e, nil
}

// Store exposes the population store, mainly for lineage and statistics
// queries after a run.
func (e *Engine) Store() *Store {
	return e.store
}

// Evolve runs the full generation loop: initialize from seeds, evaluate,
// snapshot, roll back on regression, and build the next generation. It
// returns the fittest individual of the final population. No collaborator
// or persistence failure propagates out of here.
func (e *Engine) Evolve(ctx context.Context, seeds []string, expertType, signature string) (*Individual, error) {
	logger := logging.GetLogger()
	ctx = logging.WithExpertType(ctx, expertType)

	if err := e.store.Initialize(ctx, seeds, expertType, signature, e.mutator); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Starting evolution: generations=%d, population=%d, mutation_rate=%.2f, crossover_rate=%.2f",
		e.config.Generations, e.config.PopulationSize, e.config.MutationRate, e.config.CrossoverRate)

	for i := 0; i < e.config.Generations; i++ {
		if err := errors.CheckContext(ctx, "evolution"); err != nil {
			return nil, err
		}

		genCtx := logging.WithGeneration(ctx, e.currentGeneration)

		e.evaluator.EvaluatePopulation(genCtx, e.store.Population(), expertType)

		snap := e.store.Snapshot(e.currentGeneration)
		logger.Info(genCtx, "Generation evaluated: best=%.3f, avg=%.3f, diversity=%.3f",
			snap.BestFitness, snap.AvgFitness, snap.Diversity)

		if e.shouldRollback(snap) {
			prev := e.currentGeneration - 1
			if err := e.store.Restore(prev); err != nil {
				logger.Warn(genCtx, "Rollback failed, continuing forward: %v", err)
			} else {
				e.currentGeneration = prev
				e.rollbacks++
				logger.Warn(genCtx, "Fitness regression detected (best=%.3f), rolled back to generation %d (rollback %d of %d)",
					snap.BestFitness, prev, e.rollbacks, e.config.MaxRollbacks)
				continue
			}
		}

		if i < e.config.Generations-1 {
			next := e.selector.BuildNextGeneration(genCtx, e.store.Population(), e.currentGeneration)
			e.store.Replace(next)
			e.currentGeneration++
		}
	}

	best := e.bestIndividual()
	if best == nil {
		return nil, errors.New(errors.EmptyPopulation, "evolution produced no individuals")
	}

	logger.Info(ctx, "Evolution complete: best_fitness=%.3f, generation=%d, rollbacks=%d",
		best.Fitness, best.Generation, e.rollbacks)

	e.persistBest(ctx, best, expertType, signature)
	return best, nil
}

// shouldRollback reports whether the freshly captured snapshot regressed
// against the previous generation. Repeated rollbacks are bounded by
// MaxRollbacks; once exhausted the engine only evolves forward.
func (e *Engine) shouldRollback(snap *GenerationSnapshot) bool {
	if !e.config.AutoRollback || e.currentGeneration == 0 {
		return false
	}
	if e.rollbacks >= e.config.MaxRollbacks {
		return false
	}

	history := e.store.History()
	var prev *GenerationSnapshot
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Number == snap.Number-1 {
			prev = history[i]
			break
		}
	}
	if prev == nil {
		return false
	}
	return snap.BestFitness < prev.BestFitness*rollbackThreshold
}

func (e *Engine) bestIndividual() *Individual {
	var best *Individual
	for _, ind := range e.store.Population() {
		if best == nil || ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best
}

// persistBest hands the winner to every registered sink. Best-effort only.
func (e *Engine) persistBest(ctx context.Context, best *Individual, expertType, signature string) {
	if len(e.bestSinks) == 0 {
		return
	}

	logger := logging.GetLogger()
	result := &BestResult{
		Individual: best,
		ExpertType: expertType,
		Signature:  signature,
		Version:    fmt.Sprintf("v%d.0.0", best.Generation),
		PerformanceMetrics: map[string]float64{
			"fitness": best.Fitness,
		},
		GenerationsEvolved: e.config.Generations,
	}

	for _, sink := range e.bestSinks {
		if err := sink.SaveBest(ctx, result); err != nil {
			logger.Warn(ctx, "Best-result persistence failed (non-fatal): %v", err)
		}
	}
}
