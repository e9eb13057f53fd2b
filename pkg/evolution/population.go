package evolution

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/logging"
)

// Store owns the current generation's population and the append-only history
// of generation snapshots. It is modified only between generations, never
// during an in-flight evaluation.
type Store struct {
	mu         sync.RWMutex
	config     *Config
	population []*Individual
	history    []*GenerationSnapshot
	rng        *rand.Rand
}

// NewStore creates an empty population store.
func NewStore(config *Config, rng *rand.Rand) *Store {
	return &Store{
		config: config,
		rng:    rng,
	}
}

// Initialize creates one individual per seed prompt (up to the configured
// population size), then pads the remaining slots by applying first_order
// mutation to randomly chosen seeds until the population is full.
func (s *Store) Initialize(ctx context.Context, seeds []string, expertType, signature string, mutator *Mutator) error {
	if len(seeds) == 0 {
		return errors.New(errors.InvalidInput, "at least one seed prompt is required")
	}

	logger := logging.GetLogger()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	population := make([]*Individual, 0, s.config.PopulationSize)

	for _, seed := range seeds {
		if len(population) >= s.config.PopulationSize {
			break
		}
		population = append(population, &Individual{
			ID:         uuid.New().String(),
			Prompt:     seed,
			Generation: 0,
			Metadata: Metadata{
				CreatedAt:  now,
				ExpertType: expertType,
				Signature:  signature,
			},
		})
	}

	// Pad remaining slots with first-order mutations of random seeds.
	for len(population) < s.config.PopulationSize {
		parent := population[s.rng.Intn(len(seeds))]
		prompt, tag := mutator.Mutate(ctx, parent.Prompt, MutationFirstOrder)
		population = append(population, &Individual{
			ID:           uuid.New().String(),
			Prompt:       prompt,
			Generation:   0,
			ParentIDs:    []string{parent.ID},
			MutationTags: []MutationStrategy{tag},
			Metadata: Metadata{
				CreatedAt:  time.Now(),
				ExpertType: expertType,
				Signature:  signature,
			},
		})
	}

	s.population = population
	logger.Info(ctx, "Population initialized: seeds=%d, size=%d", len(seeds), len(population))
	return nil
}

// Population returns the current population slice. The individuals are
// shared; the slice itself is a copy.
func (s *Store) Population() []*Individual {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pop := make([]*Individual, len(s.population))
	copy(pop, s.population)
	return pop
}

// Size returns the current population size.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.population)
}

// Replace swaps in a new population. The old one survives only inside its
// snapshot.
func (s *Store) Replace(population []*Individual) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.population = population
}

// Snapshot computes a generation snapshot from the current population and
// appends it to the history.
func (s *Store) Snapshot(number int) *GenerationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	popCopy := make([]*Individual, len(s.population))
	best := 0.0
	sum := 0.0
	for i, ind := range s.population {
		popCopy[i] = ind.Clone()
		sum += ind.Fitness
		if ind.Fitness > best {
			best = ind.Fitness
		}
	}

	avg := 0.0
	if len(s.population) > 0 {
		avg = sum / float64(len(s.population))
	}

	snap := &GenerationSnapshot{
		Number:      number,
		Population:  popCopy,
		BestFitness: best,
		AvgFitness:  avg,
		Diversity:   fitnessStdDev(s.population, avg),
		Timestamp:   time.Now(),
	}
	s.history = append(s.history, snap)
	return snap
}

// History returns the snapshot history, oldest first.
func (s *Store) History() []*GenerationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]*GenerationSnapshot, len(s.history))
	copy(history, s.history)
	return history
}

// LatestSnapshot returns the most recently captured snapshot, or nil when no
// snapshot exists yet.
func (s *Store) LatestSnapshot() *GenerationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// Restore replaces the current population with a deep copy of the latest
// snapshot carrying the given generation number. Used by rollback.
func (s *Store) Restore(generationNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *GenerationSnapshot
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Number == generationNumber {
			target = s.history[i]
			break
		}
	}
	if target == nil {
		return errors.WithFields(
			errors.New(errors.ResourceNotFound, "no snapshot for generation"),
			errors.Fields{"generation": generationNumber})
	}

	restored := make([]*Individual, len(target.Population))
	for i, ind := range target.Population {
		restored[i] = ind.Clone()
	}
	s.population = restored
	return nil
}

func fitnessStdDev(population []*Individual, mean float64) float64 {
	if len(population) == 0 {
		return 0
	}
	variance := 0.0
	for _, ind := range population {
		d := ind.Fitness - mean
		variance += d * d
	}
	variance /= float64(len(population))
	return math.Sqrt(variance)
}
