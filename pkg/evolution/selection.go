package evolution

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/foxruv/iris-go/pkg/logging"
)

// Selector assembles the next generation through elitism, tournament
// selection, and probabilistic dispatch across crossover, mutation, and
// cloning.
type Selector struct {
	config    *Config
	mutator   *Mutator
	crossover *Crossover
	rng       *rand.Rand
}

// NewSelector creates a next-generation builder.
func NewSelector(config *Config, mutator *Mutator, crossover *Crossover, rng *rand.Rand) *Selector {
	return &Selector{
		config:    config,
		mutator:   mutator,
		crossover: crossover,
		rng:       rng,
	}
}

// Tournament samples TournamentSize individuals uniformly at random with
// replacement and returns the fittest, ties broken by first encounter.
func (s *Selector) Tournament(population []*Individual) *Individual {
	best := population[s.rng.Intn(len(population))]
	for i := 1; i < s.config.TournamentSize; i++ {
		challenger := population[s.rng.Intn(len(population))]
		if challenger.Fitness > best.Fitness {
			best = challenger
		}
	}
	return best
}

// BuildNextGeneration produces a new population array from the current one.
// The top EliteSize individuals are carried over verbatim; the remaining
// slots are filled by crossover, mutation, or cloning according to the
// configured rates.
func (s *Selector) BuildNextGeneration(ctx context.Context, population []*Individual, currentGeneration int) []*Individual {
	logger := logging.GetLogger()

	// Sort a copy descending by fitness. Stable sort keeps ties in their
	// first-encountered order.
	ranked := make([]*Individual, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	next := make([]*Individual, 0, s.config.PopulationSize)

	eliteCount := s.config.EliteSize
	if eliteCount > len(ranked) {
		eliteCount = len(ranked)
	}
	for i := 0; i < eliteCount; i++ {
		elite := ranked[i].Clone()
		if s.config.ReissueEliteIDs {
			elite.ID = uuid.New().String()
			elite.Generation = currentGeneration + 1
		}
		next = append(next, elite)
	}

	crossovers, mutations, clones := 0, 0, 0
	for len(next) < s.config.PopulationSize {
		r := s.rng.Float64()
		switch {
		case r < s.config.CrossoverRate:
			p1 := s.Tournament(population)
			p2 := s.Tournament(population)
			next = append(next, s.crossoverChild(ctx, p1, p2, currentGeneration))
			crossovers++
		case r < s.config.CrossoverRate+s.config.MutationRate:
			parent := s.Tournament(population)
			next = append(next, s.mutationChild(ctx, parent, currentGeneration))
			mutations++
		default:
			parent := s.Tournament(population)
			next = append(next, s.cloneChild(parent, currentGeneration))
			clones++
		}
	}

	logger.Debug(ctx, "Next generation built: elites=%d, crossovers=%d, mutations=%d, clones=%d",
		eliteCount, crossovers, mutations, clones)

	return next
}

func (s *Selector) crossoverChild(ctx context.Context, p1, p2 *Individual, currentGeneration int) *Individual {
	prompt := s.crossover.Apply(ctx, p1.Prompt, p2.Prompt, CrossoverSemantic)
	return &Individual{
		ID:         uuid.New().String(),
		Prompt:     prompt,
		Generation: currentGeneration + 1,
		ParentIDs:  []string{p1.ID, p2.ID},
		Metadata: Metadata{
			CreatedAt:  time.Now(),
			ExpertType: p1.Metadata.ExpertType,
			Signature:  p1.Metadata.Signature,
		},
	}
}

func (s *Selector) mutationChild(ctx context.Context, parent *Individual, currentGeneration int) *Individual {
	strategy := s.chooseMutationStrategy(currentGeneration)
	prompt, tag := s.mutator.Mutate(ctx, parent.Prompt, strategy)
	return &Individual{
		ID:           uuid.New().String(),
		Prompt:       prompt,
		Generation:   currentGeneration + 1,
		ParentIDs:    []string{parent.ID},
		MutationTags: []MutationStrategy{tag},
		Metadata: Metadata{
			CreatedAt:  time.Now(),
			ExpertType: parent.Metadata.ExpertType,
			Signature:  parent.Metadata.Signature,
		},
	}
}

func (s *Selector) cloneChild(parent *Individual, currentGeneration int) *Individual {
	child := parent.Clone()
	child.ID = uuid.New().String()
	child.Generation = currentGeneration + 1
	child.ParentIDs = []string{parent.ID}
	child.MutationTags = nil
	child.Metadata.CreatedAt = time.Now()
	return child
}

// chooseMutationStrategy picks the strategy for one mutation child. 40% of
// the time it is semantic_rewrite outright; otherwise the choice leans
// toward exploratory strategies early in the run and exploitative ones late,
// with explorationRate = 1 - currentGeneration/totalGenerations.
func (s *Selector) chooseMutationStrategy(currentGeneration int) MutationStrategy {
	if s.rng.Float64() < 0.4 {
		return MutationSemanticRewrite
	}

	explorationRate := 1.0 - float64(currentGeneration)/float64(s.config.Generations)
	if s.rng.Float64() < explorationRate {
		if s.rng.Float64() < 0.5 {
			return MutationZeroOrder
		}
		return MutationHypermutation
	}
	if s.rng.Float64() < 0.5 {
		return MutationFirstOrder
	}
	return MutationLamarckian
}
