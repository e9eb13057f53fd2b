package evolution

import (
	"github.com/foxruv/iris-go/pkg/errors"
)

// Config contains configuration options for the evolution engine.
type Config struct {
	// Evolutionary parameters
	PopulationSize int     `json:"population_size" yaml:"population_size"` // Default: 20
	Generations    int     `json:"generations" yaml:"generations"`         // Default: 10
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate"`     // Default: 0.3
	CrossoverRate  float64 `json:"crossover_rate" yaml:"crossover_rate"`   // Default: 0.5
	EliteSize      int     `json:"elite_size" yaml:"elite_size"`           // Default: 2
	TournamentSize int     `json:"tournament_size" yaml:"tournament_size"` // Default: 3

	// Evaluation parameters
	Projects            []string `json:"projects" yaml:"projects"`
	MinFitnessThreshold float64  `json:"min_fitness_threshold" yaml:"min_fitness_threshold"` // Default: 0.5
	ConcurrencyLevel    int      `json:"concurrency_level" yaml:"concurrency_level"`         // Default: 4

	// Rollback parameters
	AutoRollback bool `json:"auto_rollback" yaml:"auto_rollback"` // Default: true
	MaxRollbacks int  `json:"max_rollbacks" yaml:"max_rollbacks"` // Default: 3

	// Elites are carried over with their original id and generation. Set
	// ReissueEliteIDs to mint fresh ids and advance their generation like
	// every other reproduction path.
	ReissueEliteIDs bool `json:"reissue_elite_ids" yaml:"reissue_elite_ids"` // Default: false
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		PopulationSize:      20,
		Generations:         10,
		MutationRate:        0.3,
		CrossoverRate:       0.5,
		EliteSize:           2,
		TournamentSize:      3,
		MinFitnessThreshold: 0.5,
		ConcurrencyLevel:    4,
		AutoRollback:        true,
		MaxRollbacks:        3,
	}
}

// Validate rejects configuration violations before an evolution run starts.
// These are the only fatal errors in the engine; everything downstream is
// recoverable.
func (c *Config) Validate() error {
	if c.PopulationSize <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "population size must be positive"),
			errors.Fields{"population_size": c.PopulationSize})
	}
	if c.Generations <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "generations must be positive"),
			errors.Fields{"generations": c.Generations})
	}
	if c.EliteSize < 0 || c.EliteSize > c.PopulationSize {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "elite size must be between 0 and population size"),
			errors.Fields{"elite_size": c.EliteSize, "population_size": c.PopulationSize})
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "mutation rate must be in [0, 1]"),
			errors.Fields{"mutation_rate": c.MutationRate})
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "crossover rate must be in [0, 1]"),
			errors.Fields{"crossover_rate": c.CrossoverRate})
	}
	// The remainder after crossover and mutation is the clone probability.
	if c.MutationRate+c.CrossoverRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "mutation rate plus crossover rate must not exceed 1"),
			errors.Fields{"mutation_rate": c.MutationRate, "crossover_rate": c.CrossoverRate})
	}
	if c.TournamentSize <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "tournament size must be positive"),
			errors.Fields{"tournament_size": c.TournamentSize})
	}
	if c.ConcurrencyLevel <= 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "concurrency level must be positive"),
			errors.Fields{"concurrency_level": c.ConcurrencyLevel})
	}
	if c.MaxRollbacks < 0 {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "max rollbacks must not be negative"),
			errors.Fields{"max_rollbacks": c.MaxRollbacks})
	}
	return nil
}
