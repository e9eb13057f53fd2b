// Package config loads and validates the engine configuration from YAML.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/foxruv/iris-go/pkg/errors"
	"github.com/foxruv/iris-go/pkg/evolution"
)

// Config is the full configuration document for an evolution run.
type Config struct {
	// Evolution engine parameters
	Evolution EvolutionConfig `yaml:"evolution" validate:"required"`

	// LLM collaborator configuration (optional)
	Collaborator CollaboratorConfig `yaml:"collaborator,omitempty" validate:"omitempty"`

	// Persistence sink configuration (optional)
	Persistence PersistenceConfig `yaml:"persistence,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`
}

// EvolutionConfig mirrors evolution.Config with validation tags.
type EvolutionConfig struct {
	PopulationSize      int      `yaml:"population_size" validate:"required,gt=0"`
	Generations         int      `yaml:"generations" validate:"required,gt=0"`
	MutationRate        float64  `yaml:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate       float64  `yaml:"crossover_rate" validate:"gte=0,lte=1"`
	EliteSize           int      `yaml:"elite_size" validate:"gte=0,ltefield=PopulationSize"`
	TournamentSize      int      `yaml:"tournament_size" validate:"omitempty,gt=0"`
	Projects            []string `yaml:"projects,omitempty"`
	MinFitnessThreshold float64  `yaml:"min_fitness_threshold" validate:"gte=0"`
	ConcurrencyLevel    int      `yaml:"concurrency_level" validate:"omitempty,gt=0"`
	AutoRollback        bool     `yaml:"auto_rollback"`
	MaxRollbacks        int      `yaml:"max_rollbacks" validate:"gte=0"`
	ReissueEliteIDs     bool     `yaml:"reissue_elite_ids"`
}

// CollaboratorConfig selects and configures the LLM collaborator.
type CollaboratorConfig struct {
	// Provider name; only "anthropic" is currently supported.
	Provider string `yaml:"provider" validate:"omitempty,oneof=anthropic"`
	Model    string `yaml:"model,omitempty"`
	// APIKey supports ${ENV_VAR} expansion.
	APIKey string `yaml:"api_key,omitempty"`
}

// PersistenceConfig points the best-effort sinks at their databases.
// Empty paths disable the corresponding sink.
type PersistenceConfig struct {
	VersionDB   string `yaml:"version_db,omitempty"`
	EmbeddingDB string `yaml:"embedding_db,omitempty"`
	DecisionDB  string `yaml:"decision_db,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
	File  string `yaml:"file,omitempty"`
}

// Load reads, expands, validates, and converts a YAML configuration file.
// Environment references like ${ANTHROPIC_API_KEY} are expanded before
// parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidConfig, "failed to read config file"),
			errors.Fields{"path": path})
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfig, "failed to parse config YAML")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ValidationFailed, "config validation failed")
	}

	// The evolution package enforces its own cross-field invariants
	// (mutation_rate + crossover_rate <= 1, etc.) at construction time.
	if err := cfg.EvolutionConfig().Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// EvolutionConfig converts the YAML section into the engine's config type,
// filling unset optional fields with engine defaults.
func (c *Config) EvolutionConfig() *evolution.Config {
	ec := evolution.DefaultConfig()
	ec.PopulationSize = c.Evolution.PopulationSize
	ec.Generations = c.Evolution.Generations
	ec.MutationRate = c.Evolution.MutationRate
	ec.CrossoverRate = c.Evolution.CrossoverRate
	ec.EliteSize = c.Evolution.EliteSize
	if c.Evolution.TournamentSize > 0 {
		ec.TournamentSize = c.Evolution.TournamentSize
	}
	ec.Projects = c.Evolution.Projects
	ec.MinFitnessThreshold = c.Evolution.MinFitnessThreshold
	if c.Evolution.ConcurrencyLevel > 0 {
		ec.ConcurrencyLevel = c.Evolution.ConcurrencyLevel
	}
	ec.AutoRollback = c.Evolution.AutoRollback
	ec.MaxRollbacks = c.Evolution.MaxRollbacks
	ec.ReissueEliteIDs = c.Evolution.ReissueEliteIDs
	return ec
}
