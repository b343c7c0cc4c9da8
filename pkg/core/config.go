package core

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/evoforge/evoforge/pkg/errors"
)

// Duration wraps time.Duration so YAML configs can say "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses durations from either a duration string or a plain
// integer number of nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("invalid duration value: %v", raw)
	}
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EvolutionConfig contains every tunable of an evolution run. The value is
// immutable once handed to the engine; the engine never writes back into it.
type EvolutionConfig struct {
	// Population parameters
	PopulationSize int `yaml:"population_size" json:"population_size" validate:"min=2"`
	MaxGenerations int `yaml:"max_generations" json:"max_generations" validate:"min=1"`
	ElitismCount   int `yaml:"elitism_count" json:"elitism_count" validate:"min=0,ltfield=PopulationSize"`

	// Reproduction parameters
	MutationRate  float64 `yaml:"mutation_rate" json:"mutation_rate" validate:"min=0,max=1"`
	CrossoverRate float64 `yaml:"crossover_rate" json:"crossover_rate" validate:"min=0,max=1"`

	// SelectionPoolSize bounds the top-N pool that rank-weighted parent
	// sampling draws from. Zero means half the population.
	SelectionPoolSize int `yaml:"selection_pool_size" json:"selection_pool_size" validate:"min=0"`

	// Concurrency and external-call parameters
	WorkerPoolWidth int      `yaml:"worker_pool_width" json:"worker_pool_width" validate:"min=1"`
	Timeout         Duration `yaml:"timeout" json:"timeout"`
	RetryCount      int      `yaml:"retry_count" json:"retry_count" validate:"min=0"`

	// Termination parameters
	StagnationWindow  int      `yaml:"stagnation_window" json:"stagnation_window" validate:"min=1"`
	StagnationEpsilon float64  `yaml:"stagnation_epsilon" json:"stagnation_epsilon" validate:"min=0"`
	WallClockBudget   Duration `yaml:"wall_clock_budget" json:"wall_clock_budget"`

	// RandomSeed makes runs reproducible under mocked oracles. Zero seeds
	// from the clock.
	RandomSeed int64 `yaml:"random_seed" json:"random_seed"`
}

// DefaultEvolutionConfig returns the default run configuration.
func DefaultEvolutionConfig() EvolutionConfig {
	return EvolutionConfig{
		PopulationSize:    20,
		MaxGenerations:    10,
		ElitismCount:      2,
		MutationRate:      0.3,
		CrossoverRate:     0.7,
		WorkerPoolWidth:   8,
		Timeout:           Duration(2 * time.Minute),
		RetryCount:        2,
		StagnationWindow:  3,
		StagnationEpsilon: 0.01,
	}
}

var configValidator = validator.New()

// Validate checks the configuration against the engine's bounds. The error
// carries InvalidConfiguration so callers can treat it as fatal.
func (c EvolutionConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := errors.Fields{}
			for _, ve := range verrs {
				fields[ve.Field()] = fmt.Sprintf("failed %q constraint (value %v)", ve.Tag(), ve.Value())
			}
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "invalid evolution configuration"),
				fields)
		}
		return errors.Wrap(err, errors.InvalidConfiguration, "invalid evolution configuration")
	}
	return nil
}

// SelectionPool resolves the effective top-N pool size for parent sampling.
func (c EvolutionConfig) SelectionPool() int {
	pool := c.SelectionPoolSize
	if pool <= 0 {
		pool = c.PopulationSize / 2
	}
	if pool < 2 {
		pool = 2
	}
	if pool > c.PopulationSize {
		pool = c.PopulationSize
	}
	return pool
}

// LoadConfig reads an EvolutionConfig from a YAML file, layering the file's
// values over the defaults.
func LoadConfig(path string) (EvolutionConfig, error) {
	cfg := DefaultEvolutionConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, errors.InvalidConfiguration, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.InvalidConfiguration, "failed to parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
