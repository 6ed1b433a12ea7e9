package entitylink

import (
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/errors"
	"github.com/entitylink/entitylink/pkg/rules"
)

// config holds the assembled Linker configuration.
type config struct {
	universe  *entities.Universe
	store     *rules.Store
	scorer    Scorer
	threshold float64
}

func defaultConfig() *config {
	return &config{
		scorer:    NopScorer(),
		threshold: 0,
	}
}

// Option is a function that configures a Linker.
type Option func(*config) error

// newConfig returns a Linker configuration with defaults applied.
func newConfig(opts ...Option) (*config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithUniverse sets the entity universe for the run.
func WithUniverse(universe *entities.Universe) Option {
	return func(c *config) error {
		if universe == nil {
			return &errors.ValidationError{Field: "universe", Message: "cannot be nil"}
		}
		c.universe = universe
		return nil
	}
}

// WithRules sets the override-rule store for the run.
func WithRules(store *rules.Store) Option {
	return func(c *config) error {
		if store == nil {
			return &errors.ValidationError{Field: "rules", Message: "cannot be nil"}
		}
		c.store = store
		return nil
	}
}

// WithScorer sets the external similarity scorer that proposes natural
// match candidates per founder.
func WithScorer(scorer Scorer) Option {
	return func(c *config) error {
		if scorer == nil {
			return &errors.ValidationError{Field: "scorer", Message: "cannot be nil"}
		}
		c.scorer = scorer
		return nil
	}
}

// WithThreshold sets the minimum similarity score a natural candidate
// needs to be considered. Candidates below the threshold are dropped
// before assembly.
func WithThreshold(threshold float64) Option {
	return func(c *config) error {
		if threshold < 0 || threshold > 1 {
			return &errors.ValidationError{
				Field:   "threshold",
				Value:   threshold,
				Message: "must be between 0 and 1",
			}
		}
		c.threshold = threshold
		return nil
	}
}
