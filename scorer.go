package entitylink

import (
	"context"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/entities"
)

// Scorer proposes natural-match candidates for a founder. It is the
// integration point for the external similarity function; the linker never
// computes similarity itself.
type Scorer interface {
	// Candidates returns the candidates the scorer proposes for the
	// founder, each with a similarity score in [0, 1]. Returning an empty
	// list is normal; an error degrades the founder to a rule-only group.
	Candidates(ctx context.Context, founder entities.Key) ([]assemble.Candidate, error)
}

// ScorerFunc allows plain functions to act as scorers.
type ScorerFunc func(ctx context.Context, founder entities.Key) ([]assemble.Candidate, error)

// Candidates implements the Scorer interface.
func (f ScorerFunc) Candidates(ctx context.Context, founder entities.Key) ([]assemble.Candidate, error) {
	return f(ctx, founder)
}

// NopScorer returns a scorer that proposes no candidates. Builds with it
// rely purely on override rules.
func NopScorer() Scorer {
	return ScorerFunc(func(context.Context, entities.Key) ([]assemble.Candidate, error) {
		return nil, nil
	})
}

// StaticScorer serves candidates from a fixed table, keyed by founder.
// Useful for offline runs where scores were computed ahead of time, and
// for tests.
type StaticScorer struct {
	table map[entities.Key][]assemble.Candidate
}

// NewStaticScorer creates a scorer over a precomputed candidate table.
func NewStaticScorer(table map[entities.Key][]assemble.Candidate) *StaticScorer {
	return &StaticScorer{table: table}
}

// Candidates implements the Scorer interface.
func (s *StaticScorer) Candidates(_ context.Context, founder entities.Key) ([]assemble.Candidate, error) {
	return s.table[founder], nil
}
