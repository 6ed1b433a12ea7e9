// Package entitylink links records describing the same real-world person,
// household, or organization across two independent data sources into
// unified entity groups, and lets an operator correct the automatic linkage
// through declarative override rules.
//
// A build run loads the override rules and the entity universe, validates
// the rules, orders founders by construction phase, assembles one group per
// founder with the priority algorithm in pkg/assemble, and finally audits
// the finished groups against every rule. Natural-match candidates come
// from an external similarity scorer; this module only consumes the scores
// it is handed.
//
// Example usage:
//
//	linker, err := entitylink.New(
//	    entitylink.WithUniverse(universe),
//	    entitylink.WithRules(store),
//	    entitylink.WithScorer(scorer),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := linker.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
package entitylink

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/audit"
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/errors"
	"github.com/entitylink/entitylink/pkg/logging"
	"github.com/entitylink/entitylink/pkg/phase"
	"github.com/entitylink/entitylink/pkg/rules"
)

// Linker runs full build and audit cycles over one rule store and entity
// universe. Each run rebuilds from scratch; there is no incremental state.
type Linker interface {
	// Build assembles the complete group database and audits it.
	Build(ctx context.Context) (*Result, error)

	// Audit replays the rules against an existing group database, for
	// example one loaded from a previous run's output.
	Audit(ctx context.Context, groups []*assemble.Group) *audit.Report
}

// linker is the default implementation of Linker.
type linker struct {
	config *config
}

// New creates a Linker with the given options. A universe and a rule store
// are required; the scorer defaults to one that proposes no candidates.
func New(opts ...Option) (Linker, error) {
	c, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if c.universe == nil {
		return nil, &errors.ValidationError{Field: "universe", Message: "cannot be nil"}
	}
	if c.store == nil {
		return nil, &errors.ValidationError{Field: "rules", Message: "cannot be nil"}
	}
	return &linker{config: c}, nil
}

// Build performs one full rebuild: validate, schedule, assemble every
// founder in phase order, then audit.
func (l *linker) Build(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)

	result := newResult(runID)
	store := l.config.store
	universe := l.config.universe

	// Step 1: validate rules against the universe.
	result.Stats.Reset()
	result.Validation = rules.Validate(store, universe, &result.Stats)
	log.Info().
		Int("rules", store.Len()).
		Int("entities", universe.Len()).
		Int("validation_messages", len(result.Validation)).
		Msg("Validated rule store")

	// Step 2: build the anchor schedule for traceability.
	result.Schedule = phase.BuildSchedule(store, universe)

	// Step 3: assemble one group per founder, in phase order. An entity
	// claimed by an earlier group never founds or joins a later one.
	assembler := assemble.New(store, universe, &result.Stats)
	claimed := make(map[entities.Key]bool)

	for _, founder := range foundersInPhaseOrder(universe) {
		if ctx.Err() != nil {
			return nil, errors.ErrCanceled
		}
		if claimed[founder] {
			continue
		}

		candidates, err := l.naturalCandidates(ctx, founder, claimed)
		if err != nil {
			log.Warn().Err(err).Str("founder", founder.String()).
				Msg("Scorer failed; assembling without natural candidates")
			candidates = nil
		}

		group := assembler.Assemble(ctx, founder, candidates, claimed)
		group.Index = len(result.Groups)
		result.Groups = append(result.Groups, group)
		for _, m := range group.Members {
			claimed[m] = true
		}
	}

	// Step 4: audit the finished database.
	result.Report = audit.New(store, result.Groups).Run(runID)

	result.finalize()
	log.Info().
		Int("groups", len(result.Groups)).
		Int("force_matches_applied", result.Stats.ForceMatchesApplied).
		Int("exclusions_applied", result.Stats.ExclusionsApplied).
		Int("audit_failures", result.Report.Failed).
		Dur("duration", result.Metadata.Duration).
		Msg("Build complete")
	return result, nil
}

// Audit replays the rules against externally supplied groups. A run ID
// already carried by the context is reused so the report joins that run's
// log stream; otherwise a fresh one is generated.
func (l *linker) Audit(ctx context.Context, groups []*assemble.Group) *audit.Report {
	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	logging.FromContext(ctx).Info().
		Str("run_id", runID).
		Int("groups", len(groups)).
		Msg("Auditing group database")
	return audit.New(l.config.store, groups).Run(runID)
}

// naturalCandidates asks the scorer for the founder's candidates and drops
// the ones this run cannot use: keys already claimed, keys outside the
// universe, and scores below the similarity threshold.
func (l *linker) naturalCandidates(ctx context.Context, founder entities.Key, claimed map[entities.Key]bool) ([]assemble.Candidate, error) {
	proposed, err := l.config.scorer.Candidates(ctx, founder)
	if err != nil {
		return nil, err
	}
	candidates := make([]assemble.Candidate, 0, len(proposed))
	for _, c := range proposed {
		if c.Key == founder || claimed[c.Key] || !l.config.universe.Contains(c.Key) {
			continue
		}
		if c.Score < l.config.threshold {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// foundersInPhaseOrder returns every universe key ordered by construction
// phase, then key, so builds are deterministic.
func foundersInPhaseOrder(universe *entities.Universe) []entities.Key {
	keys := universe.Keys()
	byPhase := make(map[entities.Key]phase.Phase, len(keys))
	for _, k := range keys {
		byPhase[k] = phase.ClassifyKey(universe, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if byPhase[keys[i]] != byPhase[keys[j]] {
			return byPhase[keys[i]] < byPhase[keys[j]]
		}
		return keys[i].Less(keys[j])
	})
	return keys
}
