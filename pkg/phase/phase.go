// Package phase orders group construction. Every entity is assigned a
// construction phase from its source and kind; groups are founded in phase
// order so that, for example, household records claim their members before
// individual records get a chance to found groups of their own. The package
// also decides which side of a force-match rule is the anchor (built
// earlier) and which the dependent, and accumulates those decisions into a
// per-anchor schedule.
package phase

import (
	"sort"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/rules"
)

// Phase is the construction ordinal of an entity. Lower phases are
// constructed earlier.
type Phase int

const (
	// HouseholdRegistry is a collective household record from the registry source.
	HouseholdRegistry Phase = iota
	// HouseholdDirectory is a collective household record from the directory source.
	HouseholdDirectory
	// IndividualRegistry is an individual record from the registry source.
	IndividualRegistry
	// IndividualDirectory is an individual record from the directory source.
	IndividualDirectory
	// Last is everything else: organizations, unknown sources, unknown kinds,
	// and keys with no entity record.
	Last
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case HouseholdRegistry:
		return "household/registry"
	case HouseholdDirectory:
		return "household/directory"
	case IndividualRegistry:
		return "individual/registry"
	case IndividualDirectory:
		return "individual/directory"
	default:
		return "last"
	}
}

// Classify returns the construction phase for an entity. A nil entity
// classifies as Last.
func Classify(e *entities.Entity) Phase {
	if e == nil {
		return Last
	}
	switch {
	case e.Kind == entities.KindHousehold && e.Source == entities.SourceRegistry:
		return HouseholdRegistry
	case e.Kind == entities.KindHousehold && e.Source == entities.SourceDirectory:
		return HouseholdDirectory
	case e.Kind == entities.KindIndividual && e.Source == entities.SourceRegistry:
		return IndividualRegistry
	case e.Kind == entities.KindIndividual && e.Source == entities.SourceDirectory:
		return IndividualDirectory
	default:
		return Last
	}
}

// ClassifyKey returns the construction phase for the entity behind a key,
// or Last when the key has no entity in the universe.
func ClassifyKey(universe *entities.Universe, key entities.Key) Phase {
	return Classify(universe.Get(key))
}

// Anchoring is the anchor decision for one force-match rule.
type Anchoring struct {
	Anchor      entities.Key
	Dependent   entities.Key
	AnchorPhase Phase
}

// DetermineAnchor decides which of the two keys anchors a force-match
// rule. An explicit override is the anchor outright (its phase is still
// computed and reported); otherwise the key with the earlier phase anchors,
// with ties going to key1.
func DetermineAnchor(key1, key2, override entities.Key, universe *entities.Universe) Anchoring {
	if override != "" {
		dependent := key1
		if override == key1 {
			dependent = key2
		}
		return Anchoring{
			Anchor:      override,
			Dependent:   dependent,
			AnchorPhase: ClassifyKey(universe, override),
		}
	}

	p1 := ClassifyKey(universe, key1)
	p2 := ClassifyKey(universe, key2)
	if p2 < p1 {
		return Anchoring{Anchor: key2, Dependent: key1, AnchorPhase: p2}
	}
	return Anchoring{Anchor: key1, Dependent: key2, AnchorPhase: p1}
}

// Entry is the schedule record for one anchor: every dependent that some
// active force-match rule ties to it, plus the rule IDs for traceability.
type Entry struct {
	Anchor      entities.Key
	AnchorPhase Phase
	Dependents  []entities.Key
	RuleIDs     []string

	dependentSet map[entities.Key]bool
}

// Schedule maps each distinct anchor to its accumulated entry.
type Schedule map[entities.Key]*Entry

// BuildSchedule computes anchor/dependent per active force-match rule and
// accumulates dependents into one entry per anchor. Dependents are
// deduplicated; rule IDs are appended in rule order.
func BuildSchedule(store *rules.Store, universe *entities.Universe) Schedule {
	schedule := make(Schedule)
	for _, rule := range store.ForceMatches() {
		if !rule.Active() {
			continue
		}
		a := DetermineAnchor(rule.Key1, rule.Key2, rule.AnchorOverride, universe)
		entry, ok := schedule[a.Anchor]
		if !ok {
			entry = &Entry{
				Anchor:       a.Anchor,
				AnchorPhase:  a.AnchorPhase,
				dependentSet: make(map[entities.Key]bool),
			}
			schedule[a.Anchor] = entry
		}
		if !entry.dependentSet[a.Dependent] {
			entry.dependentSet[a.Dependent] = true
			entry.Dependents = append(entry.Dependents, a.Dependent)
		}
		entry.RuleIDs = append(entry.RuleIDs, rule.ID)
	}
	return schedule
}

// Anchors returns the schedule's anchors ordered by phase, then key. This
// is the deterministic iteration order for schedule-driven processing.
func (s Schedule) Anchors() []entities.Key {
	anchors := make([]entities.Key, 0, len(s))
	for k := range s {
		anchors = append(anchors, k)
	}
	sort.Slice(anchors, func(i, j int) bool {
		ei, ej := s[anchors[i]], s[anchors[j]]
		if ei.AnchorPhase != ej.AnchorPhase {
			return ei.AnchorPhase < ej.AnchorPhase
		}
		return anchors[i].Less(anchors[j])
	})
	return anchors
}
