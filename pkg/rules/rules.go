// Package rules defines the override rules that correct automatic entity
// linkage: pairwise force-match and force-exclude rules plus mutual
// inclusion and exclusion sets, together with the indexed store the group
// assembler consults during a build.
package rules

import (
	"fmt"
	"strings"

	"github.com/entitylink/entitylink/pkg/entities"
)

// Status is the lifecycle state of a rule within one build run.
type Status string

const (
	// StatusActive is the normal state; the rule participates in assembly.
	StatusActive Status = "active"
	// StatusDisabled marks a rule excluded from the run by configuration.
	StatusDisabled Status = "disabled"
	// StatusOrphaned marks a rule referencing a key absent from the entity
	// universe. Terminal within a run.
	StatusOrphaned Status = "orphaned"
	// StatusError marks a rule contradicted by another rule. Terminal
	// within a run.
	StatusError Status = "error"
)

// String returns the string representation of the status.
func (s Status) String() string { return string(s) }

// OnConflict decides which of two mutually excluded entities is evicted
// when an exclusion must be enforced inside a candidate set.
type OnConflict string

const (
	// DefectiveYields evicts the rule's defective key.
	DefectiveYields OnConflict = "defective-yields"
	// OtherYields evicts the rule's other key.
	OtherYields OnConflict = "other-yields"
	// UseSimilarity evicts the lower-scored key; falls back to
	// DefectiveYields when a score is unavailable.
	UseSimilarity OnConflict = "use-similarity"
)

// String returns the string representation of the policy.
func (p OnConflict) String() string { return string(p) }

// ParseOnConflict converts a raw table value to an OnConflict policy.
// It accepts hyphenated and underscored spellings case-insensitively; an
// empty value defaults to DefectiveYields.
func ParseOnConflict(s string) (OnConflict, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch normalized {
	case "", string(DefectiveYields):
		return DefectiveYields, nil
	case string(OtherYields):
		return OtherYields, nil
	case string(UseSimilarity):
		return UseSimilarity, nil
	default:
		return "", fmt.Errorf("unknown on-conflict policy %q", s)
	}
}

// ForceMatch declares that two entities must end up in the same group.
type ForceMatch struct {
	ID             string       `yaml:"id"`
	Key1           entities.Key `yaml:"key1"`
	Key2           entities.Key `yaml:"key2"`
	AnchorOverride entities.Key `yaml:"anchor_override,omitempty"` // empty = derive from phases
	Reason         string       `yaml:"reason,omitempty"`
	Status         Status       `yaml:"status"`
}

// Pair returns the canonical unordered pair identifier for the rule.
func (r *ForceMatch) Pair() string { return entities.PairID(r.Key1, r.Key2) }

// Active reports whether the rule participates in assembly.
func (r *ForceMatch) Active() bool { return r.Status == StatusActive }

// ForceExclude declares that two entities must never share a group. The
// defective key is the one the operator judged to be the bad record; which
// side is evicted on conflict is decided by the OnConflict policy.
type ForceExclude struct {
	ID         string       `yaml:"id"`
	Defective  entities.Key `yaml:"defective"`
	Other      entities.Key `yaml:"other"`
	OnConflict OnConflict   `yaml:"on_conflict"`
	Reason     string       `yaml:"reason,omitempty"`
	Status     Status       `yaml:"status"`
}

// Pair returns the canonical unordered pair identifier for the rule.
func (r *ForceExclude) Pair() string { return entities.PairID(r.Defective, r.Other) }

// Active reports whether the rule participates in assembly.
func (r *ForceExclude) Active() bool { return r.Status == StatusActive }

// MutualSet is a compact stand-in for the complete pairwise rule graph over
// its keys. It comes in two flavors (inclusion, exclusion) depending on
// which store index it was added to.
type MutualSet struct {
	ID     string         `yaml:"id"`
	Keys   []entities.Key `yaml:"keys"`
	Reason string         `yaml:"reason,omitempty"`
	Status Status         `yaml:"status"`
}

// Active reports whether the set participates in assembly.
func (s *MutualSet) Active() bool { return s.Status == StatusActive }

// Contains reports whether the set names the given key.
func (s *MutualSet) Contains(key entities.Key) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Exclusion is the resolved metadata for one excluded key pair, either a
// pairwise rule or a pair synthesized from a mutual exclusion set. For
// synthesized pairs the defective side is the first-queried key and the
// policy is DefectiveYields, so the first-queried key loses when no scores
// are available. The choice is arbitrary but deterministic.
type Exclusion struct {
	RuleID     string
	Defective  entities.Key
	Other      entities.Key
	OnConflict OnConflict
	Reason     string
	Mutual     bool // synthesized from a mutual exclusion set
}

// Stats holds run-scoped counters, mutated only during validation and
// assembly and reset at the start of each full rebuild.
type Stats struct {
	ForceMatchesApplied int `json:"force_matches_applied" yaml:"force_matches_applied"`
	ExclusionsApplied   int `json:"exclusions_applied" yaml:"exclusions_applied"`
	OrphanedRules       int `json:"orphaned_rules" yaml:"orphaned_rules"`
	Errors              int `json:"errors" yaml:"errors"`
}

// Reset zeroes all counters.
func (s *Stats) Reset() { *s = Stats{} }
