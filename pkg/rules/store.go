package rules

import (
	"sort"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/errors"
)

// Store holds all override rules for one build run, indexed for O(1)
// lookup by key and by key pair. It is built once, validated once, and
// treated as read-only for the remainder of the run; each run owns its own
// instance (there is no shared global store).
//
// Exclusion pairs are indexed under a canonicalized pair key (the two keys
// in sorted order), which makes IsExcludedPair symmetric by construction
// rather than by insertion discipline.
type Store struct {
	forceMatches  []*ForceMatch
	forceExcludes []*ForceExclude
	mutualIncl    []*MutualSet
	mutualExcl    []*MutualSet

	matchesByPair  map[string][]*ForceMatch
	excludesByPair map[string][]*ForceExclude
	matchesByKey   map[entities.Key][]*ForceMatch
	mutualInclKey  map[entities.Key][]*MutualSet
	mutualExclKey  map[entities.Key][]*MutualSet
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		matchesByPair:  make(map[string][]*ForceMatch),
		excludesByPair: make(map[string][]*ForceExclude),
		matchesByKey:   make(map[entities.Key][]*ForceMatch),
		mutualInclKey:  make(map[entities.Key][]*MutualSet),
		mutualExclKey:  make(map[entities.Key][]*MutualSet),
	}
}

// AddForceMatch validates and indexes a force-match rule. A structurally
// invalid rule is rejected with a RuleError listing every problem and is
// never indexed.
func (s *Store) AddForceMatch(rule *ForceMatch) error {
	var problems []string
	if rule.ID == "" {
		problems = append(problems, "missing rule ID")
	}
	if rule.Key1 == "" {
		problems = append(problems, "missing key1")
	}
	if rule.Key2 == "" {
		problems = append(problems, "missing key2")
	}
	if rule.Key1 != "" && rule.Key1 == rule.Key2 {
		problems = append(problems, "key1 and key2 are the same entity")
	}
	if rule.AnchorOverride != "" && rule.AnchorOverride != rule.Key1 && rule.AnchorOverride != rule.Key2 {
		problems = append(problems, "anchor override names neither key")
	}
	if len(problems) > 0 {
		return errors.NewRuleError("force-match", rule.ID, problems)
	}

	if rule.Status == "" {
		rule.Status = StatusActive
	}

	s.forceMatches = append(s.forceMatches, rule)
	s.matchesByPair[rule.Pair()] = append(s.matchesByPair[rule.Pair()], rule)
	s.matchesByKey[rule.Key1] = append(s.matchesByKey[rule.Key1], rule)
	s.matchesByKey[rule.Key2] = append(s.matchesByKey[rule.Key2], rule)
	return nil
}

// AddForceExclude validates and indexes a force-exclude rule.
func (s *Store) AddForceExclude(rule *ForceExclude) error {
	var problems []string
	if rule.ID == "" {
		problems = append(problems, "missing rule ID")
	}
	if rule.Defective == "" {
		problems = append(problems, "missing defective key")
	}
	if rule.Other == "" {
		problems = append(problems, "missing other key")
	}
	if rule.Defective != "" && rule.Defective == rule.Other {
		problems = append(problems, "defective and other are the same entity")
	}
	switch rule.OnConflict {
	case DefectiveYields, OtherYields, UseSimilarity:
	case "":
		rule.OnConflict = DefectiveYields
	default:
		problems = append(problems, "unknown on-conflict policy "+string(rule.OnConflict))
	}
	if len(problems) > 0 {
		return errors.NewRuleError("force-exclude", rule.ID, problems)
	}

	if rule.Status == "" {
		rule.Status = StatusActive
	}

	s.forceExcludes = append(s.forceExcludes, rule)
	s.excludesByPair[rule.Pair()] = append(s.excludesByPair[rule.Pair()], rule)
	return nil
}

// AddMutualInclusion validates and indexes a mutual inclusion set.
func (s *Store) AddMutualInclusion(set *MutualSet) error {
	if err := s.validateMutual("mutual-inclusion", set); err != nil {
		return err
	}
	s.mutualIncl = append(s.mutualIncl, set)
	for _, k := range set.Keys {
		s.mutualInclKey[k] = append(s.mutualInclKey[k], set)
	}
	return nil
}

// AddMutualExclusion validates and indexes a mutual exclusion set.
func (s *Store) AddMutualExclusion(set *MutualSet) error {
	if err := s.validateMutual("mutual-exclusion", set); err != nil {
		return err
	}
	s.mutualExcl = append(s.mutualExcl, set)
	for _, k := range set.Keys {
		s.mutualExclKey[k] = append(s.mutualExclKey[k], set)
	}
	return nil
}

// validateMutual checks the structural invariants shared by both mutual
// flavors: at least two keys, no empty keys, no duplicates.
func (s *Store) validateMutual(kind string, set *MutualSet) error {
	var problems []string
	if set.ID == "" {
		problems = append(problems, "missing rule ID")
	}
	if len(set.Keys) < 2 {
		problems = append(problems, "mutual set needs at least two keys")
	}
	seen := make(map[entities.Key]bool, len(set.Keys))
	for _, k := range set.Keys {
		if k == "" {
			problems = append(problems, "empty key in mutual set")
			continue
		}
		if seen[k] {
			problems = append(problems, "duplicate key "+k.String()+" in mutual set")
		}
		seen[k] = true
	}
	if len(problems) > 0 {
		return errors.NewRuleError(kind, set.ID, problems)
	}
	if set.Status == "" {
		set.Status = StatusActive
	}
	return nil
}

// IsExcludedPair reports whether an active exclusion (pairwise or mutual)
// forbids a and b from sharing a group. Symmetric: IsExcludedPair(a,b) ==
// IsExcludedPair(b,a).
func (s *Store) IsExcludedPair(a, b entities.Key) bool {
	return s.ExclusionRule(a, b) != nil
}

// ExclusionRule returns the exclusion metadata for the pair (a, b), or nil
// when no active exclusion covers it. The pairwise index is consulted
// first; failing that, every active mutual exclusion set containing both
// keys. Metadata synthesized from a mutual set treats the first-queried
// key as the defective side.
func (s *Store) ExclusionRule(a, b entities.Key) *Exclusion {
	if a == b {
		return nil
	}
	for _, rule := range s.excludesByPair[entities.PairID(a, b)] {
		if !rule.Active() {
			continue
		}
		return &Exclusion{
			RuleID:     rule.ID,
			Defective:  rule.Defective,
			Other:      rule.Other,
			OnConflict: rule.OnConflict,
			Reason:     rule.Reason,
		}
	}
	for _, set := range s.mutualExclKey[a] {
		if !set.Active() || !set.Contains(b) {
			continue
		}
		return &Exclusion{
			RuleID:     set.ID,
			Defective:  a,
			Other:      b,
			OnConflict: DefectiveYields,
			Reason:     set.Reason,
			Mutual:     true,
		}
	}
	return nil
}

// ForceMatchesFor returns every partner key that active force-match rules
// and mutual inclusion sets tie to the given key: the deduplicated union of
// pairwise partners and mutual co-members, excluding the key itself, in
// sorted order.
func (s *Store) ForceMatchesFor(key entities.Key) []entities.Key {
	seen := make(map[entities.Key]bool)
	for _, rule := range s.matchesByKey[key] {
		if !rule.Active() {
			continue
		}
		partner := rule.Key1
		if partner == key {
			partner = rule.Key2
		}
		seen[partner] = true
	}
	for _, set := range s.mutualInclKey[key] {
		if !set.Active() {
			continue
		}
		for _, k := range set.Keys {
			if k != key {
				seen[k] = true
			}
		}
	}
	partners := make([]entities.Key, 0, len(seen))
	for k := range seen {
		partners = append(partners, k)
	}
	sort.Slice(partners, func(i, j int) bool { return partners[i].Less(partners[j]) })
	return partners
}

// MatchRulesFor returns the active pairwise force-match rules that name the
// given key. Used by the schedule builder for rule ID traceability.
func (s *Store) MatchRulesFor(key entities.Key) []*ForceMatch {
	var active []*ForceMatch
	for _, rule := range s.matchesByKey[key] {
		if rule.Active() {
			active = append(active, rule)
		}
	}
	return active
}

// ForceMatches returns all stored force-match rules, including non-active
// ones, in insertion order.
func (s *Store) ForceMatches() []*ForceMatch { return s.forceMatches }

// ForceExcludes returns all stored force-exclude rules, including
// non-active ones, in insertion order.
func (s *Store) ForceExcludes() []*ForceExclude { return s.forceExcludes }

// MutualInclusions returns all stored mutual inclusion sets in insertion order.
func (s *Store) MutualInclusions() []*MutualSet { return s.mutualIncl }

// MutualExclusions returns all stored mutual exclusion sets in insertion order.
func (s *Store) MutualExclusions() []*MutualSet { return s.mutualExcl }

// Len returns the total number of stored rules of all kinds.
func (s *Store) Len() int {
	return len(s.forceMatches) + len(s.forceExcludes) + len(s.mutualIncl) + len(s.mutualExcl)
}
