// Package audit replays every override rule against a finished group
// database and reports whether the build honored it. Failures are
// cross-referenced against the opposite rule type to explain transitive
// conflicts, e.g. an exclusion that failed because an inclusion rule
// elsewhere pulled its two keys into the same group. Auditing is purely
// diagnostic; it never mutates groups.
package audit

import (
	"fmt"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/rules"
)

// Outcome classifies one replayed rule.
type Outcome string

const (
	// Pass means the groups honor the rule.
	Pass Outcome = "PASS"
	// Fail means the groups violate the rule.
	Fail Outcome = "FAIL"
	// Skipped means an involved key is in no group at all. Vacuously
	// satisfied for exclusion rules; a soft failure for inclusion rules.
	Skipped Outcome = "SKIPPED"
)

// RuleType names the rule kind a finding belongs to.
type RuleType string

// Rule types appearing in findings.
const (
	TypeForceMatch      RuleType = "force-match"
	TypeForceExclude    RuleType = "force-exclude"
	TypeMutualInclusion RuleType = "mutual-inclusion"
	TypeMutualExclusion RuleType = "mutual-exclusion"
)

// Inclusion reports whether the rule type demands a shared group.
func (t RuleType) Inclusion() bool {
	return t == TypeForceMatch || t == TypeMutualInclusion
}

// Finding is the audit result for one rule over one key pair. Mutual sets
// produce one finding per pair of their expansion. A group index of -1
// means the key is in no group.
type Finding struct {
	RuleType RuleType     `json:"rule_type" yaml:"rule_type"`
	RuleID   string       `json:"rule_id" yaml:"rule_id"`
	Outcome  Outcome      `json:"outcome" yaml:"outcome"`
	Key1     entities.Key `json:"key1" yaml:"key1"`
	Key2     entities.Key `json:"key2" yaml:"key2"`
	Group1   int          `json:"group1" yaml:"group1"`
	Group2   int          `json:"group2" yaml:"group2"`
	Reason   string       `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Conflict explains a failing rule by naming an opposite-type rule that
// touches one of its keys.
type Conflict struct {
	FailedRuleID   string       `json:"failed_rule_id" yaml:"failed_rule_id"`
	FailedRuleType RuleType     `json:"failed_rule_type" yaml:"failed_rule_type"`
	FailureReason  string       `json:"failure_reason" yaml:"failure_reason"`
	ConflictingKey entities.Key `json:"conflicting_key" yaml:"conflicting_key"`
	ConflictsWith  string       `json:"conflicts_with" yaml:"conflicts_with"`
}

// Auditor replays rules against a fixed set of finished groups.
type Auditor struct {
	store   *rules.Store
	byKey   map[entities.Key]*assemble.Group
	noGroup int
}

// New creates an auditor over the rule store and the finished groups.
func New(store *rules.Store, groups []*assemble.Group) *Auditor {
	a := &Auditor{
		store:   store,
		byKey:   make(map[entities.Key]*assemble.Group),
		noGroup: -1,
	}
	for _, g := range groups {
		for _, m := range g.Members {
			a.byKey[m] = g
		}
	}
	return a
}

// groupIndex returns the group index for a key, or -1 when unplaced.
func (a *Auditor) groupIndex(key entities.Key) int {
	if g, ok := a.byKey[key]; ok {
		return g.Index
	}
	return a.noGroup
}

// Inclusions replays every active force-match rule and mutual inclusion
// set. A pair passes when both keys share a group; an unplaced key makes
// the pair Skipped.
func (a *Auditor) Inclusions() []Finding {
	var findings []Finding
	for _, rule := range a.store.ForceMatches() {
		if !rule.Active() {
			continue
		}
		findings = append(findings, a.checkInclusion(TypeForceMatch, rule.ID, rule.Key1, rule.Key2))
	}
	for _, set := range a.store.MutualInclusions() {
		if !set.Active() {
			continue
		}
		forEachPair(set.Keys, func(k1, k2 entities.Key) {
			findings = append(findings, a.checkInclusion(TypeMutualInclusion, set.ID, k1, k2))
		})
	}
	return findings
}

// Exclusions replays every active force-exclude rule and mutual exclusion
// set. A pair passes when its keys are in different groups (or unplaced,
// which satisfies the exclusion vacuously as Skipped).
func (a *Auditor) Exclusions() []Finding {
	var findings []Finding
	for _, rule := range a.store.ForceExcludes() {
		if !rule.Active() {
			continue
		}
		findings = append(findings, a.checkExclusion(TypeForceExclude, rule.ID, rule.Defective, rule.Other))
	}
	for _, set := range a.store.MutualExclusions() {
		if !set.Active() {
			continue
		}
		forEachPair(set.Keys, func(k1, k2 entities.Key) {
			findings = append(findings, a.checkExclusion(TypeMutualExclusion, set.ID, k1, k2))
		})
	}
	return findings
}

func (a *Auditor) checkInclusion(ruleType RuleType, ruleID string, k1, k2 entities.Key) Finding {
	f := Finding{
		RuleType: ruleType, RuleID: ruleID,
		Key1: k1, Key2: k2,
		Group1: a.groupIndex(k1), Group2: a.groupIndex(k2),
	}
	switch {
	case f.Group1 < 0 || f.Group2 < 0:
		f.Outcome = Skipped
		f.Reason = "a key is in no group; inclusion could not be verified"
	case f.Group1 == f.Group2:
		f.Outcome = Pass
	default:
		f.Outcome = Fail
		f.Reason = fmt.Sprintf("keys ended up in groups %d and %d", f.Group1, f.Group2)
	}
	return f
}

func (a *Auditor) checkExclusion(ruleType RuleType, ruleID string, k1, k2 entities.Key) Finding {
	f := Finding{
		RuleType: ruleType, RuleID: ruleID,
		Key1: k1, Key2: k2,
		Group1: a.groupIndex(k1), Group2: a.groupIndex(k2),
	}
	switch {
	case f.Group1 < 0 || f.Group2 < 0:
		f.Outcome = Skipped
		f.Reason = "a key is in no group; exclusion holds vacuously"
	case f.Group1 == f.Group2:
		f.Outcome = Fail
		f.Reason = fmt.Sprintf("both keys ended up in group %d", f.Group1)
	default:
		f.Outcome = Pass
	}
	return f
}

// Conflicts cross-references the keys of every failing finding against the
// opposite rule type: a failed exclusion is explained by inclusion rules
// touching one of its keys, a failed inclusion by exclusion rules doing
// the same.
func (a *Auditor) Conflicts(failed []Finding) []Conflict {
	var conflicts []Conflict
	for _, f := range failed {
		if f.Outcome != Fail {
			continue
		}
		switch f.RuleType {
		case TypeForceExclude, TypeMutualExclusion:
			conflicts = append(conflicts, a.inclusionsTouching(f)...)
		case TypeForceMatch, TypeMutualInclusion:
			conflicts = append(conflicts, a.exclusionsTouching(f)...)
		}
	}
	return conflicts
}

func (a *Auditor) inclusionsTouching(f Finding) []Conflict {
	var conflicts []Conflict
	for _, key := range []entities.Key{f.Key1, f.Key2} {
		for _, rule := range a.store.MatchRulesFor(key) {
			conflicts = append(conflicts, Conflict{
				FailedRuleID:   f.RuleID,
				FailedRuleType: f.RuleType,
				FailureReason:  f.Reason,
				ConflictingKey: key,
				ConflictsWith:  rule.ID,
			})
		}
		for _, set := range a.store.MutualInclusions() {
			if set.Active() && set.Contains(key) {
				conflicts = append(conflicts, Conflict{
					FailedRuleID:   f.RuleID,
					FailedRuleType: f.RuleType,
					FailureReason:  f.Reason,
					ConflictingKey: key,
					ConflictsWith:  set.ID,
				})
			}
		}
	}
	return conflicts
}

func (a *Auditor) exclusionsTouching(f Finding) []Conflict {
	var conflicts []Conflict
	for _, key := range []entities.Key{f.Key1, f.Key2} {
		for _, rule := range a.store.ForceExcludes() {
			if !rule.Active() || (rule.Defective != key && rule.Other != key) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				FailedRuleID:   f.RuleID,
				FailedRuleType: f.RuleType,
				FailureReason:  f.Reason,
				ConflictingKey: key,
				ConflictsWith:  rule.ID,
			})
		}
		for _, set := range a.store.MutualExclusions() {
			if set.Active() && set.Contains(key) {
				conflicts = append(conflicts, Conflict{
					FailedRuleID:   f.RuleID,
					FailedRuleType: f.RuleType,
					FailureReason:  f.Reason,
					ConflictingKey: key,
					ConflictsWith:  set.ID,
				})
			}
		}
	}
	return conflicts
}

// forEachPair visits every unordered pair of keys in slice order.
func forEachPair(keys []entities.Key, visit func(k1, k2 entities.Key)) {
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			visit(keys[i], keys[j])
		}
	}
}
