package rules

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/logging"
)

// Validate checks every stored rule against the entity universe and demotes
// rules that cannot be honored. It returns the list of human-readable
// validation messages and updates the run stats.
//
// Two passes run in a fixed order:
//
//  1. Referential: a pairwise rule naming a key absent from the universe
//     becomes Orphaned. Mutual sets have their absent members pruned; a set
//     left with fewer than two members becomes Orphaned.
//  2. Contradiction: a force-match and a force-exclude naming the same
//     unordered pair both become Error.
//
// Orphan-marking precedes contradiction detection, so an orphaned rule can
// never trigger a contradiction report. Both passes test conditions that
// depend only on the rule data and the universe, so calling Validate twice
// yields identical statuses and identical stats deltas.
func Validate(store *Store, universe *entities.Universe, stats *Stats) []string {
	var messages []string
	log := logging.Default()

	// Pass 1: referential checks.
	for _, rule := range store.ForceMatches() {
		if rule.Status == StatusDisabled {
			continue
		}
		if missing := missingKeys(universe, rule.Key1, rule.Key2); len(missing) > 0 {
			rule.Status = StatusOrphaned
			stats.OrphanedRules++
			msg := fmt.Sprintf("force-match rule %s orphaned: missing %v", rule.ID, missing)
			messages = append(messages, msg)
			log.Warn().Str("rule_id", rule.ID).Strs("missing_keys", keyStrings(missing)).
				Msg("Force-match rule orphaned")
		}
	}
	for _, rule := range store.ForceExcludes() {
		if rule.Status == StatusDisabled {
			continue
		}
		if missing := missingKeys(universe, rule.Defective, rule.Other); len(missing) > 0 {
			rule.Status = StatusOrphaned
			stats.OrphanedRules++
			msg := fmt.Sprintf("force-exclude rule %s orphaned: missing %v", rule.ID, missing)
			messages = append(messages, msg)
			log.Warn().Str("rule_id", rule.ID).Strs("missing_keys", keyStrings(missing)).
				Msg("Force-exclude rule orphaned")
		}
	}
	for _, set := range store.MutualInclusions() {
		messages = append(messages, pruneMutual(set, universe, stats, log)...)
	}
	for _, set := range store.MutualExclusions() {
		messages = append(messages, pruneMutual(set, universe, stats, log)...)
	}

	// Pass 2: direct contradictions between a force-match and a
	// force-exclude over the same unordered pair. Orphaned rules are out of
	// consideration by now.
	for _, match := range store.ForceMatches() {
		if match.Status == StatusOrphaned || match.Status == StatusDisabled {
			continue
		}
		for _, excl := range store.excludesByPair[match.Pair()] {
			if excl.Status == StatusOrphaned || excl.Status == StatusDisabled {
				continue
			}
			match.Status = StatusError
			excl.Status = StatusError
			stats.Errors++
			msg := fmt.Sprintf("contradiction: force-match %s and force-exclude %s name the same pair (%s, %s)",
				match.ID, excl.ID, match.Key1, match.Key2)
			messages = append(messages, msg)
			log.Error().Str("match_rule", match.ID).Str("exclude_rule", excl.ID).
				Str("key1", match.Key1.String()).Str("key2", match.Key2.String()).
				Msg("Contradicting rules demoted to error")
		}
	}

	return messages
}

// pruneMutual drops set members absent from the universe. Surviving members
// keep their original order so mutual tie-breaks stay deterministic. A set
// reduced below two members is orphaned.
func pruneMutual(set *MutualSet, universe *entities.Universe, stats *Stats, log *zerolog.Logger) []string {
	if set.Status == StatusDisabled {
		return nil
	}
	var messages []string
	present := set.Keys[:0]
	for _, k := range set.Keys {
		if universe.Contains(k) {
			present = append(present, k)
		} else {
			messages = append(messages, fmt.Sprintf("mutual set %s: pruned missing key %s", set.ID, k))
			log.Warn().Str("rule_id", set.ID).Str("key", k.String()).
				Msg("Pruned mutual set member missing from universe")
		}
	}
	set.Keys = present
	if len(set.Keys) < 2 {
		set.Status = StatusOrphaned
		stats.OrphanedRules++
		messages = append(messages, fmt.Sprintf("mutual set %s orphaned: fewer than two members remain", set.ID))
	}
	return messages
}

func missingKeys(universe *entities.Universe, keys ...entities.Key) []entities.Key {
	var missing []entities.Key
	for _, k := range keys {
		if !universe.Contains(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

func keyStrings(keys []entities.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
