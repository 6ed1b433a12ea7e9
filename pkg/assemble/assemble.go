package assemble

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/logging"
	"github.com/entitylink/entitylink/pkg/rules"
)

// Assembler produces group memberships. It reads the rule store and the
// universe, and mutates only the run stats; one assembler can serve every
// founder of a run.
type Assembler struct {
	store    *rules.Store
	universe *entities.Universe
	stats    *rules.Stats
}

// New creates an assembler over the given read-only store and universe.
// The stats counters are shared across the run and updated on every rule
// application and eviction.
func New(store *rules.Store, universe *entities.Universe, stats *rules.Stats) *Assembler {
	return &Assembler{store: store, universe: universe, stats: stats}
}

// Assemble runs the priority algorithm for one founder and returns its
// group. Candidates the caller supplies are the founder's natural matches
// with similarity scores. The claimed set names entities already owned by
// earlier groups; no tier may pull a claimed key in, so memberships stay
// disjoint across the run. A nil claimed set means nothing is owned yet.
//
// The tiers, strongest first: founder-forced (named by the founder's own
// force-match rules), natural (proposed by the scorer), forced-from-natural
// (force-matched to a natural, pulled in transitively). The steps:
//
//	step 0    drop candidates excluded with the founder itself (silent;
//	          founder exclusions are authoritative)
//	step 2    resolve exclusions among naturals: a founder-forced side
//	          wins outright, otherwise the rule's on-conflict policy picks
//	          the loser
//	step 3    collect the founder-forced set
//	step 3.5  drop founder-forced keys excluded with the founder (logged;
//	          the exclusion wins over the match rule)
//	step 4    resolve exclusions within founder-forced, policy only
//	step 5    drop naturals excluded with a surviving founder-forced key
//	step 6    collect force-matches of surviving naturals
//	step 7    drop forced-from-natural keys excluded with founder-forced keys
//	step 7.5  drop forced-from-natural keys excluded with the founder (silent)
//	step 8    resolve exclusions within forced-from-natural, policy only
//
// The result is deterministic for a given store, universe, and candidate
// list. Rules that are orphaned or in error never participate; nothing in
// the algorithm fails hard, so every founder gets a group, if necessary a
// group of one.
func (a *Assembler) Assemble(ctx context.Context, founder entities.Key, candidates []Candidate, claimed map[entities.Key]bool) *Group {
	log := logging.FromContext(ctx)

	scores := make(map[entities.Key]float64, len(candidates))
	naturals := make([]entities.Key, 0, len(candidates))
	seen := map[entities.Key]bool{founder: true}
	for _, c := range candidates {
		if seen[c.Key] || claimed[c.Key] {
			continue
		}
		seen[c.Key] = true
		scores[c.Key] = c.Score
		naturals = append(naturals, c.Key)
	}

	// The founder-forced partner list doubles as the priority set for
	// natural-tier conflicts, so it is looked up before step 2 runs.
	forcedPartners := a.store.ForceMatchesFor(founder)
	forcedSet := make(map[entities.Key]bool, len(forcedPartners))
	for _, k := range forcedPartners {
		if a.universe.Contains(k) && !claimed[k] {
			forcedSet[k] = true
		}
	}

	// Step 0: founder exclusions are never logged.
	naturals = a.dropExcludedWith(founder, naturals, nil)

	// Step 2: exclusions among the naturals themselves.
	naturals = a.resolveWithin(naturals, scores, forcedSet, log)

	// Step 3: founder-forced set, in the store's sorted partner order.
	forced := make([]entities.Key, 0, len(forcedSet))
	for _, k := range forcedPartners {
		if forcedSet[k] {
			forced = append(forced, k)
		}
	}

	// Step 3.5: a key both force-matched and force-excluded with the
	// founder is a data-level contradiction static validation cannot see.
	// The exclusion always wins.
	kept := forced[:0]
	for _, k := range forced {
		if excl := a.store.ExclusionRule(founder, k); excl != nil {
			a.stats.ExclusionsApplied++
			delete(forcedSet, k)
			log.Warn().
				Str("founder", founder.String()).
				Str("key", k.String()).
				Str("rule_id", excl.RuleID).
				Msg("Founder-forced key is also excluded with the founder; exclusion wins")
			continue
		}
		kept = append(kept, k)
	}
	forced = kept

	// Step 4: exclusions within the founder-forced set. All members are
	// the same tier, so only the on-conflict policy decides.
	forced = a.resolveWithin(forced, scores, nil, log)
	forcedSet = keySet(forced)

	// Step 5: founder-forced outranks natural unconditionally.
	naturals = a.dropExcludedWithAny(naturals, forced, log)

	// Step 6: transitive pulls from the surviving naturals.
	inGroup := keySet(append(append([]entities.Key{founder}, naturals...), forced...))
	var transitive []entities.Key
	for _, n := range naturals {
		for _, partner := range a.store.ForceMatchesFor(n) {
			if inGroup[partner] || claimed[partner] || !a.universe.Contains(partner) {
				continue
			}
			inGroup[partner] = true
			transitive = append(transitive, partner)
		}
	}

	// Step 7: founder-forced outranks forced-from-natural too.
	transitive = a.dropExcludedWithAny(transitive, forced, log)

	// Step 7.5: founder exclusions again, silent like step 0.
	transitive = a.dropExcludedWith(founder, transitive, nil)

	// Step 8: exclusions within forced-from-natural, policy only.
	transitive = a.resolveWithin(transitive, scores, nil, log)

	members := map[entities.Key]bool{founder: true}
	for _, k := range naturals {
		members[k] = true
	}
	for _, k := range forced {
		members[k] = true
		a.stats.ForceMatchesApplied++
	}
	for _, k := range transitive {
		members[k] = true
		a.stats.ForceMatchesApplied++
	}

	group := newGroup(founder, members, a.universe)
	log.Debug().
		Str("founder", founder.String()).
		Int("members", group.Size()).
		Int("naturals", len(naturals)).
		Int("founder_forced", len(forced)).
		Int("forced_from_natural", len(transitive)).
		Msg("Assembled group")
	return group
}

// dropExcludedWith removes every key directly excluded with the pivot.
// With a nil logger the drops are silent.
func (a *Assembler) dropExcludedWith(pivot entities.Key, keys []entities.Key, log *zerolog.Logger) []entities.Key {
	kept := keys[:0]
	for _, k := range keys {
		if excl := a.store.ExclusionRule(pivot, k); excl != nil {
			a.stats.ExclusionsApplied++
			if log != nil {
				log.Debug().
					Str("pivot", pivot.String()).
					Str("key", k.String()).
					Str("rule_id", excl.RuleID).
					Msg("Dropped candidate excluded with pivot")
			}
			continue
		}
		kept = append(kept, k)
	}
	return kept
}

// dropExcludedWithAny removes every key excluded with at least one member
// of the higher-priority set.
func (a *Assembler) dropExcludedWithAny(keys []entities.Key, higher []entities.Key, log *zerolog.Logger) []entities.Key {
	kept := keys[:0]
candidates:
	for _, k := range keys {
		for _, h := range higher {
			if excl := a.store.ExclusionRule(h, k); excl != nil {
				a.stats.ExclusionsApplied++
				log.Debug().
					Str("key", k.String()).
					Str("outranked_by", h.String()).
					Str("rule_id", excl.RuleID).
					Msg("Dropped candidate excluded with higher-priority member")
				continue candidates
			}
		}
		kept = append(kept, k)
	}
	return kept
}

// resolveWithin enforces every exclusion between members of one candidate
// set. When forcedSet is non-nil a founder-forced side wins outright; in
// all other cases the exclusion's on-conflict policy picks the loser.
// Candidate order is preserved for survivors, and exclusion metadata is
// always queried in candidate order, so mutual-set tie-breaks are
// deterministic.
func (a *Assembler) resolveWithin(keys []entities.Key, scores map[entities.Key]float64, forcedSet map[entities.Key]bool, log *zerolog.Logger) []entities.Key {
	dropped := make(map[entities.Key]bool)
	for i := 0; i < len(keys); i++ {
		if dropped[keys[i]] {
			continue
		}
		for j := i + 1; j < len(keys); j++ {
			if dropped[keys[j]] {
				continue
			}
			excl := a.store.ExclusionRule(keys[i], keys[j])
			if excl == nil {
				continue
			}
			loser := a.loser(excl, keys[i], keys[j], scores, forcedSet, log)
			dropped[loser] = true
			a.stats.ExclusionsApplied++
			log.Debug().
				Str("winner", otherOf(loser, keys[i], keys[j]).String()).
				Str("loser", loser.String()).
				Str("rule_id", excl.RuleID).
				Str("policy", excl.OnConflict.String()).
				Msg("Resolved exclusion within candidate set")
			if loser == keys[i] {
				break
			}
		}
	}
	kept := keys[:0]
	for _, k := range keys {
		if !dropped[k] {
			kept = append(kept, k)
		}
	}
	return kept
}

// loser picks which side of an excluded pair is evicted.
func (a *Assembler) loser(excl *rules.Exclusion, x, y entities.Key, scores map[entities.Key]float64, forcedSet map[entities.Key]bool, log *zerolog.Logger) entities.Key {
	if forcedSet != nil {
		fx, fy := forcedSet[x], forcedSet[y]
		if fx && !fy {
			return y
		}
		if fy && !fx {
			return x
		}
	}

	switch excl.OnConflict {
	case rules.OtherYields:
		return excl.Other
	case rules.UseSimilarity:
		sx, okx := scores[x]
		sy, oky := scores[y]
		if !okx || !oky {
			log.Warn().
				Str("rule_id", excl.RuleID).
				Str("key1", x.String()).
				Str("key2", y.String()).
				Msg("Similarity policy requested but a score is missing; defective yields")
			return excl.Defective
		}
		if sx < sy {
			return x
		}
		if sy < sx {
			return y
		}
		// Equal scores tie; the defective key yields.
		return excl.Defective
	default:
		return excl.Defective
	}
}

func otherOf(k, x, y entities.Key) entities.Key {
	if k == x {
		return y
	}
	return x
}

func keySet(keys []entities.Key) map[entities.Key]bool {
	set := make(map[entities.Key]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
