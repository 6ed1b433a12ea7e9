package assemble_test

import (
	"context"
	"testing"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/logging"
	"github.com/entitylink/entitylink/pkg/phase"
	"github.com/entitylink/entitylink/pkg/rules"
)

// fixture bundles the store, universe, and stats one assembly test needs.
type fixture struct {
	t        *testing.T
	store    *rules.Store
	universe *entities.Universe
	stats    rules.Stats
}

func newFixture(t *testing.T, keys ...entities.Key) *fixture {
	t.Helper()
	ents := make([]*entities.Entity, len(keys))
	for i, k := range keys {
		ents[i] = &entities.Entity{Key: k, Source: entities.SourceRegistry, Kind: entities.KindIndividual}
	}
	return &fixture{
		t:        t,
		store:    rules.NewStore(),
		universe: entities.NewUniverse(ents...),
	}
}

func (f *fixture) forceMatch(id string, k1, k2 entities.Key) {
	f.t.Helper()
	if err := f.store.AddForceMatch(&rules.ForceMatch{ID: id, Key1: k1, Key2: k2}); err != nil {
		f.t.Fatalf("AddForceMatch(%s): %v", id, err)
	}
}

func (f *fixture) forceExclude(id string, defective, other entities.Key, policy rules.OnConflict) {
	f.t.Helper()
	rule := &rules.ForceExclude{ID: id, Defective: defective, Other: other, OnConflict: policy}
	if err := f.store.AddForceExclude(rule); err != nil {
		f.t.Fatalf("AddForceExclude(%s): %v", id, err)
	}
}

func (f *fixture) assemble(founder entities.Key, candidates ...assemble.Candidate) *assemble.Group {
	f.t.Helper()
	a := assemble.New(f.store, f.universe, &f.stats)
	ctx := logging.WithLogger(context.Background(), &logging.Nop)
	return a.Assemble(ctx, founder, candidates, nil)
}

func wantMembers(t *testing.T, g *assemble.Group, want ...entities.Key) {
	t.Helper()
	if len(g.Members) != len(want) {
		t.Fatalf("Members = %v, want %v", g.Members, want)
	}
	for i := range want {
		if g.Members[i] != want[i] {
			t.Fatalf("Members = %v, want %v (sorted)", g.Members, want)
		}
	}
}

func TestAssembleNaturalsOnly(t *testing.T) {
	f := newFixture(t, "founder", "b", "a")

	g := f.assemble("founder",
		assemble.Candidate{Key: "b", Score: 0.9},
		assemble.Candidate{Key: "a", Score: 0.8},
	)

	wantMembers(t, g, "a", "b", "founder")
	if g.Founder != "founder" {
		t.Errorf("Founder = %s, want founder", g.Founder)
	}
	if !g.Contains("a") || g.Contains("z") {
		t.Error("Contains is wrong")
	}
	if f.stats.ExclusionsApplied != 0 || f.stats.ForceMatchesApplied != 0 {
		t.Errorf("stats = %+v, want untouched", f.stats)
	}
}

func TestAssembleSingletonGroup(t *testing.T) {
	f := newFixture(t, "loner")
	g := f.assemble("loner")
	wantMembers(t, g, "loner")
	if g.Size() != 1 {
		t.Errorf("Size = %d, want 1", g.Size())
	}
}

func TestAssembleDropsCandidateExcludedWithFounder(t *testing.T) {
	f := newFixture(t, "founder", "good", "bad")
	f.forceExclude("FE-1", "bad", "founder", rules.DefectiveYields)

	g := f.assemble("founder",
		assemble.Candidate{Key: "good", Score: 0.9},
		assemble.Candidate{Key: "bad", Score: 0.99},
	)

	wantMembers(t, g, "founder", "good")
	if f.stats.ExclusionsApplied != 1 {
		t.Errorf("ExclusionsApplied = %d, want 1", f.stats.ExclusionsApplied)
	}
}

func TestAssembleResolvesExclusionAmongNaturals(t *testing.T) {
	tests := []struct {
		name      string
		policy    rules.OnConflict
		scoreX    float64
		scoreY    float64
		surviving entities.Key
	}{
		// x is the defective side throughout.
		{"defective yields regardless of score", rules.DefectiveYields, 0.99, 0.5, "y"},
		{"other yields regardless of score", rules.OtherYields, 0.5, 0.99, "x"},
		{"similarity keeps the higher score", rules.UseSimilarity, 0.9, 0.6, "x"},
		{"similarity keeps the other higher score", rules.UseSimilarity, 0.6, 0.9, "y"},
		{"similarity tie falls back to defective yields", rules.UseSimilarity, 0.7, 0.7, "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "founder", "x", "y")
			f.forceExclude("FE-1", "x", "y", tt.policy)

			g := f.assemble("founder",
				assemble.Candidate{Key: "x", Score: tt.scoreX},
				assemble.Candidate{Key: "y", Score: tt.scoreY},
			)

			if g.Size() != 2 || !g.Contains(tt.surviving) {
				t.Errorf("Members = %v, want founder plus %s", g.Members, tt.surviving)
			}
			if f.stats.ExclusionsApplied != 1 {
				t.Errorf("ExclusionsApplied = %d, want 1", f.stats.ExclusionsApplied)
			}
		})
	}
}

func TestAssembleFounderForcedNaturalWinsConflict(t *testing.T) {
	// y would win under the rule's policy, but x is named by one of the
	// founder's own force-match rules and that tier wins outright.
	f := newFixture(t, "founder", "x", "y")
	f.forceMatch("FM-1", "founder", "x")
	f.forceExclude("FE-1", "x", "y", rules.DefectiveYields)

	g := f.assemble("founder",
		assemble.Candidate{Key: "x", Score: 0.5},
		assemble.Candidate{Key: "y", Score: 0.99},
	)

	if !g.Contains("x") || g.Contains("y") {
		t.Errorf("Members = %v, want x kept and y evicted", g.Members)
	}
}

func TestAssembleIncludesForcedPartners(t *testing.T) {
	f := newFixture(t, "founder", "partner")
	f.forceMatch("FM-1", "founder", "partner")

	g := f.assemble("founder")

	wantMembers(t, g, "founder", "partner")
	if f.stats.ForceMatchesApplied != 1 {
		t.Errorf("ForceMatchesApplied = %d, want 1", f.stats.ForceMatchesApplied)
	}
}

func TestAssembleSkipsForcedPartnerOutsideUniverse(t *testing.T) {
	f := newFixture(t, "founder")
	f.forceMatch("FM-1", "founder", "ghost")

	g := f.assemble("founder")

	wantMembers(t, g, "founder")
}

func TestAssembleSkipsClaimedKeysInEveryTier(t *testing.T) {
	// A key owned by an earlier group must not be reachable through any
	// tier: natural candidate, founder-forced partner, or transitive pull.
	f := newFixture(t, "founder", "owned-nat", "owned-forced", "natural", "owned-pulled")
	f.forceMatch("FM-1", "founder", "owned-forced")
	f.forceMatch("FM-2", "natural", "owned-pulled")

	a := assemble.New(f.store, f.universe, &f.stats)
	claimed := map[entities.Key]bool{
		"owned-nat":    true,
		"owned-forced": true,
		"owned-pulled": true,
	}
	g := a.Assemble(context.Background(), "founder", []assemble.Candidate{
		{Key: "owned-nat", Score: 0.9},
		{Key: "natural", Score: 0.8},
	}, claimed)

	wantMembers(t, g, "founder", "natural")
	if f.stats.ForceMatchesApplied != 0 {
		t.Errorf("ForceMatchesApplied = %d, want 0 when every partner is claimed", f.stats.ForceMatchesApplied)
	}
}

func TestAssembleExclusionBeatsForceMatchOnFounder(t *testing.T) {
	// The same key is both force-matched and force-excluded with the
	// founder. The exclusion wins.
	f := newFixture(t, "founder", "contested")
	f.forceMatch("FM-1", "founder", "contested")
	f.forceExclude("FE-1", "contested", "founder", rules.DefectiveYields)

	g := f.assemble("founder")

	wantMembers(t, g, "founder")
	if f.stats.ExclusionsApplied != 1 {
		t.Errorf("ExclusionsApplied = %d, want 1", f.stats.ExclusionsApplied)
	}
	if f.stats.ForceMatchesApplied != 0 {
		t.Errorf("ForceMatchesApplied = %d, want 0", f.stats.ForceMatchesApplied)
	}
}

func TestAssembleResolvesExclusionWithinForced(t *testing.T) {
	f := newFixture(t, "founder", "p1", "p2")
	f.forceMatch("FM-1", "founder", "p1")
	f.forceMatch("FM-2", "founder", "p2")
	f.forceExclude("FE-1", "p1", "p2", rules.DefectiveYields)

	g := f.assemble("founder")

	wantMembers(t, g, "founder", "p2")
}

func TestAssembleSimilarityPolicyWithoutScores(t *testing.T) {
	// Forced members carry no similarity scores, so a use-similarity
	// exclusion between them falls back to evicting the defective key.
	f := newFixture(t, "founder", "p1", "p2")
	f.forceMatch("FM-1", "founder", "p1")
	f.forceMatch("FM-2", "founder", "p2")
	f.forceExclude("FE-1", "p2", "p1", rules.UseSimilarity)

	g := f.assemble("founder")

	wantMembers(t, g, "founder", "p1")
	if f.stats.ExclusionsApplied != 1 {
		t.Errorf("ExclusionsApplied = %d, want 1", f.stats.ExclusionsApplied)
	}
}

func TestAssembleForcedOutranksNatural(t *testing.T) {
	// The natural is excluded with a founder-forced member; the forced
	// member stays no matter the scores or the rule's policy.
	f := newFixture(t, "founder", "forced", "natural")
	f.forceMatch("FM-1", "founder", "forced")
	f.forceExclude("FE-1", "forced", "natural", rules.OtherYields)

	g := f.assemble("founder", assemble.Candidate{Key: "natural", Score: 0.99})

	wantMembers(t, g, "forced", "founder")
}

func TestAssemblePullsTransitiveForceMatches(t *testing.T) {
	f := newFixture(t, "founder", "natural", "pulled")
	f.forceMatch("FM-1", "natural", "pulled")

	g := f.assemble("founder", assemble.Candidate{Key: "natural", Score: 0.9})

	wantMembers(t, g, "founder", "natural", "pulled")
	if f.stats.ForceMatchesApplied != 1 {
		t.Errorf("ForceMatchesApplied = %d, want 1 for the transitive pull", f.stats.ForceMatchesApplied)
	}
}

func TestAssembleForcedOutranksTransitive(t *testing.T) {
	f := newFixture(t, "founder", "forced", "natural", "pulled")
	f.forceMatch("FM-1", "founder", "forced")
	f.forceMatch("FM-2", "natural", "pulled")
	f.forceExclude("FE-1", "pulled", "forced", rules.OtherYields)

	g := f.assemble("founder", assemble.Candidate{Key: "natural", Score: 0.9})

	wantMembers(t, g, "forced", "founder", "natural")
}

func TestAssembleFounderExclusionDropsTransitive(t *testing.T) {
	f := newFixture(t, "founder", "natural", "pulled")
	f.forceMatch("FM-1", "natural", "pulled")
	f.forceExclude("FE-1", "pulled", "founder", rules.DefectiveYields)

	g := f.assemble("founder", assemble.Candidate{Key: "natural", Score: 0.9})

	wantMembers(t, g, "founder", "natural")
}

func TestAssembleMutualExclusionFirstQueriedLoses(t *testing.T) {
	f := newFixture(t, "founder", "b", "c")
	if err := f.store.AddMutualExclusion(&rules.MutualSet{
		ID: "ME-1", Keys: []entities.Key{"b", "c"},
	}); err != nil {
		t.Fatalf("AddMutualExclusion: %v", err)
	}

	// Candidates arrive in order, so b is queried first and loses.
	g := f.assemble("founder",
		assemble.Candidate{Key: "b", Score: 0.9},
		assemble.Candidate{Key: "c", Score: 0.9},
	)

	wantMembers(t, g, "c", "founder")
}

func TestAssembleDeduplicatesCandidates(t *testing.T) {
	f := newFixture(t, "founder", "a")

	g := f.assemble("founder",
		assemble.Candidate{Key: "a", Score: 0.9},
		assemble.Candidate{Key: "a", Score: 0.5},
		assemble.Candidate{Key: "founder", Score: 1.0},
	)

	wantMembers(t, g, "a", "founder")
}

func TestGroupFlagsAndPhase(t *testing.T) {
	universe := entities.NewUniverse(
		&entities.Entity{Key: "hh", Source: entities.SourceRegistry, Kind: entities.KindHousehold},
		&entities.Entity{Key: "member", Source: entities.SourceDirectory, Kind: entities.KindIndividual},
	)
	var stats rules.Stats
	a := assemble.New(rules.NewStore(), universe, &stats)

	g := a.Assemble(context.Background(), "hh", []assemble.Candidate{{Key: "member", Score: 0.8}}, nil)

	if g.Phase != phase.HouseholdRegistry {
		t.Errorf("Phase = %v, want HouseholdRegistry", g.Phase)
	}
	if !g.Flags.HasRegistryMember || !g.Flags.HasDirectoryMember {
		t.Errorf("Flags = %+v, want both sources present", g.Flags)
	}
}
