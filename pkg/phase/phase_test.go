package phase

import (
	"testing"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/rules"
)

func entity(key entities.Key, source entities.Source, kind entities.Kind) *entities.Entity {
	return &entities.Entity{Key: key, Source: source, Kind: kind}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		e    *entities.Entity
		want Phase
	}{
		{"household registry", entity("a", entities.SourceRegistry, entities.KindHousehold), HouseholdRegistry},
		{"household directory", entity("a", entities.SourceDirectory, entities.KindHousehold), HouseholdDirectory},
		{"individual registry", entity("a", entities.SourceRegistry, entities.KindIndividual), IndividualRegistry},
		{"individual directory", entity("a", entities.SourceDirectory, entities.KindIndividual), IndividualDirectory},
		{"organization", entity("a", entities.SourceRegistry, entities.KindOrganization), Last},
		{"unknown source", entity("a", "archive", entities.KindIndividual), Last},
		{"nil entity", nil, Last},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.e); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhaseOrdering(t *testing.T) {
	order := []Phase{HouseholdRegistry, HouseholdDirectory, IndividualRegistry, IndividualDirectory, Last}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("%v should order before %v", order[i-1], order[i])
		}
	}
}

func TestClassifyKeyAbsent(t *testing.T) {
	u := entities.NewUniverse()
	if got := ClassifyKey(u, "ghost"); got != Last {
		t.Errorf("ClassifyKey on an absent key = %v, want Last", got)
	}
}

func TestDetermineAnchor(t *testing.T) {
	u := entities.NewUniverse(
		entity("hh-reg", entities.SourceRegistry, entities.KindHousehold),
		entity("ind-dir", entities.SourceDirectory, entities.KindIndividual),
		entity("ind-reg-1", entities.SourceRegistry, entities.KindIndividual),
		entity("ind-reg-2", entities.SourceRegistry, entities.KindIndividual),
	)

	tests := []struct {
		name          string
		key1, key2    entities.Key
		override      entities.Key
		wantAnchor    entities.Key
		wantDependent entities.Key
		wantPhase     Phase
	}{
		{
			name: "earlier phase anchors", key1: "ind-dir", key2: "hh-reg",
			wantAnchor: "hh-reg", wantDependent: "ind-dir", wantPhase: HouseholdRegistry,
		},
		{
			name: "tie goes to key1", key1: "ind-reg-2", key2: "ind-reg-1",
			wantAnchor: "ind-reg-2", wantDependent: "ind-reg-1", wantPhase: IndividualRegistry,
		},
		{
			name: "override wins over phase", key1: "hh-reg", key2: "ind-dir", override: "ind-dir",
			wantAnchor: "ind-dir", wantDependent: "hh-reg", wantPhase: IndividualDirectory,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineAnchor(tt.key1, tt.key2, tt.override, u)
			if got.Anchor != tt.wantAnchor {
				t.Errorf("Anchor = %s, want %s", got.Anchor, tt.wantAnchor)
			}
			if got.Dependent != tt.wantDependent {
				t.Errorf("Dependent = %s, want %s", got.Dependent, tt.wantDependent)
			}
			if got.AnchorPhase != tt.wantPhase {
				t.Errorf("AnchorPhase = %v, want %v", got.AnchorPhase, tt.wantPhase)
			}
		})
	}
}

func TestBuildSchedule(t *testing.T) {
	u := entities.NewUniverse(
		entity("hh-reg", entities.SourceRegistry, entities.KindHousehold),
		entity("ind-dir-1", entities.SourceDirectory, entities.KindIndividual),
		entity("ind-dir-2", entities.SourceDirectory, entities.KindIndividual),
	)
	s := rules.NewStore()
	add := func(rule *rules.ForceMatch) {
		t.Helper()
		if err := s.AddForceMatch(rule); err != nil {
			t.Fatalf("AddForceMatch(%s): %v", rule.ID, err)
		}
	}
	add(&rules.ForceMatch{ID: "FM-1", Key1: "ind-dir-1", Key2: "hh-reg"})
	add(&rules.ForceMatch{ID: "FM-2", Key1: "hh-reg", Key2: "ind-dir-2"})
	add(&rules.ForceMatch{ID: "FM-3", Key1: "hh-reg", Key2: "ind-dir-2"}) // duplicate dependent
	add(&rules.ForceMatch{ID: "FM-4", Key1: "hh-reg", Key2: "ind-dir-1", Status: rules.StatusOrphaned})

	schedule := BuildSchedule(s, u)

	if len(schedule) != 1 {
		t.Fatalf("schedule has %d anchors, want 1", len(schedule))
	}
	entry := schedule["hh-reg"]
	if entry == nil {
		t.Fatal("expected hh-reg to anchor")
	}
	if entry.AnchorPhase != HouseholdRegistry {
		t.Errorf("AnchorPhase = %v, want HouseholdRegistry", entry.AnchorPhase)
	}
	if len(entry.Dependents) != 2 {
		t.Errorf("Dependents = %v, want the two deduplicated dependents", entry.Dependents)
	}
	if len(entry.RuleIDs) != 3 {
		t.Errorf("RuleIDs = %v, want all three active rule IDs", entry.RuleIDs)
	}
}

func TestScheduleAnchorsOrdered(t *testing.T) {
	u := entities.NewUniverse(
		entity("hh-b", entities.SourceRegistry, entities.KindHousehold),
		entity("hh-a", entities.SourceRegistry, entities.KindHousehold),
		entity("ind-a", entities.SourceRegistry, entities.KindIndividual),
		entity("dep-1", entities.SourceDirectory, entities.KindIndividual),
		entity("dep-2", entities.SourceDirectory, entities.KindIndividual),
		entity("dep-3", entities.SourceDirectory, entities.KindIndividual),
	)
	s := rules.NewStore()
	for _, rule := range []*rules.ForceMatch{
		{ID: "FM-1", Key1: "ind-a", Key2: "dep-1", AnchorOverride: "ind-a"},
		{ID: "FM-2", Key1: "hh-b", Key2: "dep-2"},
		{ID: "FM-3", Key1: "hh-a", Key2: "dep-3"},
	} {
		if err := s.AddForceMatch(rule); err != nil {
			t.Fatalf("AddForceMatch(%s): %v", rule.ID, err)
		}
	}

	anchors := BuildSchedule(s, u).Anchors()
	want := []entities.Key{"hh-a", "hh-b", "ind-a"}
	if len(anchors) != len(want) {
		t.Fatalf("Anchors() = %v, want %v", anchors, want)
	}
	for i := range want {
		if anchors[i] != want[i] {
			t.Fatalf("Anchors() = %v, want phase-then-key order %v", anchors, want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	if HouseholdRegistry.String() != "household/registry" {
		t.Errorf("unexpected name %q", HouseholdRegistry.String())
	}
	if Phase(99).String() != "last" {
		t.Errorf("out-of-range phase should render as last, got %q", Phase(99).String())
	}
}
