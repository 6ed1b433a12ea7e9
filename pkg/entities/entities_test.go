package entities

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestPairIDSymmetric(t *testing.T) {
	a, b := Key("reg-001"), Key("dir-042")
	if PairID(a, b) != PairID(b, a) {
		t.Errorf("PairID not symmetric: %q vs %q", PairID(a, b), PairID(b, a))
	}
}

func TestPairIDDistinguishesPairs(t *testing.T) {
	if PairID("a", "bc") == PairID("ab", "c") {
		t.Error("distinct pairs produced the same pair ID")
	}
}

func TestUniverseLookups(t *testing.T) {
	u := NewUniverse(
		&Entity{Key: "reg-001", Source: SourceRegistry, Kind: KindHousehold},
		&Entity{Key: "dir-001", Source: SourceDirectory, Kind: KindIndividual},
	)

	if u.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", u.Len())
	}
	if !u.Contains("reg-001") {
		t.Error("expected universe to contain reg-001")
	}
	if u.Contains("reg-999") {
		t.Error("did not expect universe to contain reg-999")
	}
	if got := u.Get("dir-001"); got == nil || got.Kind != KindIndividual {
		t.Errorf("Get(dir-001) = %+v, want individual entity", got)
	}
	if u.Get("missing") != nil {
		t.Error("Get on a missing key should return nil")
	}
}

func TestUniverseDuplicateKeysReplace(t *testing.T) {
	u := NewUniverse(
		&Entity{Key: "reg-001", Name: "first"},
		&Entity{Key: "reg-001", Name: "second"},
	)
	if u.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", u.Len())
	}
	if got := u.Get("reg-001").Name; got != "second" {
		t.Errorf("Get(reg-001).Name = %q, want the later entity", got)
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in   string
		want Source
	}{
		{"registry", SourceRegistry},
		{"Registry", SourceRegistry},
		{" DIRECTORY ", SourceDirectory},
		{"mystery", Source("mystery")},
	}
	for _, tt := range tests {
		if got := ParseSource(tt.in); got != tt.want {
			t.Errorf("ParseSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"household", KindHousehold},
		{"INDIVIDUAL", KindIndividual},
		{"Organization", KindOrganization},
		{"widget", Kind("widget")},
	}
	for _, tt := range tests {
		if got := ParseKind(tt.in); got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniverseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	original := NewUniverse(
		&Entity{Key: "reg-001", Source: SourceRegistry, Kind: KindHousehold, Name: "Smith Household"},
		&Entity{Key: "dir-001", Source: SourceDirectory, Kind: KindIndividual, Name: "J. Smith"},
		&Entity{Key: "reg-002", Source: SourceRegistry, Kind: KindOrganization, Name: "Smith LLC"},
	)

	if err := SaveUniverse(path, original); err != nil {
		t.Fatalf("SaveUniverse failed: %v", err)
	}
	loaded, err := LoadUniverse(path)
	if err != nil {
		t.Fatalf("LoadUniverse failed: %v", err)
	}

	if loaded.Len() != original.Len() {
		t.Fatalf("loaded %d entities, want %d", loaded.Len(), original.Len())
	}
	for _, k := range original.Keys() {
		got, want := loaded.Get(k), original.Get(k)
		if got == nil {
			t.Fatalf("entity %s missing after round trip", k)
		}
		if got.Source != want.Source || got.Kind != want.Kind || got.Name != want.Name {
			t.Errorf("entity %s = %+v, want %+v", k, got, want)
		}
	}
}

func TestLoadUniverseRejectsMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	u := NewUniverse(&Entity{Key: "reg-001", Source: SourceRegistry, Kind: KindIndividual})
	if err := SaveUniverse(path, u); err != nil {
		t.Fatalf("SaveUniverse failed: %v", err)
	}

	// A record without a key should be rejected at load time.
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, bad, "entities:\n  - source: registry\n    kind: individual\n")
	if _, err := LoadUniverse(bad); err == nil {
		t.Error("expected an error for an entity record without a key")
	}
}

func TestLoadUniverseMissingFile(t *testing.T) {
	if _, err := LoadUniverse(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing universe file")
	}
}
