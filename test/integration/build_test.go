// Package integration exercises the full pipeline from files on disk:
// universe YAML plus rule-table CSVs in, built and audited group database
// out, saved and reloaded.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/entitylink/entitylink"
	"github.com/entitylink/entitylink/pkg/diff"
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/rules"
)

const universeYAML = `entities:
  - key: reg-hh-1
    source: registry
    kind: household
    name: Smith Household
  - key: reg-ind-1
    source: registry
    kind: individual
    name: A. Smith
  - key: reg-ind-2
    source: registry
    kind: individual
    name: B. Jones
  - key: dir-ind-1
    source: directory
    kind: individual
    name: A Smith
  - key: dir-ind-2
    source: directory
    kind: individual
    name: B Jones
  - key: dir-ind-3
    source: directory
    kind: individual
    name: Duplicate B Jones
`

const forceMatchCSV = `RuleID,Key1,Key2,Extra,Reason,Status
FM-1,reg-hh-1,dir-ind-1,,same household,
FM-2,reg-ind-9,dir-ind-1,,references a retired key,
FM-3,reg-ind-1,dir-ind-2,,reviewed manually,DISABLED
`

const forceExcludeCSV = `RuleID,Key1,Key2,Extra,Reason,Status
FE-1,dir-ind-3,reg-ind-2,DEFECTIVE_YIELDS,known duplicate upload,
`

func writeInputs(t *testing.T) (universePath, matchPath, excludePath string) {
	t.Helper()
	dir := t.TempDir()
	universePath = filepath.Join(dir, "universe.yaml")
	matchPath = filepath.Join(dir, "force_match.csv")
	excludePath = filepath.Join(dir, "force_exclude.csv")
	for path, content := range map[string]string{
		universePath: universeYAML,
		matchPath:    forceMatchCSV,
		excludePath:  forceExcludeCSV,
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return universePath, matchPath, excludePath
}

func TestBuildFromFiles(t *testing.T) {
	universePath, matchPath, excludePath := writeInputs(t)

	universe, err := entities.LoadUniverse(universePath)
	if err != nil {
		t.Fatalf("LoadUniverse: %v", err)
	}
	if universe.Len() != 6 {
		t.Fatalf("loaded %d entities, want 6", universe.Len())
	}

	store := rules.NewStore()
	matchResult, err := rules.LoadForceMatchCSV(store, matchPath)
	if err != nil {
		t.Fatalf("LoadForceMatchCSV: %v", err)
	}
	if matchResult.Loaded != 2 || matchResult.Dropped != 1 {
		t.Fatalf("force-match load = %+v, want 2 loaded and the disabled row dropped", matchResult)
	}
	if _, err := rules.LoadForceExcludeCSV(store, excludePath); err != nil {
		t.Fatalf("LoadForceExcludeCSV: %v", err)
	}

	linker, err := entitylink.New(
		entitylink.WithUniverse(universe),
		entitylink.WithRules(store),
	)
	if err != nil {
		t.Fatal(err)
	}
	result, err := linker.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// FM-2 names a key outside the universe and must orphan, not fail.
	if result.Stats.OrphanedRules != 1 {
		t.Errorf("OrphanedRules = %d, want 1", result.Stats.OrphanedRules)
	}
	// The household claims its forced partner.
	hh := result.GroupFor("reg-hh-1")
	if hh == nil || !hh.Contains("dir-ind-1") {
		t.Errorf("household group = %+v, want dir-ind-1 claimed", hh)
	}
	// The exclusion holds: the duplicate never shares a group with its
	// registry counterpart.
	g1, g2 := result.GroupFor("dir-ind-3"), result.GroupFor("reg-ind-2")
	if g1 != nil && g2 != nil && g1.Index == g2.Index {
		t.Error("excluded pair ended up in the same group")
	}
	if result.Report == nil || !result.Report.Clean() {
		t.Errorf("audit = %+v, want clean", result.Report)
	}
}

func TestSaveReloadAuditAndDiff(t *testing.T) {
	universePath, matchPath, excludePath := writeInputs(t)

	universe, err := entities.LoadUniverse(universePath)
	if err != nil {
		t.Fatal(err)
	}
	store := rules.NewStore()
	if _, err := rules.LoadForceMatchCSV(store, matchPath); err != nil {
		t.Fatal(err)
	}
	if _, err := rules.LoadForceExcludeCSV(store, excludePath); err != nil {
		t.Fatal(err)
	}
	linker, err := entitylink.New(
		entitylink.WithUniverse(universe),
		entitylink.WithRules(store),
	)
	if err != nil {
		t.Fatal(err)
	}
	result, err := linker.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "groups.yaml")
	if err := entitylink.SaveGroups(path, result); err != nil {
		t.Fatalf("SaveGroups: %v", err)
	}
	reloaded, err := entitylink.LoadGroups(path)
	if err != nil {
		t.Fatalf("LoadGroups: %v", err)
	}

	if report := linker.Audit(context.Background(), reloaded); !report.Clean() {
		t.Errorf("audit of the reloaded database = %+v, want clean", report)
	}
	if changes := diff.New().Groups(result.Groups, reloaded); changes.HasChanges() {
		t.Errorf("diff against the reloaded database = %+v, want no changes", changes)
	}
}
