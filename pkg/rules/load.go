package rules

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/errors"
)

// Rule tables are spreadsheet exports with a fixed six-column layout:
//
//	RuleID | Key1 | Key2 | Extra | Reason | Status
//
// Extra holds the anchor override for force-match tables and the
// on-conflict policy for force-exclude tables. A row whose Key1 column is
// the literal MUTUAL carries a list of keys in Key2, joined by the mutual
// separator. Force-exclude tables additionally allow a one-to-many
// shorthand: a real Key1 with a joined Key2 list expands into pairwise
// rules with bracketed sub-rule IDs.
const (
	// MutualLiteral marks a row as a mutual rule set.
	MutualLiteral = "MUTUAL"
	// MutualSeparator joins the keys of a mutual row.
	MutualSeparator = "::^::"

	tableColumns = 6
)

// Row statuses dropped at load time. Dropped rows are never stored, not
// even as disabled rules.
const (
	rowStatusDisabled = "DISABLED"
	rowStatusSkip     = "SKIP"
)

// LoadResult reports the outcome of loading one rule table.
type LoadResult struct {
	Loaded   int      // rules stored (mutual expansion counts each sub-rule)
	Dropped  int      // rows dropped for DISABLED/SKIP status
	Problems []string // structural problems; the offending rows were not stored
}

// LoadForceMatchTable parses force-match table rows into the store.
// Structurally invalid rows are collected into the result's problem list
// and skipped; loading never fails part-way.
func LoadForceMatchTable(store *Store, rows [][]string) *LoadResult {
	result := &LoadResult{}
	for i, row := range rows {
		cells, ok := normalizeRow(row, i, result)
		if !ok {
			continue
		}
		if dropped(cells[5]) {
			result.Dropped++
			continue
		}
		if cells[1] == MutualLiteral {
			set := &MutualSet{
				ID:     cells[0],
				Keys:   splitMutual(cells[2]),
				Reason: cells[4],
				Status: StatusActive,
			}
			if err := store.AddMutualInclusion(set); err != nil {
				result.Problems = append(result.Problems, err.Error())
				continue
			}
			result.Loaded++
			continue
		}
		rule := &ForceMatch{
			ID:             cells[0],
			Key1:           entities.Key(cells[1]),
			Key2:           entities.Key(cells[2]),
			AnchorOverride: entities.Key(cells[3]),
			Reason:         cells[4],
			Status:         StatusActive,
		}
		if err := store.AddForceMatch(rule); err != nil {
			result.Problems = append(result.Problems, err.Error())
			continue
		}
		result.Loaded++
	}
	return result
}

// LoadForceExcludeTable parses force-exclude table rows into the store,
// expanding one-to-many shorthand rows into pairwise rules with sub-rule
// IDs of the form ID[1], ID[2], and so on.
func LoadForceExcludeTable(store *Store, rows [][]string) *LoadResult {
	result := &LoadResult{}
	for i, row := range rows {
		cells, ok := normalizeRow(row, i, result)
		if !ok {
			continue
		}
		if dropped(cells[5]) {
			result.Dropped++
			continue
		}
		if cells[1] == MutualLiteral {
			set := &MutualSet{
				ID:     cells[0],
				Keys:   splitMutual(cells[2]),
				Reason: cells[4],
				Status: StatusActive,
			}
			if err := store.AddMutualExclusion(set); err != nil {
				result.Problems = append(result.Problems, err.Error())
				continue
			}
			result.Loaded++
			continue
		}

		policy, err := ParseOnConflict(cells[3])
		if err != nil {
			result.Problems = append(result.Problems,
				errors.NewRuleError("force-exclude", cells[0], []string{err.Error()}).Error())
			continue
		}

		others := []string{cells[2]}
		if strings.Contains(cells[2], MutualSeparator) {
			others = strings.Split(cells[2], MutualSeparator)
		}
		for n, other := range others {
			rule := &ForceExclude{
				ID:         cells[0],
				Defective:  entities.Key(cells[1]),
				Other:      entities.Key(strings.TrimSpace(other)),
				OnConflict: policy,
				Reason:     cells[4],
				Status:     StatusActive,
			}
			if len(others) > 1 {
				rule.ID = fmt.Sprintf("%s[%d]", cells[0], n+1)
			}
			if err := store.AddForceExclude(rule); err != nil {
				result.Problems = append(result.Problems, err.Error())
				continue
			}
			result.Loaded++
		}
	}
	return result
}

// LoadForceMatchCSV reads a force-match table from a CSV file.
func LoadForceMatchCSV(store *Store, path string) (*LoadResult, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	return LoadForceMatchTable(store, rows), nil
}

// LoadForceExcludeCSV reads a force-exclude table from a CSV file.
func LoadForceExcludeCSV(store *Store, path string) (*LoadResult, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	return LoadForceExcludeTable(store, rows), nil
}

// readCSV reads all records from a CSV file, tolerating short rows and
// skipping a header row when the first cell is the RuleID column label.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // rows may omit trailing empty columns
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}
	if len(records) > 0 && len(records[0]) > 0 && strings.EqualFold(strings.TrimSpace(records[0][0]), "RuleID") {
		records = records[1:]
	}
	return records, nil
}

// normalizeRow pads a row to the full column count and trims cell
// whitespace. Entirely empty rows are skipped without being reported.
func normalizeRow(row []string, index int, result *LoadResult) ([]string, bool) {
	cells := make([]string, tableColumns)
	empty := true
	for i := 0; i < tableColumns && i < len(row); i++ {
		cells[i] = strings.TrimSpace(row[i])
		if cells[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil, false
	}
	if cells[0] == "" {
		result.Problems = append(result.Problems, fmt.Sprintf("row %d: missing rule ID", index+1))
		return nil, false
	}
	return cells, true
}

func dropped(status string) bool {
	s := strings.ToUpper(strings.TrimSpace(status))
	return s == rowStatusDisabled || s == rowStatusSkip
}

func splitMutual(cell string) []entities.Key {
	parts := strings.Split(cell, MutualSeparator)
	keys := make([]entities.Key, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, entities.Key(p))
		}
	}
	return keys
}
