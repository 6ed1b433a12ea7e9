package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Report is the full audit outcome for one group database: every finding
// from both replays plus the conflict analysis for the failures.
type Report struct {
	RunID       string     `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time  `json:"generated_at" yaml:"generated_at"`
	Findings    []Finding  `json:"findings" yaml:"findings"`
	Conflicts   []Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`

	Passed      int `json:"passed" yaml:"passed"`
	Failed      int `json:"failed" yaml:"failed"`
	SkippedRows int `json:"skipped" yaml:"skipped"`

	// Unverified counts the skipped inclusion findings. An exclusion over
	// an unplaced key holds vacuously, but an inclusion the build never
	// placed is a soft failure worth its own number.
	Unverified int `json:"unverified" yaml:"unverified"`
}

// Run replays all rules, analyzes conflicts for the failures, and returns
// the assembled report.
func (a *Auditor) Run(runID string) *Report {
	report := &Report{
		RunID:       runID,
		GeneratedAt: time.Now(),
	}
	report.Findings = append(report.Findings, a.Inclusions()...)
	report.Findings = append(report.Findings, a.Exclusions()...)
	for _, f := range report.Findings {
		switch f.Outcome {
		case Pass:
			report.Passed++
		case Fail:
			report.Failed++
		case Skipped:
			report.SkippedRows++
			if f.RuleType.Inclusion() {
				report.Unverified++
			}
		}
	}
	report.Conflicts = a.Conflicts(report.Findings)
	return report
}

// Clean reports whether no rule failed.
func (r *Report) Clean() bool { return r.Failed == 0 }

// Summary returns the free-text block that precedes the findings table.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audit of %d rule checks: %d passed, %d failed, %d skipped.\n",
		len(r.Findings), r.Passed, r.Failed, r.SkippedRows)
	if r.Unverified > 0 {
		fmt.Fprintf(&b, "%d inclusion rules could not be verified because a key is unplaced.\n", r.Unverified)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, "%d transitive-conflict explanations follow the findings table.\n", len(r.Conflicts))
	} else {
		b.WriteString("All rules are honored by the group database.\n")
	}
	return b.String()
}

// FindingHeaders returns the findings table column labels.
func FindingHeaders() []string {
	return []string{"RuleType", "RuleId", "Status", "Key1", "Key2", "Group1Index", "Group2Index", "Reason"}
}

// FindingRows returns the findings as table rows. Unplaced keys render an
// empty group index.
func (r *Report) FindingRows() [][]string {
	rows := make([][]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		rows = append(rows, []string{
			string(f.RuleType),
			f.RuleID,
			string(f.Outcome),
			f.Key1.String(),
			f.Key2.String(),
			groupCell(f.Group1),
			groupCell(f.Group2),
			f.Reason,
		})
	}
	return rows
}

// ConflictHeaders returns the conflict-analysis table column labels.
func ConflictHeaders() []string {
	return []string{"FailedRuleId", "FailedRuleType", "FailureReason", "ConflictingKey", "ConflictsWith"}
}

// ConflictRows returns the conflict analysis as table rows.
func (r *Report) ConflictRows() [][]string {
	rows := make([][]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		rows = append(rows, []string{
			c.FailedRuleID,
			string(c.FailedRuleType),
			c.FailureReason,
			c.ConflictingKey.String(),
			c.ConflictsWith,
		})
	}
	return rows
}

func groupCell(index int) string {
	if index < 0 {
		return ""
	}
	return strconv.Itoa(index)
}
