package entitylink

import (
	"fmt"
	"time"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/audit"
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/phase"
	"github.com/entitylink/entitylink/pkg/rules"
)

// Result is the output artifact of one build run.
type Result struct {
	// RunID identifies the run in logs and reports.
	RunID string

	// Groups is the assembled group database, in founding order.
	Groups []*assemble.Group

	// Stats are the run counters, covering validation and assembly.
	Stats rules.Stats

	// Validation holds the rule validation messages from the start of the
	// run (orphaned rules, contradictions).
	Validation []string

	// Schedule is the anchor schedule derived from the force-match rules.
	Schedule phase.Schedule

	// Report is the audit of the finished groups.
	Report *audit.Report

	// Metadata describes the run itself.
	Metadata ResultMetadata
}

// ResultMetadata contains timing information about a build run.
type ResultMetadata struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// newResult creates a result with the clock started.
func newResult(runID string) *Result {
	return &Result{
		RunID:    runID,
		Metadata: ResultMetadata{StartTime: time.Now()},
	}
}

// finalize stamps the end time.
func (r *Result) finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// GroupFor returns the group containing the key, or nil when the key is in
// no group.
func (r *Result) GroupFor(key entities.Key) *assemble.Group {
	for _, g := range r.Groups {
		if g.Contains(key) {
			return g
		}
	}
	return nil
}

// Clean reports whether the run produced no validation messages and no
// audit failures.
func (r *Result) Clean() bool {
	return len(r.Validation) == 0 && r.Report != nil && r.Report.Clean()
}

// Summary returns a human-readable one-paragraph summary of the run.
func (r *Result) Summary() string {
	if r.Report == nil {
		return fmt.Sprintf("Build produced %d groups (unaudited).", len(r.Groups))
	}
	return fmt.Sprintf(
		"Build produced %d groups: %d force-matches applied, %d exclusions applied, %d orphaned rules, %d rule errors. Audit: %d passed, %d failed, %d skipped.",
		len(r.Groups),
		r.Stats.ForceMatchesApplied,
		r.Stats.ExclusionsApplied,
		r.Stats.OrphanedRules,
		r.Stats.Errors,
		r.Report.Passed,
		r.Report.Failed,
		r.Report.SkippedRows,
	)
}
