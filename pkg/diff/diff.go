// Package diff detects changes between two group databases, typically the
// output of two build runs over different rule tables or universes. Groups
// are matched by founder; index shifts caused by founding-order changes are
// ignored unless requested.
package diff

import (
	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/entities"
)

// Differ compares group databases.
type Differ interface {
	// Groups compares two group databases and returns their changes.
	Groups(existing, updated []*assemble.Group) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	indexChanges bool
}

// Option configures a Differ.
type Option func(*differ)

// WithIndexChanges reports groups whose only change is their index. By
// default a group that kept its founder and members is unchanged even when
// the founding order shifted around it.
func WithIndexChanges() Option {
	return func(d *differ) { d.indexChanges = true }
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Groups compares two group databases, matching groups by founder.
func (d *differ) Groups(existing, updated []*assemble.Group) *Changeset {
	changes := &Changeset{}

	byFounder := make(map[entities.Key]*assemble.Group, len(existing))
	for _, g := range existing {
		byFounder[g.Founder] = g
	}

	seen := make(map[entities.Key]bool, len(updated))
	for _, after := range updated {
		seen[after.Founder] = true
		before, ok := byFounder[after.Founder]
		if !ok {
			changes.Added = append(changes.Added, after)
			continue
		}
		if gd := d.compare(before, after); gd != nil {
			changes.Modified = append(changes.Modified, *gd)
		}
	}
	for _, before := range existing {
		if !seen[before.Founder] {
			changes.Removed = append(changes.Removed, before)
		}
	}
	return changes
}

// compare returns the member-level diff of two groups with the same
// founder, or nil when they are unchanged.
func (d *differ) compare(before, after *assemble.Group) *GroupDiff {
	gd := &GroupDiff{
		Founder: after.Founder,
		Before:  before,
		After:   after,
	}

	beforeSet := make(map[entities.Key]bool, len(before.Members))
	for _, m := range before.Members {
		beforeSet[m] = true
	}
	afterSet := make(map[entities.Key]bool, len(after.Members))
	for _, m := range after.Members {
		afterSet[m] = true
	}
	for _, m := range after.Members {
		if !beforeSet[m] {
			gd.AddedMembers = append(gd.AddedMembers, m)
		}
	}
	for _, m := range before.Members {
		if !afterSet[m] {
			gd.RemovedMembers = append(gd.RemovedMembers, m)
		}
	}

	gd.IndexChanged = before.Index != after.Index
	if len(gd.AddedMembers) > 0 || len(gd.RemovedMembers) > 0 {
		return gd
	}
	if d.indexChanges && gd.IndexChanged {
		return gd
	}
	return nil
}
