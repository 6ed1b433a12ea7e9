package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/entities"
)

// Changeset is the complete difference between two group databases.
type Changeset struct {
	Added    []*assemble.Group `json:"added,omitempty" yaml:"added,omitempty"`
	Removed  []*assemble.Group `json:"removed,omitempty" yaml:"removed,omitempty"`
	Modified []GroupDiff       `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// GroupDiff is the change record for one group matched by founder.
type GroupDiff struct {
	Founder        entities.Key    `json:"founder" yaml:"founder"`
	Before         *assemble.Group `json:"-" yaml:"-"`
	After          *assemble.Group `json:"-" yaml:"-"`
	AddedMembers   []entities.Key  `json:"added_members,omitempty" yaml:"added_members,omitempty"`
	RemovedMembers []entities.Key  `json:"removed_members,omitempty" yaml:"removed_members,omitempty"`
	IndexChanged   bool            `json:"index_changed,omitempty" yaml:"index_changed,omitempty"`
}

// HasChanges reports whether the changeset contains any change at all.
func (c *Changeset) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Modified) > 0
}

// Summary returns a one-line description of the changeset.
func (c *Changeset) Summary() string {
	if !c.HasChanges() {
		return "No changes between group databases."
	}
	return fmt.Sprintf("%d groups added, %d removed, %d modified.",
		len(c.Added), len(c.Removed), len(c.Modified))
}

// Headers returns the change table column labels.
func Headers() []string {
	return []string{"Change", "Founder", "Size", "Detail"}
}

// Rows returns the changeset as table rows: added and removed groups first,
// then member-level modifications.
func (c *Changeset) Rows() [][]string {
	var rows [][]string
	for _, g := range c.Added {
		rows = append(rows, []string{"added", g.Founder.String(), strconv.Itoa(g.Size()), joinKeys(g.Members)})
	}
	for _, g := range c.Removed {
		rows = append(rows, []string{"removed", g.Founder.String(), strconv.Itoa(g.Size()), joinKeys(g.Members)})
	}
	for _, gd := range c.Modified {
		var detail []string
		if len(gd.AddedMembers) > 0 {
			detail = append(detail, "+"+joinKeys(gd.AddedMembers))
		}
		if len(gd.RemovedMembers) > 0 {
			detail = append(detail, "-"+joinKeys(gd.RemovedMembers))
		}
		if len(detail) == 0 && gd.IndexChanged {
			detail = append(detail, fmt.Sprintf("index %d -> %d", gd.Before.Index, gd.After.Index))
		}
		rows = append(rows, []string{"modified", gd.Founder.String(),
			strconv.Itoa(gd.After.Size()), strings.Join(detail, " ")})
	}
	return rows
}

func joinKeys(keys []entities.Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
