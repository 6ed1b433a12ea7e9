// Package assemble builds entity groups. Given one founder entity, the
// natural-match candidates an external similarity scorer proposed for it,
// and the override-rule store, the assembler produces the founder's final
// group membership through a fixed priority algorithm: entities the
// founder's force-match rules name outrank natural matches, which outrank
// entities pulled in transitively through a natural's own force-matches.
package assemble

import (
	"sort"

	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/phase"
)

// Candidate is one natural-match candidate with its similarity score, as
// supplied by the external scorer.
type Candidate struct {
	Key   entities.Key `json:"key" yaml:"key"`
	Score float64      `json:"score" yaml:"score"`
}

// Flags are facts about a finished group's membership.
type Flags struct {
	HasRegistryMember  bool `json:"has_registry_member" yaml:"has_registry_member"`
	HasDirectoryMember bool `json:"has_directory_member" yaml:"has_directory_member"`
}

// Group is one assembled entity group. Groups are immutable once assembly
// for their founder completes; membership sets are disjoint across groups
// for the lifetime of a build.
type Group struct {
	Index   int            `json:"index" yaml:"index"`
	Founder entities.Key   `json:"founder" yaml:"founder"`
	Members []entities.Key `json:"members" yaml:"members"` // sorted, founder included
	Phase   phase.Phase    `json:"phase" yaml:"phase"`
	Flags   Flags          `json:"flags" yaml:"flags"`
}

// Contains reports whether the key is a member of the group.
func (g *Group) Contains(key entities.Key) bool {
	for _, m := range g.Members {
		if m == key {
			return true
		}
	}
	return false
}

// Size returns the number of members, founder included.
func (g *Group) Size() int { return len(g.Members) }

// newGroup finalizes a group from its member set.
func newGroup(founder entities.Key, members map[entities.Key]bool, universe *entities.Universe) *Group {
	g := &Group{
		Founder: founder,
		Phase:   phase.ClassifyKey(universe, founder),
	}
	g.Members = make([]entities.Key, 0, len(members))
	for k := range members {
		g.Members = append(g.Members, k)
	}
	sort.Slice(g.Members, func(i, j int) bool { return g.Members[i].Less(g.Members[j]) })

	for _, k := range g.Members {
		if e := universe.Get(k); e != nil {
			switch e.Source {
			case entities.SourceRegistry:
				g.Flags.HasRegistryMember = true
			case entities.SourceDirectory:
				g.Flags.HasDirectoryMember = true
			}
		}
	}
	return g
}
