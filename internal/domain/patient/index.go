package patient

import (
	"sort"
	"strings"
)

// Group is the set of record positions sharing a case-insensitive key. Label
// keeps the spelling of the first record that joined the group.
type Group struct {
	Label     string
	Positions []int
}

// Index holds the lookup tables derived from a record sequence. It is never
// patched: every mutation of the store replaces it with BuildIndex.
type Index struct {
	byID         map[int]int
	byName       map[string]*Group
	byDepartment map[string]*Group
	byCondition  map[string]*Group
	byRoom       map[int][]int
}

// foldKey is the single normalisation used for both grouping and lookup, so
// two keys are equivalent iff their lowercased forms are equal.
func foldKey(s string) string {
	return strings.ToLower(s)
}

// BuildIndex derives every mapping from records in one pass. When ids repeat,
// the last position wins; Store.Load prevents that from happening.
func BuildIndex(records []Patient) *Index {
	ix := &Index{
		byID:         make(map[int]int, len(records)),
		byName:       make(map[string]*Group),
		byDepartment: make(map[string]*Group),
		byCondition:  make(map[string]*Group),
		byRoom:       make(map[int][]int),
	}
	for i, p := range records {
		ix.byID[p.ID] = i
		addToGroup(ix.byName, p.Name, i)
		addToGroup(ix.byDepartment, p.Department, i)
		addToGroup(ix.byCondition, p.Condition, i)
		ix.byRoom[p.RoomNumber] = append(ix.byRoom[p.RoomNumber], i)
	}
	return ix
}

func addToGroup(m map[string]*Group, value string, pos int) {
	key := foldKey(value)
	g, ok := m[key]
	if !ok {
		g = &Group{Label: value}
		m[key] = g
	}
	g.Positions = append(g.Positions, pos)
}

// Position returns the store position of id.
func (ix *Index) Position(id int) (int, bool) {
	pos, ok := ix.byID[id]
	return pos, ok
}

func (ix *Index) Name(name string) []int             { return groupPositions(ix.byName, name) }
func (ix *Index) Department(department string) []int { return groupPositions(ix.byDepartment, department) }
func (ix *Index) Condition(condition string) []int   { return groupPositions(ix.byCondition, condition) }

// Room returns the positions of every record assigned to room, whatever its dates.
func (ix *Index) Room(room int) []int {
	return clonePositions(ix.byRoom[room])
}

// Departments and Conditions enumerate groups ordered by folded key.
func (ix *Index) Departments() []Group { return sortedGroups(ix.byDepartment) }
func (ix *Index) Conditions() []Group  { return sortedGroups(ix.byCondition) }

// MatchNames returns the union, in store order, of every name group whose
// folded key contains the folded substring.
func (ix *Index) MatchNames(substring string) []int {
	needle := foldKey(substring)
	var out []int
	for key, g := range ix.byName {
		if strings.Contains(key, needle) {
			out = append(out, g.Positions...)
		}
	}
	sort.Ints(out)
	return out
}

func groupPositions(m map[string]*Group, value string) []int {
	g, ok := m[foldKey(value)]
	if !ok {
		return nil
	}
	return clonePositions(g.Positions)
}

func sortedGroups(m map[string]*Group) []Group {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		g := m[k]
		out = append(out, Group{Label: g.Label, Positions: clonePositions(g.Positions)})
	}
	return out
}

func clonePositions(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
