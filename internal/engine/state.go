package engine

import (
	"sort"

	"github.com/hollis-dev/loam/internal/note"
)

// rootKey indexes the children of "no parent".
const rootKey = ""

// treeState is the in-memory image of the note tree plus the two lookup
// indexes query contexts use. The engine swaps the whole state on
// commit; a state is never mutated after it became current, so reads
// against the current state need no locking beyond the document mutex.
type treeState struct {
	notes    map[string]*note.Note
	children map[string][]string // parent ref (rootKey for roots) -> ordered child ids

	// tags maps tag -> note id set; links maps target note id -> set of
	// note ids carrying a NoteLink to it.
	tags  map[string]map[string]struct{}
	links map[string]map[string]struct{}
}

func newTreeState(notes []*note.Note) *treeState {
	s := &treeState{
		notes:    make(map[string]*note.Note, len(notes)),
		children: make(map[string][]string),
		tags:     make(map[string]map[string]struct{}),
		links:    make(map[string]map[string]struct{}),
	}
	for _, n := range notes {
		s.notes[n.ID] = n
		s.children[n.ParentRef()] = append(s.children[n.ParentRef()], n.ID)
		s.index(n)
	}
	// Stored positions define sibling order; the load query pre-sorts,
	// but normalise anyway so a damaged file cannot break the invariant.
	for parent := range s.children {
		ids := s.children[parent]
		sort.SliceStable(ids, func(i, j int) bool {
			return s.notes[ids[i]].Position < s.notes[ids[j]].Position
		})
		for i, id := range ids {
			s.notes[id].Position = i
		}
	}
	return s
}

// clone deep-copies the state for staging one mutation unit.
func (s *treeState) clone() *treeState {
	c := &treeState{
		notes:    make(map[string]*note.Note, len(s.notes)),
		children: make(map[string][]string, len(s.children)),
		tags:     make(map[string]map[string]struct{}, len(s.tags)),
		links:    make(map[string]map[string]struct{}, len(s.links)),
	}
	for id, n := range s.notes {
		c.notes[id] = n.Clone()
	}
	for parent, ids := range s.children {
		c.children[parent] = append([]string(nil), ids...)
	}
	for tag, set := range s.tags {
		c.tags[tag] = copySet(set)
	}
	for target, set := range s.links {
		c.links[target] = copySet(set)
	}
	return c
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// index adds a note's tags and links to the lookup indexes.
func (s *treeState) index(n *note.Note) {
	for _, tag := range n.Tags {
		if s.tags[tag] == nil {
			s.tags[tag] = make(map[string]struct{})
		}
		s.tags[tag][n.ID] = struct{}{}
	}
	for _, target := range noteLinkTargets(n) {
		if s.links[target] == nil {
			s.links[target] = make(map[string]struct{})
		}
		s.links[target][n.ID] = struct{}{}
	}
}

// unindex removes a note's tags and links from the lookup indexes.
func (s *treeState) unindex(n *note.Note) {
	for _, tag := range n.Tags {
		delete(s.tags[tag], n.ID)
		if len(s.tags[tag]) == 0 {
			delete(s.tags, tag)
		}
	}
	for _, target := range noteLinkTargets(n) {
		delete(s.links[target], n.ID)
		if len(s.links[target]) == 0 {
			delete(s.links, target)
		}
	}
}

// reindexNote reconciles the tag and link indexes with a note's current
// values. Exact regardless of how the note was mutated: hooks edit
// staged notes in place, so there is no reliable before-image to diff
// against.
func (s *treeState) reindexNote(n *note.Note) {
	for tag, set := range s.tags {
		delete(set, n.ID)
		if len(set) == 0 {
			delete(s.tags, tag)
		}
	}
	for target, set := range s.links {
		delete(set, n.ID)
		if len(set) == 0 {
			delete(s.links, target)
		}
	}
	s.index(n)
}

func noteLinkTargets(n *note.Note) []string {
	var out []string
	for _, v := range n.Fields {
		if link, ok := linkValue(v); ok && link != "" {
			out = append(out, link)
		}
	}
	return out
}

// insert adds a new note at the given sibling position (clamped),
// renumbers the affected siblings, and returns the ids of existing
// siblings whose position changed.
func (s *treeState) insert(n *note.Note, position int) []string {
	parent := n.ParentRef()
	ids := s.children[parent]
	position = clamp(position, 0, len(ids))

	ids = append(ids, "")
	copy(ids[position+1:], ids[position:])
	ids[position] = n.ID
	s.children[parent] = ids

	s.notes[n.ID] = n
	s.index(n)

	changed := s.renumber(parent)
	return without(changed, n.ID)
}

// detach removes a note from its parent's sibling order, renumbers, and
// returns the ids of siblings whose position changed. The note itself
// stays in the state.
func (s *treeState) detach(id string) []string {
	n := s.notes[id]
	parent := n.ParentRef()
	ids := s.children[parent]
	for i, cid := range ids {
		if cid == id {
			s.children[parent] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return s.renumber(parent)
}

// remove deletes a note entirely and returns the renumbered sibling
// ids. The caller has already dealt with its children.
func (s *treeState) remove(id string) []string {
	n := s.notes[id]
	changed := s.detach(id)
	s.unindex(n)
	delete(s.children, id)
	delete(s.notes, id)
	return changed
}

// renumber restores the contiguous 0..n-1 position sequence under one
// parent ref and returns the ids whose Position changed.
func (s *treeState) renumber(parent string) []string {
	var changed []string
	for i, id := range s.children[parent] {
		if n := s.notes[id]; n.Position != i {
			n.Position = i
			changed = append(changed, id)
		}
	}
	return changed
}

// isDescendant reports whether id sits in the subtree rooted at
// ancestor (id == ancestor counts).
func (s *treeState) isDescendant(ancestor, id string) bool {
	for cur := id; cur != ""; {
		if cur == ancestor {
			return true
		}
		n, ok := s.notes[cur]
		if !ok {
			return false
		}
		cur = n.ParentRef()
	}
	return false
}

// subtree returns id and every descendant, parents before children.
func (s *treeState) subtree(id string) []string {
	out := []string{id}
	for i := 0; i < len(out); i++ {
		out = append(out, s.children[out[i]]...)
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
