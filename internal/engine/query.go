package engine

import (
	"fmt"
	"sort"

	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/schema"
)

// queryContext implements schema.QueryContext over either the committed
// state (m == nil: plain reads and read-only hooks) or one mutation
// unit's staged state (m != nil: on_save, on_add_child, tree actions).
// Write methods are live only in the staged form.
type queryContext struct {
	e *Engine
	m *mutation
}

var _ schema.QueryContext = (*queryContext)(nil)

func (qc *queryContext) state() *treeState {
	if qc.m != nil {
		return qc.m.staged
	}
	return qc.e.state
}

// GetNote returns an independent snapshot; callers mutate it freely and
// nothing changes until the copy comes back through UpdateNote.
func (qc *queryContext) GetNote(id string) (*note.Note, error) {
	n, ok := qc.state().notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	return n.Clone(), nil
}

// GetChildren returns snapshots of a note's children ordered per the
// parent type's children_sort. Roots ("" parent) and parents without an
// active schema use stored positions.
func (qc *queryContext) GetChildren(id string) ([]*note.Note, error) {
	s := qc.state()
	mode := schema.SortManual
	if id != "" {
		parent, ok := s.notes[id]
		if !ok {
			return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
		}
		if ps := qc.e.schemaFor(parent.TypeName); ps != nil {
			mode = ps.ChildrenSort
		}
	}

	ids := s.children[id]
	out := make([]*note.Note, 0, len(ids))
	for _, cid := range ids {
		out = append(out, s.notes[cid].Clone())
	}

	// Stored position order is the tiebreak for equal titles.
	switch mode {
	case schema.SortAscending:
		sort.SliceStable(out, func(i, j int) bool {
			return qc.e.collator.CompareString(out[i].Title, out[j].Title) < 0
		})
	case schema.SortDescending:
		sort.SliceStable(out, func(i, j int) bool {
			return qc.e.collator.CompareString(out[i].Title, out[j].Title) > 0
		})
	}
	return out, nil
}

// GetNotesForTag returns snapshots of notes carrying any of the given
// tags, deduplicated, in a stable id order.
func (qc *queryContext) GetNotesForTag(tags ...string) []*note.Note {
	s := qc.state()
	seen := make(map[string]struct{})
	var ids []string
	for _, tag := range tags {
		for id := range s.tags[tag] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]*note.Note, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.notes[id].Clone())
	}
	return out
}

// GetNotesWithLink returns snapshots of notes holding a NoteLink field
// that references id, in a stable id order.
func (qc *queryContext) GetNotesWithLink(id string) []*note.Note {
	s := qc.state()
	ids := make([]string, 0, len(s.links[id]))
	for nid := range s.links[id] {
		ids = append(ids, nid)
	}
	sort.Strings(ids)
	out := make([]*note.Note, 0, len(ids))
	for _, nid := range ids {
		out = append(out, s.notes[nid].Clone())
	}
	return out
}

// CreateNote creates a note inside the enclosing unit. Read-only
// contexts reject it.
func (qc *queryContext) CreateNote(parentID *string, typeName string) (*note.Note, error) {
	if qc.m == nil {
		return nil, ErrReadOnly
	}
	parent := ""
	if parentID != nil {
		parent = *parentID
	}
	n, err := qc.e.createNoteIn(qc.m, parent, typeName)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// UpdateNote persists a modified snapshot inside the enclosing unit.
// Hooks are not re-run here: hook and action code writes exactly what
// it means to write, and a type whose on_save called UpdateNote on its
// own note would otherwise never terminate.
func (qc *queryContext) UpdateNote(n *note.Note) error {
	if qc.m == nil {
		return ErrReadOnly
	}
	_, err := qc.e.applyUpdate(qc.m, n, false)
	return err
}
