package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/op"
	"github.com/hollis-dev/loam/internal/schema"
)

// CreateNote creates an empty note of the given type, optionally under
// a parent ("" makes a root). Runs on_add_child and on_save before the
// unit commits; the logged snapshot is taken after the hooks so it
// matches what was persisted.
func (e *Engine) CreateNote(ctx context.Context, parentID, typeName string) (*note.Note, error) {
	m, err := e.begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	n, err := e.createNoteIn(m, parentID, typeName)
	if err := m.finish(err); err != nil {
		return nil, err
	}
	slog.Info("note created", "id", n.ID, "type", typeName, "parent", parentID)
	return n.Clone(), nil
}

// createNoteIn is the staged core, shared with tree-action writes.
func (e *Engine) createNoteIn(m *mutation, parentID, typeName string) (*note.Note, error) {
	s := e.schemaFor(typeName)
	if s == nil {
		return nil, &UnknownTypeError{TypeName: typeName}
	}

	var parent *note.Note
	if parentID != "" {
		var ok bool
		parent, ok = m.staged.notes[parentID]
		if !ok {
			return nil, fmt.Errorf("parent note %s: %w", parentID, ErrNotFound)
		}
		if err := e.validatePlacement(typeName, parent); err != nil {
			return nil, err
		}
	}

	now := e.now()
	n := &note.Note{
		ID:         e.newID(),
		TypeName:   typeName,
		ParentID:   note.Ref(parentID),
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  e.deviceID,
		ModifiedBy: e.deviceID,
		Fields:     map[string]field.Value{},
	}

	position := len(m.staged.children[parentID])
	if err := m.insertNote(n, position); err != nil {
		return nil, err
	}

	// Hooks run against the staged note so their writes are visible to
	// query calls within the same unit.
	if parent != nil {
		if err := e.runAddChild(m, parent, n); err != nil {
			return nil, err
		}
		if err := m.updateNote(parent); err != nil {
			return nil, err
		}
	}
	if err := e.runSave(m, s, n); err != nil {
		return nil, err
	}
	if err := e.validateFields(n); err != nil {
		return nil, err
	}
	if err := m.updateNote(n); err != nil {
		return nil, err
	}

	// Log the post-hook snapshot, not the values the caller supplied.
	fieldsJSON, err := field.MarshalMap(n.Fields)
	if err != nil {
		return nil, err
	}
	if err := m.append(op.TypeCreateNote, op.CreateNotePayload{
		NoteID:   n.ID,
		ParentID: parentID,
		TypeName: typeName,
		Title:    n.Title,
		Position: n.Position,
		Fields:   fieldsJSON,
		Tags:     n.Tags,
	}); err != nil {
		return nil, err
	}

	return n, nil
}

// MoveNote reparents and/or repositions a note. A move whose
// destination equals the current location is a silent no-op: nothing is
// applied and nothing is logged.
func (e *Engine) MoveNote(ctx context.Context, id, newParentID string, newPosition int) error {
	n, ok := e.state.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}

	if newParentID != "" {
		target, ok := e.state.notes[newParentID]
		if !ok {
			return fmt.Errorf("target note %s: %w", newParentID, ErrNotFound)
		}
		if e.state.isDescendant(id, newParentID) {
			return &CycleError{NoteID: id, TargetID: newParentID}
		}
		if err := e.validatePlacement(n.TypeName, target); err != nil {
			return err
		}
	}

	// No-op detection against the committed state.
	if n.ParentRef() == newParentID {
		siblings := len(e.state.children[newParentID])
		if clamp(newPosition, 0, siblings-1) == n.Position {
			return nil
		}
	}

	m, err := e.begin(ctx)
	if err != nil {
		return classify(err)
	}
	err = e.moveNoteIn(m, id, newParentID, newPosition)
	if err := m.finish(err); err != nil {
		return err
	}
	slog.Info("note moved", "id", id, "parent", newParentID, "position", newPosition)
	return nil
}

func (e *Engine) moveNoteIn(m *mutation, id, newParentID string, newPosition int) error {
	n := m.staged.notes[id]
	reparented := n.ParentRef() != newParentID

	changed := m.staged.detach(id)
	if err := m.syncPlacements(changed); err != nil {
		return err
	}

	n.ParentID = note.Ref(newParentID)
	changed = m.staged.insert(n, newPosition)
	if err := m.syncPlacements(changed); err != nil {
		return err
	}
	if err := m.syncPlacement(id); err != nil {
		return err
	}

	// Becoming someone's child fires on_add_child, same as create.
	if reparented && newParentID != "" {
		parent := m.staged.notes[newParentID]
		if err := e.runAddChild(m, parent, n); err != nil {
			return err
		}
		if err := m.updateNote(parent); err != nil {
			return err
		}
		if err := m.updateNote(n); err != nil {
			return err
		}
	}

	return m.append(op.TypeMoveNote, op.MoveNotePayload{
		NoteID:   id,
		ParentID: newParentID,
		Position: n.Position,
	})
}

// DeleteStrategy selects what happens to a deleted note's children.
type DeleteStrategy string

const (
	// DeleteAll removes the note and its entire descendant subtree.
	DeleteAll DeleteStrategy = "all"
	// PromoteChildren reparents the note's direct children to its own
	// parent at the position the note occupied, then removes the note.
	PromoteChildren DeleteStrategy = "promote"
)

// DeleteResult reports everything a delete removed or structurally
// affected.
type DeleteResult struct {
	// DeletedIDs lists removed notes, children before parents.
	DeletedIDs []string
	// PromotedIDs lists the direct children reparented by
	// PromoteChildren, in their preserved order.
	PromotedIDs []string
}

// Count returns the number of removed or structurally affected notes.
func (r DeleteResult) Count() int {
	return len(r.DeletedIDs) + len(r.PromotedIDs)
}

// DeleteNote removes a note using the given strategy.
func (e *Engine) DeleteNote(ctx context.Context, id string, strategy DeleteStrategy) (DeleteResult, error) {
	if _, ok := e.state.notes[id]; !ok {
		return DeleteResult{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}

	m, err := e.begin(ctx)
	if err != nil {
		return DeleteResult{}, classify(err)
	}

	var result DeleteResult
	switch strategy {
	case DeleteAll:
		result, err = e.deleteSubtree(m, id)
	case PromoteChildren:
		result, err = e.deletePromote(m, id)
	default:
		err = fmt.Errorf("unknown delete strategy %q", strategy)
	}

	if err := m.finish(err); err != nil {
		return DeleteResult{}, err
	}
	slog.Info("note deleted", "id", id, "strategy", strategy, "affected", result.Count())
	return result, nil
}

func (e *Engine) deleteSubtree(m *mutation, id string) (DeleteResult, error) {
	ids := m.staged.subtree(id)

	// Children first, so no row ever references a deleted parent.
	var result DeleteResult
	for i := len(ids) - 1; i >= 0; i-- {
		if err := m.deleteNote(ids[i]); err != nil {
			return DeleteResult{}, err
		}
		if err := m.append(op.TypeDeleteNote, op.DeleteNotePayload{NoteID: ids[i]}); err != nil {
			return DeleteResult{}, err
		}
		result.DeletedIDs = append(result.DeletedIDs, ids[i])
	}
	return result, nil
}

func (e *Engine) deletePromote(m *mutation, id string) (DeleteResult, error) {
	n := m.staged.notes[id]
	parentRef := n.ParentRef()
	position := n.Position
	promoted := append([]string(nil), m.staged.children[id]...)

	// Insert the children just before the note, preserving their order;
	// removing the note afterwards leaves them at its former position.
	for i, childID := range promoted {
		child := m.staged.notes[childID]
		changed := m.staged.detach(childID)
		if err := m.syncPlacements(changed); err != nil {
			return DeleteResult{}, err
		}
		child.ParentID = note.Ref(parentRef)
		changed = m.staged.insert(child, position+i)
		if err := m.syncPlacements(changed); err != nil {
			return DeleteResult{}, err
		}
		if err := m.syncPlacement(childID); err != nil {
			return DeleteResult{}, err
		}
	}

	if err := m.deleteNote(id); err != nil {
		return DeleteResult{}, err
	}

	for _, childID := range promoted {
		child := m.staged.notes[childID]
		if err := m.append(op.TypeMoveNote, op.MoveNotePayload{
			NoteID:   childID,
			ParentID: parentRef,
			Position: child.Position,
		}); err != nil {
			return DeleteResult{}, err
		}
	}
	if err := m.append(op.TypeDeleteNote, op.DeleteNotePayload{NoteID: id}); err != nil {
		return DeleteResult{}, err
	}

	return DeleteResult{DeletedIDs: []string{id}, PromotedIDs: promoted}, nil
}

// CopyPlacement selects where a deep copy lands relative to the target.
type CopyPlacement string

const (
	CopyAsChild   CopyPlacement = "child"
	CopyAsSibling CopyPlacement = "sibling"
)

// DeepCopyNote clones the subtree rooted at sourceID with freshly
// generated identities throughout (titles, field values, and tags
// preserved, structure preserved) and inserts the clone as a child or
// sibling of targetID. The source subtree is untouched. Returns the new
// root id.
func (e *Engine) DeepCopyNote(ctx context.Context, sourceID, targetID string, placement CopyPlacement) (string, error) {
	source, ok := e.state.notes[sourceID]
	if !ok {
		return "", fmt.Errorf("source note %s: %w", sourceID, ErrNotFound)
	}
	target, ok := e.state.notes[targetID]
	if !ok {
		return "", fmt.Errorf("target note %s: %w", targetID, ErrNotFound)
	}

	var newParentID string
	var position int
	switch placement {
	case CopyAsChild:
		newParentID = target.ID
		position = len(e.state.children[target.ID])
	case CopyAsSibling:
		newParentID = target.ParentRef()
		position = target.Position + 1
	default:
		return "", fmt.Errorf("unknown copy placement %q", placement)
	}

	if newParentID != "" {
		if err := e.validatePlacement(source.TypeName, e.state.notes[newParentID]); err != nil {
			return "", err
		}
	}

	m, err := e.begin(ctx)
	if err != nil {
		return "", classify(err)
	}
	rootID, err := e.copySubtree(m, sourceID, newParentID, position)
	if err := m.finish(err); err != nil {
		return "", err
	}
	slog.Info("note copied", "source", sourceID, "root", rootID, "placement", placement)
	return rootID, nil
}

// copySubtree clones parent-first so every child row references an
// already-inserted clone parent.
func (e *Engine) copySubtree(m *mutation, sourceID, parentID string, position int) (string, error) {
	src := m.staged.notes[sourceID]

	clone := src.Clone()
	clone.ID = e.newID()
	clone.ParentID = note.Ref(parentID)
	now := e.now()
	clone.CreatedAt = now
	clone.ModifiedAt = now
	clone.CreatedBy = e.deviceID
	clone.ModifiedBy = e.deviceID

	if err := m.insertNote(clone, position); err != nil {
		return "", err
	}

	fieldsJSON, err := field.MarshalMap(clone.Fields)
	if err != nil {
		return "", err
	}
	if err := m.append(op.TypeCreateNote, op.CreateNotePayload{
		NoteID:   clone.ID,
		ParentID: parentID,
		TypeName: clone.TypeName,
		Title:    clone.Title,
		Position: clone.Position,
		Fields:   fieldsJSON,
		Tags:     clone.Tags,
	}); err != nil {
		return "", err
	}

	// Snapshot the source's child order before inserting clones; the
	// clone tree grows in the same staged state.
	childIDs := append([]string(nil), m.staged.children[sourceID]...)
	for i, childID := range childIDs {
		if _, err := e.copySubtree(m, childID, clone.ID, i); err != nil {
			return "", err
		}
	}

	return clone.ID, nil
}

// runSave invokes a type's on_save hook against the staged note.
func (e *Engine) runSave(m *mutation, s *schema.Schema, n *note.Note) error {
	if s == nil || s.Hooks.OnSave == nil {
		return nil
	}
	if err := s.Hooks.OnSave(m.queryContext(), n); err != nil {
		return hookError(s, "on_save", err)
	}
	return nil
}

// runAddChild invokes the parent type's on_add_child hook. Both sides
// are staged notes, so hook mutations land in the persisted snapshot.
func (e *Engine) runAddChild(m *mutation, parent, child *note.Note) error {
	s := e.schemaFor(parent.TypeName)
	if s == nil || s.Hooks.OnAddChild == nil {
		return nil
	}
	if err := s.Hooks.OnAddChild(m.queryContext(), parent, child); err != nil {
		return hookError(s, "on_add_child", err)
	}
	return nil
}

// hookError ensures a hook failure carries the owning script's name.
func hookError(s *schema.Schema, hook string, err error) error {
	var he *schema.HookError
	if errors.As(err, &he) {
		return err
	}
	return &schema.HookError{ScriptName: s.ScriptName, Hook: hook, Message: err.Error()}
}
