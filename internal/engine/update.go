package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/op"
)

// UpdateNote persists a modified snapshot of a note: title, fields, and
// tags. Structural attributes (parent, position, type) are ignored;
// MoveNote owns placement. Runs on_save before persisting, then logs one
// update_field record per field that actually changed. An update that
// changes nothing applies nothing and logs nothing.
func (e *Engine) UpdateNote(ctx context.Context, n *note.Note) (*note.Note, error) {
	m, err := e.begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	updated, err := e.applyUpdate(m, n, true)
	if err := m.finish(err); err != nil {
		return nil, err
	}
	slog.Info("note updated", "id", updated.ID)
	return updated.Clone(), nil
}

// applyUpdate is the shared core behind Engine.UpdateNote and the query
// context's UpdateNote. runHooks selects whether on_save fires; hook and
// action writes come through with it off.
func (e *Engine) applyUpdate(m *mutation, snapshot *note.Note, runHooks bool) (*note.Note, error) {
	prior, ok := m.staged.notes[snapshot.ID]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", snapshot.ID, ErrNotFound)
	}

	// Carry the caller's editable surface onto a fresh copy of the
	// stored record, so a stale snapshot cannot move or retype the note.
	n := prior.Clone()
	n.Title = snapshot.Title
	n.Tags = append([]string(nil), snapshot.Tags...)
	n.Fields = make(map[string]field.Value, len(snapshot.Fields))
	for name, v := range snapshot.Fields {
		n.Fields[name] = v
	}

	if runHooks {
		if err := e.runSave(m, e.schemaFor(n.TypeName), n); err != nil {
			return nil, err
		}
	}
	if err := e.validateFields(n); err != nil {
		return nil, err
	}

	changes, err := diffNote(prior, n)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return prior, nil
	}

	n.ModifiedAt = e.now()
	n.ModifiedBy = e.deviceID
	if err := m.updateNote(n); err != nil {
		return nil, err
	}
	for _, c := range changes {
		if err := m.append(op.TypeUpdateField, op.UpdateFieldPayload{
			NoteID: n.ID,
			Field:  c.name,
			Value:  c.value,
		}); err != nil {
			return nil, err
		}
	}
	return n, nil
}

type fieldChange struct {
	name  string
	value json.RawMessage
}

// diffNote computes the logical field changes between two versions of a
// note: title, each added, changed, or cleared field, and the tag set.
// Cleared fields log a JSON null. Field names sort for a deterministic
// log order; title and tags, when changed, lead.
func diffNote(prior, next *note.Note) ([]fieldChange, error) {
	var changes []fieldChange

	if prior.Title != next.Title {
		raw, err := json.Marshal(next.Title)
		if err != nil {
			return nil, err
		}
		changes = append(changes, fieldChange{name: op.TitleField, value: raw})
	}

	if !equalStrings(prior.Tags, next.Tags) {
		raw, err := json.Marshal(next.Tags)
		if err != nil {
			return nil, err
		}
		changes = append(changes, fieldChange{name: op.TagsField, value: raw})
	}

	names := make(map[string]struct{}, len(prior.Fields)+len(next.Fields))
	for name := range prior.Fields {
		names[name] = struct{}{}
	}
	for name := range next.Fields {
		names[name] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	for _, name := range ordered {
		before, hadBefore := prior.Fields[name]
		after, hasAfter := next.Fields[name]
		switch {
		case hadBefore && !hasAfter:
			changes = append(changes, fieldChange{name: name, value: json.RawMessage("null")})
		case !hadBefore || !field.Equal(before, after):
			raw, err := field.Marshal(after)
			if err != nil {
				return nil, err
			}
			changes = append(changes, fieldChange{name: name, value: raw})
		}
	}
	return changes, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
