package engine

import (
	"fmt"
	"sort"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/markup"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/schema"
)

// RenderView produces a note's display markup: the type's on_view hook
// when one is declared, the default tabular view otherwise. The hook
// sees a read-only query context; a write attempt fails the render.
func (e *Engine) RenderView(id string) (string, error) {
	n, ok := e.state.notes[id]
	if !ok {
		return "", fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	s := e.schemaFor(n.TypeName)
	if s != nil && s.Hooks.OnView != nil {
		out, err := s.Hooks.OnView(&queryContext{e: e}, n.Clone())
		if err != nil {
			return "", hookError(s, "on_view", err)
		}
		return out, nil
	}
	return e.defaultView(s, n)
}

// RenderHover produces a note's hover preview: the on_hover hook when
// declared, otherwise the title plus the fields flagged show_on_hover.
// A type with neither produces no preview at all.
func (e *Engine) RenderHover(id string) (string, error) {
	n, ok := e.state.notes[id]
	if !ok {
		return "", fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	s := e.schemaFor(n.TypeName)
	if s != nil && s.Hooks.OnHover != nil {
		out, err := s.Hooks.OnHover(&queryContext{e: e}, n.Clone())
		if err != nil {
			return "", hookError(s, "on_hover", err)
		}
		return out, nil
	}
	return e.defaultHover(s, n)
}

// defaultView renders the title as a heading, the viewable non-zero
// fields as a table, and the tag set. Fields follow declaration order;
// notes without an active schema show every stored field in name order.
func (e *Engine) defaultView(s *schema.Schema, n *note.Note) (string, error) {
	var fragments []string
	if s == nil || s.TitleCanView {
		fragments = append(fragments, markup.Heading(1, n.Title))
	}

	rows, err := e.fieldRows(s, n, func(def schema.FieldDef) bool { return def.CanView })
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		fragments = append(fragments, markup.Table(rows))
	}

	fragments = append(fragments, markup.RenderTags(n.Tags))
	return markup.Stack(fragments...), nil
}

// defaultHover renders the title plus the fields flagged show_on_hover.
// A type with no hover hook and no flagged fields produces no tooltip,
// and neither does a legacy note whose schema is gone.
func (e *Engine) defaultHover(s *schema.Schema, n *note.Note) (string, error) {
	if s == nil || !hasHoverFields(s) {
		return "", nil
	}
	fragments := []string{markup.Heading(2, n.Title)}
	rows, err := e.fieldRows(s, n, func(def schema.FieldDef) bool { return def.ShowOnHover })
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		fragments = append(fragments, markup.Table(rows))
	}
	return markup.Stack(fragments...), nil
}

func hasHoverFields(s *schema.Schema) bool {
	for _, def := range s.Fields {
		if def.ShowOnHover {
			return true
		}
	}
	return false
}

// fieldRows builds table rows for the fields passing the include filter,
// skipping zero values. Textarea fields render their markdown; note_link
// fields render a link labelled with the target's title.
func (e *Engine) fieldRows(s *schema.Schema, n *note.Note, include func(schema.FieldDef) bool) ([]markup.Row, error) {
	var rows []markup.Row
	appendRow := func(name string, t field.Type, v field.Value) error {
		if v == nil || v.IsZero() {
			return nil
		}
		rendered, err := e.renderValue(t, v)
		if err != nil {
			return err
		}
		rows = append(rows, markup.Row{Label: name, Value: rendered})
		return nil
	}

	if s != nil {
		for _, def := range s.Fields {
			if !include(def) {
				continue
			}
			if err := appendRow(def.Name, def.Type, n.Fields[def.Name]); err != nil {
				return nil, err
			}
		}
		return rows, nil
	}

	for _, name := range sortedFieldNames(n.Fields) {
		v := n.Fields[name]
		if err := appendRow(name, declaredTypeFor(v), v); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *Engine) renderValue(t field.Type, v field.Value) (string, error) {
	switch t {
	case field.TypeTextarea:
		return markup.Markdown(field.Display(v))
	case field.TypeNoteLink:
		id, _ := linkValue(v)
		label := id
		if target, ok := e.state.notes[id]; ok {
			label = target.Title
		}
		return markup.LinkTo(id, label), nil
	default:
		return markup.Escape(field.Display(v)), nil
	}
}

// declaredTypeFor maps a stored variant back to a plausible declared
// type, for rendering legacy notes whose schema is gone.
func declaredTypeFor(v field.Value) field.Type {
	switch v.Kind() {
	case field.KindNumber:
		return field.TypeNumber
	case field.KindBool:
		return field.TypeBoolean
	case field.KindDate:
		return field.TypeDate
	case field.KindEmail:
		return field.TypeEmail
	case field.KindNoteLink:
		return field.TypeNoteLink
	default:
		return field.TypeText
	}
}

func sortedFieldNames(fields map[string]field.Value) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
