package script

import (
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
)

// noteValue builds the JS representation of a note: a native object so
// scripts can freely set properties and push onto tags.
func (l *loader) noteValue(n *note.Note) *goja.Object {
	obj := l.rt.NewObject()
	obj.Set("id", n.ID)
	obj.Set("title", n.Title)
	obj.Set("type", n.TypeName)
	if n.ParentID != nil {
		obj.Set("parent_id", *n.ParentID)
	} else {
		obj.Set("parent_id", goja.Null())
	}
	obj.Set("position", n.Position)
	obj.Set("created_at", n.CreatedAt.Format(time.RFC3339))
	obj.Set("modified_at", n.ModifiedAt.Format(time.RFC3339))

	tags := make([]any, len(n.Tags))
	for i, t := range n.Tags {
		tags[i] = t
	}
	obj.Set("tags", l.rt.NewArray(tags...))

	fields := l.rt.NewObject()
	for name, v := range n.Fields {
		fields.Set(name, l.rt.ToValue(field.Export(v)))
	}
	obj.Set("fields", fields)
	return obj
}

func (l *loader) noteArray(notes []*note.Note) goja.Value {
	items := make([]any, len(notes))
	for i, n := range notes {
		items[i] = l.noteValue(n)
	}
	return l.rt.NewArray(items...)
}

// mergeNote reads the editable surface (title, tags, fields) back off a
// JS note object. Field values are re-tagged from the declared schema
// types; a null field clears it. For notes whose type has no active
// schema the variant is inferred from the host value.
func (l *loader) mergeNote(obj *goja.Object, n *note.Note) error {
	if v := obj.Get("title"); isSet(v) {
		n.Title = v.String()
	}

	if v := obj.Get("tags"); isSet(v) {
		raw, ok := v.Export().([]any)
		if !ok {
			return fmt.Errorf("tags must be an array")
		}
		tags := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("tags must be strings, got %T", item)
			}
			tags = append(tags, s)
		}
		n.Tags = tags
	}

	v := obj.Get("fields")
	if !isSet(v) {
		return nil
	}
	raw, ok := v.Export().(map[string]any)
	if !ok {
		return fmt.Errorf("fields must be an object")
	}

	s, _ := l.reg.Lookup(n.TypeName)
	fields := make(map[string]field.Value, len(raw))
	for name, hostVal := range raw {
		if hostVal == nil {
			continue // null clears the field
		}
		var fv field.Value
		var err error
		if s != nil {
			def, declared := s.FieldDef(name)
			if !declared {
				return fmt.Errorf("field %q not declared for type %q", name, n.TypeName)
			}
			fv, err = field.Coerce(def.Type, hostVal)
		} else {
			fv, err = inferValue(hostVal)
		}
		if err != nil {
			return err
		}
		fields[name] = fv
	}
	n.Fields = fields
	return nil
}

// inferValue picks a variant from the host value's shape, for legacy
// notes whose schema is gone.
func inferValue(hostVal any) (field.Value, error) {
	switch v := hostVal.(type) {
	case string:
		return field.Text(v), nil
	case bool:
		return field.Bool(v), nil
	case float64:
		return field.Number(v), nil
	case int64:
		return field.Number(float64(v)), nil
	case int:
		return field.Number(float64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported field value %T", hostVal)
	}
}
