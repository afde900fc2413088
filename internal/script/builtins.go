package script

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/markup"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/schema"
)

func (l *loader) installBuiltins() {
	rt := l.rt

	// Registration.
	rt.Set("schema", l.builtinSchema)
	rt.Set("tree_action", l.builtinTreeAction)

	// Queries and writes, live only inside a hook or action invocation.
	rt.Set("get_note", func(id string) (goja.Value, error) {
		qc, err := l.context()
		if err != nil {
			return nil, err
		}
		n, err := qc.GetNote(id)
		if err != nil {
			return nil, err
		}
		return l.noteValue(n), nil
	})
	rt.Set("get_children", func(id string) (goja.Value, error) {
		qc, err := l.context()
		if err != nil {
			return nil, err
		}
		notes, err := qc.GetChildren(id)
		if err != nil {
			return nil, err
		}
		return l.noteArray(notes), nil
	})
	rt.Set("get_notes_for_tag", func(tags ...string) (goja.Value, error) {
		qc, err := l.context()
		if err != nil {
			return nil, err
		}
		return l.noteArray(qc.GetNotesForTag(tags...)), nil
	})
	rt.Set("get_notes_with_link", func(id string) (goja.Value, error) {
		qc, err := l.context()
		if err != nil {
			return nil, err
		}
		return l.noteArray(qc.GetNotesWithLink(id)), nil
	})
	rt.Set("create_note", func(parentID goja.Value, typeName string) (goja.Value, error) {
		qc, err := l.context()
		if err != nil {
			return nil, err
		}
		var ref *string
		if parentID != nil && !goja.IsNull(parentID) && !goja.IsUndefined(parentID) {
			ref = note.Ref(parentID.String())
		}
		n, err := qc.CreateNote(ref, typeName)
		if err != nil {
			return nil, err
		}
		return l.noteValue(n), nil
	})
	rt.Set("update_note", func(v goja.Value) error {
		qc, err := l.context()
		if err != nil {
			return err
		}
		obj := v.ToObject(l.rt)
		id := obj.Get("id").String()
		n, err := qc.GetNote(id)
		if err != nil {
			return err
		}
		if err := l.mergeNote(obj, n); err != nil {
			return err
		}
		return qc.UpdateNote(n)
	})

	// Display helpers, mirrored from the markup package.
	rt.Set("heading", markup.Heading)
	rt.Set("paragraph", markup.Paragraph)
	rt.Set("link_to", markup.LinkTo)
	rt.Set("markdown", markup.Markdown)
	rt.Set("render_tags", markup.RenderTags)
	rt.Set("field", markup.Field)
	rt.Set("escape", markup.Escape)
	rt.Set("stack", func(fragments ...string) string {
		return markup.Stack(fragments...)
	})
	rt.Set("table", func(rows []map[string]any) string {
		out := make([]markup.Row, 0, len(rows))
		for _, r := range rows {
			label, _ := r["label"].(string)
			value, _ := r["value"].(string)
			out = append(out, markup.Row{Label: label, Value: value})
		}
		return markup.Table(out)
	})
}

// builtinSchema registers a note type. Registration problems are
// collected rather than thrown so the rest of the script still runs.
func (l *loader) builtinSchema(typeName string, spec goja.Value) {
	s, err := l.parseSchema(typeName, spec)
	if err != nil {
		l.errs = append(l.errs, schema.ScriptError{
			ScriptName: l.current,
			Message:    fmt.Sprintf("schema %q: %v", typeName, err),
		})
		return
	}
	if err := l.reg.Register(s); err != nil {
		l.errs = append(l.errs, schema.ScriptError{
			ScriptName: l.current,
			Message:    err.Error(),
		})
	}
}

// builtinTreeAction registers a user-invokable action for a type.
func (l *loader) builtinTreeAction(typeName, label string, fn goja.Value) {
	run, ok := goja.AssertFunction(fn)
	if !ok {
		l.errs = append(l.errs, schema.ScriptError{
			ScriptName: l.current,
			Message:    fmt.Sprintf("tree_action %q for %q: third argument is not a function", label, typeName),
		})
		return
	}
	scriptName := l.current
	l.reg.RegisterAction(typeName, schema.TreeAction{
		Label: label,
		Run: func(qc schema.QueryContext, target *note.Note) error {
			return l.withContext(qc, func() error {
				_, err := run(goja.Undefined(), l.noteValue(target))
				if err != nil {
					return &schema.HookError{
						ScriptName: scriptName,
						Hook:       "tree_action",
						Message:    exMessage(err),
					}
				}
				return nil
			})
		},
	})
}

func (l *loader) parseSchema(typeName string, spec goja.Value) (*schema.Schema, error) {
	if spec == nil || goja.IsUndefined(spec) || goja.IsNull(spec) {
		return nil, fmt.Errorf("missing definition object")
	}
	obj := spec.ToObject(l.rt)

	s := &schema.Schema{
		TypeName:     typeName,
		ScriptName:   l.current,
		TitleCanView: true,
		TitleCanEdit: true,
		ChildrenSort: schema.SortManual,
	}

	if v := obj.Get("title"); isSet(v) {
		title, ok := v.Export().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("title must be an object")
		}
		s.TitleCanView = boolOr(title, "can_view", true)
		s.TitleCanEdit = boolOr(title, "can_edit", true)
	}
	if v := obj.Get("children_sort"); isSet(v) {
		s.ChildrenSort = schema.SortMode(v.String())
	}
	if v := obj.Get("allowed_parent_types"); isSet(v) {
		s.AllowedParentTypes = stringSlice(v.Export())
	}
	if v := obj.Get("allowed_children_types"); isSet(v) {
		s.AllowedChildrenTypes = stringSlice(v.Export())
	}

	if v := obj.Get("fields"); isSet(v) {
		raw, ok := v.Export().([]any)
		if !ok {
			return nil, fmt.Errorf("fields must be an array")
		}
		for i, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("fields[%d] must be an object", i)
			}
			def, err := parseFieldDef(m)
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, def)
		}
	}

	scriptName := l.current
	if fn, ok := goja.AssertFunction(obj.Get("on_save")); ok {
		s.Hooks.OnSave = l.saveHook(scriptName, fn)
	}
	if fn, ok := goja.AssertFunction(obj.Get("on_view")); ok {
		s.Hooks.OnView = l.renderHook(scriptName, "on_view", fn)
	}
	if fn, ok := goja.AssertFunction(obj.Get("on_hover")); ok {
		s.Hooks.OnHover = l.renderHook(scriptName, "on_hover", fn)
	}
	if fn, ok := goja.AssertFunction(obj.Get("on_add_child")); ok {
		s.Hooks.OnAddChild = l.addChildHook(scriptName, fn)
	}
	return s, nil
}

func parseFieldDef(m map[string]any) (schema.FieldDef, error) {
	name, _ := m["name"].(string)
	typeName, _ := m["type"].(string)
	def := schema.FieldDef{
		Name:        name,
		Type:        field.Type(typeName),
		Required:    boolOr(m, "required", false),
		CanView:     boolOr(m, "can_view", true),
		CanEdit:     boolOr(m, "can_edit", true),
		ShowOnHover: boolOr(m, "show_on_hover", false),
	}
	if v, ok := m["options"]; ok {
		def.Options = stringSlice(v)
	}
	if v, ok := m["max"]; ok {
		def.Max = intValue(v)
	}
	if v, ok := m["target_type"].(string); ok {
		def.TargetType = v
	}
	if err := def.Validate(); err != nil {
		return schema.FieldDef{}, err
	}
	return def, nil
}

// saveHook wraps a JS on_save callable. The note object is handed to
// the script, and whatever the script left on it is merged back.
func (l *loader) saveHook(scriptName string, fn goja.Callable) func(schema.QueryContext, *note.Note) error {
	return func(qc schema.QueryContext, n *note.Note) error {
		return l.withContext(qc, func() error {
			obj := l.noteValue(n)
			if _, err := fn(goja.Undefined(), obj); err != nil {
				return &schema.HookError{ScriptName: scriptName, Hook: "on_save", Message: exMessage(err)}
			}
			if err := l.mergeNote(obj.ToObject(l.rt), n); err != nil {
				return &schema.HookError{ScriptName: scriptName, Hook: "on_save", Message: err.Error()}
			}
			return nil
		})
	}
}

// renderHook wraps a JS on_view or on_hover callable. The hook must
// return markup; undefined is an error, not a fallback.
func (l *loader) renderHook(scriptName, hook string, fn goja.Callable) func(schema.QueryContext, *note.Note) (string, error) {
	return func(qc schema.QueryContext, n *note.Note) (string, error) {
		var out string
		err := l.withContext(qc, func() error {
			res, err := fn(goja.Undefined(), l.noteValue(n))
			if err != nil {
				return &schema.HookError{ScriptName: scriptName, Hook: hook, Message: exMessage(err)}
			}
			if goja.IsUndefined(res) || goja.IsNull(res) {
				return &schema.HookError{ScriptName: scriptName, Hook: hook, Message: "hook returned no content"}
			}
			out = res.String()
			return nil
		})
		return out, err
	}
}

// addChildHook wraps a JS on_add_child callable; both sides are merged
// back after the call.
func (l *loader) addChildHook(scriptName string, fn goja.Callable) func(schema.QueryContext, *note.Note, *note.Note) error {
	return func(qc schema.QueryContext, parent, child *note.Note) error {
		return l.withContext(qc, func() error {
			parentObj := l.noteValue(parent)
			childObj := l.noteValue(child)
			if _, err := fn(goja.Undefined(), parentObj, childObj); err != nil {
				return &schema.HookError{ScriptName: scriptName, Hook: "on_add_child", Message: exMessage(err)}
			}
			if err := l.mergeNote(parentObj.ToObject(l.rt), parent); err != nil {
				return &schema.HookError{ScriptName: scriptName, Hook: "on_add_child", Message: err.Error()}
			}
			if err := l.mergeNote(childObj.ToObject(l.rt), child); err != nil {
				return &schema.HookError{ScriptName: scriptName, Hook: "on_add_child", Message: err.Error()}
			}
			return nil
		})
	}
}

func isSet(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

func boolOr(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intValue(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
