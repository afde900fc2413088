// Package schema holds the runtime-registered definitions of note types:
// field lists, visibility flags, placement constraints, sort modes, and
// the lifecycle hooks scripts attach at registration time.
//
// Hooks live directly on the Schema record. They are captured as
// closures when the owning script registers the type, so there is never
// a separate hook table and never any ambiguity about which script's
// hook fires for a type.
package schema

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
)

// SortMode controls the ordering GetChildren applies for a type's children.
type SortMode string

const (
	SortAscending  SortMode = "asc"  // ascending by title
	SortDescending SortMode = "desc" // descending by title
	SortManual     SortMode = "none" // stored sibling positions
)

// FieldDef declares one field of a note type.
type FieldDef struct {
	Name     string
	Type     field.Type
	Required bool
	CanView  bool
	CanEdit  bool

	// Options lists the choices of a select field.
	Options []string
	// Max is the upper bound of a rating field.
	Max int
	// TargetType restricts what a note_link field may point at ("" = any).
	TargetType string
	// ShowOnHover marks the field for inclusion in the hover preview.
	ShowOnHover bool
}

// Validate checks structural soundness of a field definition.
func (f FieldDef) Validate() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Type, validation.Required),
	); err != nil {
		return err
	}
	if !field.IsValidType(f.Type) {
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
	if f.Type == field.TypeSelect && len(f.Options) == 0 {
		return fmt.Errorf("field %q: select requires options", f.Name)
	}
	if f.Type == field.TypeRating && f.Max < 1 {
		return fmt.Errorf("field %q: rating requires max >= 1", f.Name)
	}
	return nil
}

// QueryContext is the read/write façade handed to hook and tree-action
// code for the duration of one invocation. Reads always work; the write
// methods are live only inside tree actions and return an error
// everywhere else. Writes issued through one context are read-your-writes
// consistent and commit or roll back as a single unit.
type QueryContext interface {
	GetNote(id string) (*note.Note, error)
	GetChildren(id string) ([]*note.Note, error)
	// GetNotesForTag returns notes carrying any of the given tags
	// (OR semantics), deduplicated.
	GetNotesForTag(tags ...string) []*note.Note
	// GetNotesWithLink returns notes with a NoteLink field referencing id.
	GetNotesWithLink(id string) []*note.Note

	CreateNote(parentID *string, typeName string) (*note.Note, error)
	UpdateNote(n *note.Note) error
}

// Hooks are the four lifecycle callbacks a script may bind to a type.
// Nil entries mean "not declared".
type Hooks struct {
	// OnSave runs before a create or update is persisted and may rewrite
	// the note's title and fields in place.
	OnSave func(qc QueryContext, n *note.Note) error
	// OnView renders the note's display markup.
	OnView func(qc QueryContext, n *note.Note) (string, error)
	// OnHover renders a lightweight preview.
	OnHover func(qc QueryContext, n *note.Note) (string, error)
	// OnAddChild runs when a note is created under or moved beneath a
	// parent, before the operation completes. It may mutate either side.
	OnAddChild func(qc QueryContext, parent, child *note.Note) error
}

// TreeAction is a script-registered, user-invokable operation bound to a
// note type.
type TreeAction struct {
	Label string
	Run   func(qc QueryContext, target *note.Note) error
}

// Schema is the runtime definition of one note type.
type Schema struct {
	TypeName   string
	ScriptName string // owning script, for diagnostics and collisions

	Fields []FieldDef // declaration order is preserved

	TitleCanView bool
	TitleCanEdit bool

	ChildrenSort SortMode

	// AllowedParentTypes / AllowedChildrenTypes are placement constraints.
	// Empty means unconstrained on that side.
	AllowedParentTypes   []string
	AllowedChildrenTypes []string

	Hooks Hooks
}

// Validate checks the schema declaration itself.
func (s *Schema) Validate() error {
	if err := validation.ValidateStruct(s,
		validation.Field(&s.TypeName, validation.Required),
	); err != nil {
		return err
	}
	switch s.ChildrenSort {
	case SortAscending, SortDescending, SortManual:
	default:
		return fmt.Errorf("type %q: unknown children_sort %q", s.TypeName, s.ChildrenSort)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("type %q: %w", s.TypeName, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("type %q: duplicate field %q", s.TypeName, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// FieldDef returns the definition for a field name, if declared.
func (s *Schema) FieldDef(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// AllowsParent reports whether this type may sit under parentType.
// An empty constraint set allows everything.
func (s *Schema) AllowsParent(parentType string) bool {
	if len(s.AllowedParentTypes) == 0 {
		return true
	}
	for _, t := range s.AllowedParentTypes {
		if t == parentType {
			return true
		}
	}
	return false
}

// AllowsChild reports whether childType may sit under this type.
func (s *Schema) AllowsChild(childType string) bool {
	if len(s.AllowedChildrenTypes) == 0 {
		return true
	}
	for _, t := range s.AllowedChildrenTypes {
		if t == childType {
			return true
		}
	}
	return false
}

// HoverFields returns the declared fields flagged show_on_hover.
func (s *Schema) HoverFields() []FieldDef {
	var out []FieldDef
	for _, f := range s.Fields {
		if f.ShowOnHover {
			out = append(out, f)
		}
	}
	return out
}
