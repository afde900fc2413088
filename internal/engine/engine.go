package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/schema"
	"github.com/hollis-dev/loam/internal/store"
)

// SchemaHost is the capability interface the engine needs from the
// script layer: schema lookup and tree-action resolution. The engine
// never sees the interpreter's concrete types, so the interpreter can
// be swapped without touching engine logic.
type SchemaHost interface {
	Lookup(typeName string) (*schema.Schema, bool)
	Actions(typeName string) []schema.TreeAction
}

// Engine applies tree mutations to one open document.
//
// Every mutating call runs validate -> apply -> append-log -> commit,
// with automatic rollback of the entire unit on any failure at any
// stage. The document is never left with an applied mutation lacking
// its log entry, or vice versa.
//
// Thread-safety model: exactly one call may be in flight per engine.
// The document handle serialises callers with a mutex; the engine
// itself assumes single-threaded use and never blocks or yields
// mid-call. Engines of different documents share no mutable state.
type Engine struct {
	store    *store.Store
	host     SchemaHost
	deviceID string

	now   func() time.Time
	newID func() string

	collator *collate.Collator
	state    *treeState
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock. Used by tests and the scenario
// harness for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides note and operation id generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New loads the note tree from the store and returns a ready engine.
func New(ctx context.Context, s *store.Store, host SchemaHost, deviceID string, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    s,
		host:     host,
		deviceID: deviceID,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
		collator: collate.New(language.Und),
	}
	for _, opt := range opts {
		opt(e)
	}

	notes, err := s.LoadNotes(ctx)
	if err != nil {
		return nil, err
	}
	e.state = newTreeState(notes)

	slog.Info("engine ready", "notes", len(notes), "device", deviceID)
	return e, nil
}

// SetHost swaps the schema host after a script reload. The document
// handle calls this under its mutex; the swap is atomic relative to
// other engine calls.
func (e *Engine) SetHost(host SchemaHost) {
	e.host = host
}

// GetNote returns a snapshot of one note.
func (e *Engine) GetNote(id string) (*note.Note, error) {
	return (&queryContext{e: e}).GetNote(id)
}

// GetChildren returns snapshots of a note's children, ordered per the
// parent type's sort mode ("" lists the roots).
func (e *Engine) GetChildren(id string) ([]*note.Note, error) {
	return (&queryContext{e: e}).GetChildren(id)
}

// GetNotesForTag returns snapshots of notes carrying any given tag.
func (e *Engine) GetNotesForTag(tags ...string) []*note.Note {
	return (&queryContext{e: e}).GetNotesForTag(tags...)
}

// GetNotesWithLink returns snapshots of notes linking to id.
func (e *Engine) GetNotesWithLink(id string) []*note.Note {
	return (&queryContext{e: e}).GetNotesWithLink(id)
}

// schemaFor returns the active schema for a note, or nil for orphaned
// or legacy types. Orphaned notes are never matched against placement
// constraints.
func (e *Engine) schemaFor(typeName string) *schema.Schema {
	if s, ok := e.host.Lookup(typeName); ok {
		return s
	}
	return nil
}

// validatePlacement checks the schema placement constraints for putting
// a childType note under the given parent.
//
// The child's restriction wins on conflict: when the child declares an
// allowed-parent set, that set alone decides, even if the parent's
// allowed-children set would have said otherwise. Only a child with no
// declared parent constraint defers to the parent's children constraint.
func (e *Engine) validatePlacement(childType string, parent *note.Note) error {
	if parent == nil {
		return nil
	}

	childSchema := e.schemaFor(childType)
	parentSchema := e.schemaFor(parent.TypeName)

	if childSchema != nil && len(childSchema.AllowedParentTypes) > 0 {
		if !childSchema.AllowsParent(parent.TypeName) {
			return &ConstraintError{
				ChildType:  childType,
				ParentType: parent.TypeName,
				Reason:     "parent type not in allowed_parent_types",
			}
		}
		return nil
	}

	if parentSchema != nil && !parentSchema.AllowsChild(childType) {
		return &ConstraintError{
			ChildType:  childType,
			ParentType: parent.TypeName,
			Reason:     "child type not in allowed_children_types",
		}
	}
	return nil
}

// validateFields checks that every supplied field is declared by the
// schema and carries the declared variant. Notes whose type has no
// active schema are legacy data and skip validation entirely.
func (e *Engine) validateFields(n *note.Note) error {
	s := e.schemaFor(n.TypeName)
	if s == nil {
		return nil
	}
	for name, v := range n.Fields {
		def, ok := s.FieldDef(name)
		if !ok {
			return &ConstraintError{
				ChildType: n.TypeName,
				Reason:    "field " + name + " not declared by schema",
			}
		}
		if !field.Match(def.Type, v) {
			return &ConstraintError{
				ChildType: n.TypeName,
				Reason:    "field " + name + " value does not match declared type " + string(def.Type),
			}
		}
	}
	return nil
}

func linkValue(v field.Value) (string, bool) {
	link, ok := v.(field.NoteLink)
	if !ok {
		return "", false
	}
	return link.NoteID, true
}
