package schema

import (
	"log/slog"
	"sort"
)

// Registry holds the active schemas and tree actions. A registry is
// built once per script load and replaced wholesale on any script
// change; it is never mutated while engine calls are in flight (the
// document handle serialises rebuilds against other calls).
type Registry struct {
	schemas map[string]*Schema
	actions map[string][]TreeAction // type name -> declared actions in order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
		actions: make(map[string][]TreeAction),
	}
}

// Register adds a schema. Returns *SchemaCollision if the type name is
// already taken; the existing registration remains active.
func (r *Registry) Register(s *Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if existing, ok := r.schemas[s.TypeName]; ok {
		return &SchemaCollision{
			TypeName:          s.TypeName,
			ExistingScript:    existing.ScriptName,
			ConflictingScript: s.ScriptName,
		}
	}
	r.schemas[s.TypeName] = s
	slog.Debug("schema registered", "type", s.TypeName, "script", s.ScriptName)
	return nil
}

// RegisterAction binds a tree action to a type name. Actions registered
// for a type that never gets a schema are unreachable but harmless; the
// whole registry is rebuilt on the next script change anyway.
func (r *Registry) RegisterAction(typeName string, a TreeAction) {
	r.actions[typeName] = append(r.actions[typeName], a)
}

// Lookup returns the schema for a type name.
func (r *Registry) Lookup(typeName string) (*Schema, bool) {
	s, ok := r.schemas[typeName]
	return s, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Actions returns the tree actions declared for a type, in declaration
// order.
func (r *Registry) Actions(typeName string) []TreeAction {
	return r.actions[typeName]
}

// ActionLabels returns the active mapping of type name to available
// action labels, for the presentation layer to surface.
func (r *Registry) ActionLabels() map[string][]string {
	out := make(map[string][]string, len(r.actions))
	for typeName, acts := range r.actions {
		labels := make([]string, len(acts))
		for i, a := range acts {
			labels[i] = a.Label
		}
		out[typeName] = labels
	}
	return out
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.schemas)
}
