package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/loam/internal/field"
)

func validSchema(typeName, scriptName string) *Schema {
	return &Schema{
		TypeName:     typeName,
		ScriptName:   scriptName,
		ChildrenSort: SortManual,
		TitleCanView: true,
		TitleCanEdit: true,
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validSchema("task", "tasks.js")))

	s, ok := r.Lookup("task")
	require.True(t, ok)
	assert.Equal(t, "task", s.TypeName)

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegistry_Collision_FirstRegistrationWins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validSchema("task", "first.js")))

	err := r.Register(validSchema("task", "second.js"))
	require.Error(t, err)

	var collision *SchemaCollision
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "task", collision.TypeName)
	assert.Equal(t, "first.js", collision.ExistingScript)
	assert.Equal(t, "second.js", collision.ConflictingScript)

	// The first registration stays active.
	s, ok := r.Lookup("task")
	require.True(t, ok)
	assert.Equal(t, "first.js", s.ScriptName)
}

func TestRegistry_Types_Sorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validSchema("task", "a.js")))
	require.NoError(t, r.Register(validSchema("contact", "a.js")))
	require.NoError(t, r.Register(validSchema("project", "b.js")))

	assert.Equal(t, []string{"contact", "project", "task"}, r.Types())
}

func TestRegistry_ActionLabels(t *testing.T) {
	r := NewRegistry()
	r.RegisterAction("task", TreeAction{Label: "Archive"})
	r.RegisterAction("task", TreeAction{Label: "Split"})
	r.RegisterAction("project", TreeAction{Label: "Close"})

	labels := r.ActionLabels()
	assert.Equal(t, []string{"Archive", "Split"}, labels["task"])
	assert.Equal(t, []string{"Close"}, labels["project"])
}

func TestFieldDef_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     FieldDef
		wantErr string
	}{
		{"valid text", FieldDef{Name: "name", Type: field.TypeText}, ""},
		{"missing name", FieldDef{Type: field.TypeText}, "Name"},
		{"unknown type", FieldDef{Name: "x", Type: "blob"}, "unknown type"},
		{"select without options", FieldDef{Name: "status", Type: field.TypeSelect}, "requires options"},
		{"rating without max", FieldDef{Name: "stars", Type: field.TypeRating}, "max >= 1"},
		{
			"valid select",
			FieldDef{Name: "status", Type: field.TypeSelect, Options: []string{"TODO", "DONE"}},
			"",
		},
		{"valid rating", FieldDef{Name: "stars", Type: field.TypeRating, Max: 5}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	s := validSchema("task", "a.js")
	s.Fields = []FieldDef{
		{Name: "name", Type: field.TypeText},
		{Name: "name", Type: field.TypeText},
	}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field")

	s = validSchema("task", "a.js")
	s.ChildrenSort = "random"
	require.Error(t, s.Validate())
}

func TestSchema_PlacementSets(t *testing.T) {
	s := validSchema("step", "a.js")
	s.AllowedParentTypes = []string{"recipe"}
	s.AllowedChildrenTypes = []string{"substep"}

	assert.True(t, s.AllowsParent("recipe"))
	assert.False(t, s.AllowsParent("note"))
	assert.True(t, s.AllowsChild("substep"))
	assert.False(t, s.AllowsChild("task"))

	// Empty sets allow everything.
	open := validSchema("note", "a.js")
	assert.True(t, open.AllowsParent("anything"))
	assert.True(t, open.AllowsChild("anything"))
}
