package note

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/loam/internal/field"
)

func TestClone_IsDeep(t *testing.T) {
	parent := "p-1"
	n := &Note{
		ID:       "n-1",
		Title:    "original",
		TypeName: "task",
		ParentID: &parent,
		Fields: map[string]field.Value{
			"name": field.Text("a"),
		},
		Tags: []string{"inbox"},
	}

	c := n.Clone()
	c.Title = "changed"
	c.Fields["name"] = field.Text("b")
	c.Tags[0] = "done"
	*c.ParentID = "p-2"

	assert.Equal(t, "original", n.Title)
	assert.Equal(t, field.Text("a"), n.Fields["name"])
	assert.Equal(t, "inbox", n.Tags[0])
	assert.Equal(t, "p-1", *n.ParentID)
}

func TestLinksTo(t *testing.T) {
	n := &Note{
		Fields: map[string]field.Value{
			"project": field.NoteLink{NoteID: "n-9"},
			"name":    field.Text("n-9"), // text mentioning an id is not a link
		},
	}

	assert.True(t, n.LinksTo("n-9"))
	assert.False(t, n.LinksTo("n-8"))
}

func TestRef_RoundTrip(t *testing.T) {
	require.Nil(t, Ref(""))

	r := Ref("n-1")
	require.NotNil(t, r)
	assert.Equal(t, "n-1", *r)

	n := &Note{ParentID: r}
	assert.Equal(t, "n-1", n.ParentRef())
	assert.Equal(t, "", (&Note{}).ParentRef())
}
