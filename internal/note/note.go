// Package note defines the record model owned by the tree engine.
package note

import (
	"time"

	"github.com/hollis-dev/loam/internal/field"
)

// Note is one hierarchical document node. The engine owns all Note
// values; other layers receive snapshots and hand back changes through
// engine operations, never by mutating shared state.
type Note struct {
	ID       string
	Title    string
	TypeName string

	// ParentID is nil for roots. Position is the zero-based index among
	// siblings; the engine keeps positions contiguous per parent.
	ParentID *string
	Position int

	CreatedAt  time.Time
	ModifiedAt time.Time
	CreatedBy  string // originating device id
	ModifiedBy string

	Fields map[string]field.Value
	Tags   []string
}

// Clone returns a deep copy. Field values are immutable variants, so a
// map copy is sufficient for them.
func (n *Note) Clone() *Note {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	c.Fields = make(map[string]field.Value, len(n.Fields))
	for k, v := range n.Fields {
		c.Fields[k] = v
	}
	c.Tags = append([]string(nil), n.Tags...)
	return &c
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LinksTo reports whether any NoteLink field references the given id.
func (n *Note) LinksTo(id string) bool {
	for _, v := range n.Fields {
		if link, ok := v.(field.NoteLink); ok && link.NoteID == id {
			return true
		}
	}
	return false
}

// ParentRef returns the parent id or "" for roots. Convenience for
// storage and log payloads that use empty-string sentinels.
func (n *Note) ParentRef() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Ref builds a *string parent reference from an empty-string sentinel.
func Ref(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
