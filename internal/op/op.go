// Package op defines the immutable operation records appended to the
// document's log. Every successful mutation produces one or more of
// these before its transaction commits; they carry enough payload to
// replay the mutation and are the unit of any future sync transport.
package op

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates operation records.
type Type string

const (
	TypeCreateNote  Type = "create_note"
	TypeUpdateField Type = "update_field"
	TypeDeleteNote  Type = "delete_note"
	TypeMoveNote    Type = "move_note"

	TypeCreateUserScript Type = "create_user_script"
	TypeUpdateUserScript Type = "update_user_script"
	TypeDeleteUserScript Type = "delete_user_script"
)

// Operation is one logged mutation. Immutable once written; only ever
// deleted in bulk by a purge strategy.
type Operation struct {
	OperationID string          `json:"operation_id"` // uuid
	Timestamp   time.Time       `json:"timestamp"`
	DeviceID    string          `json:"device_id"`
	Type        Type            `json:"operation_type"`
	Payload     json.RawMessage `json:"payload"`

	// Synced is reserved for a future sync transport. Nothing sets it
	// true today.
	Synced bool `json:"synced"`
}

// CreateNotePayload replays a note creation, including the post-hook
// snapshot of title, fields, and tags.
type CreateNotePayload struct {
	NoteID   string          `json:"note_id"`
	ParentID string          `json:"parent_id,omitempty"` // "" for roots
	TypeName string          `json:"type_name"`
	Title    string          `json:"title"`
	Position int             `json:"position"`
	Fields   json.RawMessage `json:"fields"` // field.MarshalMap output
	Tags     []string        `json:"tags,omitempty"`
}

// UpdateFieldPayload records one logically changed field. Title changes
// use the reserved field name "title" with a plain string value.
type UpdateFieldPayload struct {
	NoteID string          `json:"note_id"`
	Field  string          `json:"field"`
	Value  json.RawMessage `json:"value"` // tagged field value, or JSON string for title
}

// TitleField and TagsField are the reserved field names under which
// title and tag-set changes are logged.
const (
	TitleField = "title"
	TagsField  = "tags"
)

// DeleteNotePayload records one removed note.
type DeleteNotePayload struct {
	NoteID string `json:"note_id"`
}

// MoveNotePayload records a reparent and/or reposition.
type MoveNotePayload struct {
	NoteID   string `json:"note_id"`
	ParentID string `json:"parent_id,omitempty"` // "" for roots
	Position int    `json:"position"`
}

// ScriptPayload covers the three script CRUD operation types.
type ScriptPayload struct {
	ScriptID string `json:"script_id"`
	Name     string `json:"name,omitempty"`
}

// New assembles an operation with a marshalled payload.
func New(id string, ts time.Time, deviceID string, t Type, payload any) (Operation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Operation{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Operation{
		OperationID: id,
		Timestamp:   ts,
		DeviceID:    deviceID,
		Type:        t,
		Payload:     raw,
	}, nil
}

// DecodePayload unmarshals the payload into dst.
func (o Operation) DecodePayload(dst any) error {
	if err := json.Unmarshal(o.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", o.Type, err)
	}
	return nil
}
