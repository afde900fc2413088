package field

import "fmt"

// Type is a schema-declared field type. Several declared types share a
// storage variant: textarea and select store Text, rating stores Number.
type Type string

const (
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeNumber   Type = "number"
	TypeBoolean  Type = "boolean"
	TypeDate     Type = "date"
	TypeEmail    Type = "email"
	TypeSelect   Type = "select"
	TypeRating   Type = "rating"
	TypeNoteLink Type = "note_link"
)

// ValidTypes lists every declarable field type.
var ValidTypes = []Type{
	TypeText, TypeTextarea, TypeNumber, TypeBoolean, TypeDate,
	TypeEmail, TypeSelect, TypeRating, TypeNoteLink,
}

// IsValidType reports whether t is a declarable field type.
func IsValidType(t Type) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// KindFor returns the storage variant used by a declared type.
func KindFor(t Type) Kind {
	switch t {
	case TypeText, TypeTextarea, TypeSelect:
		return KindText
	case TypeNumber, TypeRating:
		return KindNumber
	case TypeBoolean:
		return KindBool
	case TypeDate:
		return KindDate
	case TypeEmail:
		return KindEmail
	case TypeNoteLink:
		return KindNoteLink
	default:
		return KindText
	}
}

// Match reports whether a value's variant is the one the declared type
// requires. The engine rejects mismatches rather than coercing.
func Match(t Type, v Value) bool {
	if v == nil {
		return false
	}
	return v.Kind() == KindFor(t)
}

// Coerce converts an untyped host value (as produced by the script
// runtime) into the Value variant declared by t. Returns an error when
// the host value cannot represent the declared type.
func Coerce(t Type, raw any) (Value, error) {
	switch KindFor(t) {
	case KindText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s field wants a string, got %T", t, raw)
		}
		return Text(s), nil

	case KindNumber:
		switch n := raw.(type) {
		case float64:
			return Number(n), nil
		case int64:
			return Number(float64(n)), nil
		case int:
			return Number(float64(n)), nil
		default:
			return nil, fmt.Errorf("%s field wants a number, got %T", t, raw)
		}

	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%s field wants a boolean, got %T", t, raw)
		}
		return Bool(b), nil

	case KindDate:
		if raw == nil {
			return Date{}, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s field wants an ISO date string, got %T", t, raw)
		}
		return ParseDate(s)

	case KindEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s field wants a string, got %T", t, raw)
		}
		return Email(s), nil

	case KindNoteLink:
		if raw == nil {
			return NoteLink{}, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s field wants a note id string, got %T", t, raw)
		}
		return NoteLink{NoteID: s}, nil

	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

// Export converts a Value into the plain host representation handed to
// script code: strings, floats, bools, or nil for unset date/link.
func Export(v Value) any {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Date:
		if val.ISO == "" {
			return nil
		}
		return val.ISO
	case Email:
		return string(val)
	case NoteLink:
		if val.NoteID == "" {
			return nil
		}
		return val.NoteID
	default:
		return nil
	}
}
