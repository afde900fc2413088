package field

import (
	"encoding/json"
	"fmt"
	"time"
)

// Value is a sealed interface over every scalar a note field can hold.
// Only Text, Number, Bool, Date, Email, and NoteLink implement it.
//
// Engine code switches over these variants exhaustively; there is no
// runtime coercion between variants. The variant stored under a field
// name must match the type the schema declared for that name.
type Value interface {
	fieldValue() // sealed
	Kind() Kind
	// IsZero reports whether the value carries no content (empty string,
	// unset date, unset link). The default tabular view omits zero values.
	IsZero() bool
}

// Kind identifies a Value variant on the wire.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindBool     Kind = "boolean"
	KindDate     Kind = "date"
	KindEmail    Kind = "email"
	KindNoteLink Kind = "note_link"
)

// DateLayout is the ISO date layout used for Date values.
const DateLayout = "2006-01-02"

// Text holds a free-form string. Also used for textarea and select fields.
type Text string

func (Text) fieldValue()     {}
func (Text) Kind() Kind      { return KindText }
func (v Text) IsZero() bool  { return v == "" }

// Number holds a float. Also used for rating fields.
type Number float64

func (Number) fieldValue()    {}
func (Number) Kind() Kind     { return KindNumber }
func (v Number) IsZero() bool { return false }

// Bool holds a boolean.
type Bool bool

func (Bool) fieldValue()    {}
func (Bool) Kind() Kind     { return KindBool }
func (v Bool) IsZero() bool { return false }

// Date holds an optional ISO calendar date. The zero Date is "unset".
type Date struct {
	// ISO is the date in DateLayout form, or "" when unset.
	ISO string
}

func (Date) fieldValue()    {}
func (Date) Kind() Kind     { return KindDate }
func (v Date) IsZero() bool { return v.ISO == "" }

// NewDate builds a Date from a time value, truncating to the calendar day.
func NewDate(t time.Time) Date {
	return Date{ISO: t.Format(DateLayout)}
}

// ParseDate validates an ISO date string. Empty input yields the unset Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{ISO: s}, nil
}

// Email holds an email address string.
type Email string

func (Email) fieldValue()    {}
func (Email) Kind() Kind     { return KindEmail }
func (v Email) IsZero() bool { return v == "" }

// NoteLink holds an optional reference to another note by id.
// The zero NoteLink is "unset".
type NoteLink struct {
	// NoteID is the referenced note id, or "" when unset.
	NoteID string
}

func (NoteLink) fieldValue()    {}
func (NoteLink) Kind() Kind     { return KindNoteLink }
func (v NoteLink) IsZero() bool { return v.NoteID == "" }

// wireValue is the tagged JSON envelope for a Value.
type wireValue struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Marshal encodes a Value as tagged JSON for storage and log payloads.
func Marshal(v Value) ([]byte, error) {
	var inner any
	switch val := v.(type) {
	case Text:
		inner = string(val)
	case Number:
		inner = float64(val)
	case Bool:
		inner = bool(val)
	case Date:
		if val.ISO == "" {
			inner = nil
		} else {
			inner = val.ISO
		}
	case Email:
		inner = string(val)
	case NoteLink:
		if val.NoteID == "" {
			inner = nil
		} else {
			inner = val.NoteID
		}
	default:
		return nil, fmt.Errorf("unknown field value type: %T", v)
	}

	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", v.Kind(), err)
	}
	return json.Marshal(wireValue{Kind: v.Kind(), Value: raw})
}

// Unmarshal decodes a tagged JSON envelope back into a Value.
func Unmarshal(data []byte) (Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal field value: %w", err)
	}

	switch w.Kind {
	case KindText:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("unmarshal text: %w", err)
		}
		return Text(s), nil

	case KindNumber:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return nil, fmt.Errorf("unmarshal number: %w", err)
		}
		return Number(f), nil

	case KindBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return nil, fmt.Errorf("unmarshal boolean: %w", err)
		}
		return Bool(b), nil

	case KindDate:
		var s *string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("unmarshal date: %w", err)
		}
		if s == nil {
			return Date{}, nil
		}
		return ParseDate(*s)

	case KindEmail:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("unmarshal email: %w", err)
		}
		return Email(s), nil

	case KindNoteLink:
		var s *string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("unmarshal note link: %w", err)
		}
		if s == nil {
			return NoteLink{}, nil
		}
		return NoteLink{NoteID: *s}, nil

	default:
		return nil, fmt.Errorf("unknown field value kind: %q", w.Kind)
	}
}

// MarshalMap encodes a field map as a JSON object keyed by field name.
func MarshalMap(fields map[string]Value) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(fields))
	for name, v := range fields {
		data, err := Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = data
	}
	return json.Marshal(out)
}

// UnmarshalMap decodes a JSON object of tagged values into a field map.
func UnmarshalMap(data []byte) (map[string]Value, error) {
	if len(data) == 0 {
		return map[string]Value{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal field map: %w", err)
	}
	out := make(map[string]Value, len(raw))
	for name, r := range raw {
		v, err := Unmarshal(r)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Equal compares two values of the same variant. Values of different
// variants are never equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// Display renders a value for the default tabular view.
func Display(v Value) string {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Number:
		return trimFloat(float64(val))
	case Bool:
		if val {
			return "yes"
		}
		return "no"
	case Date:
		return val.ISO
	case Email:
		return string(val)
	case NoteLink:
		return val.NoteID
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}
