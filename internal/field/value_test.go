package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value Value
	}{
		{"text", Text("hello")},
		{"empty text", Text("")},
		{"number", Number(3.5)},
		{"bool", Bool(true)},
		{"date", Date{ISO: "2024-06-01"}},
		{"unset date", Date{}},
		{"email", Email("a@b.example")},
		{"note link", NoteLink{NoteID: "n-1"}},
		{"unset note link", NoteLink{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.value)
			require.NoError(t, err)

			back, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestUnmarshal_UnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"blob","value":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field value kind")
}

func TestParseDate_RejectsGarbage(t *testing.T) {
	_, err := ParseDate("June 1st")
	require.Error(t, err)

	d, err := ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestMatch_VariantPerDeclaredType(t *testing.T) {
	assert.True(t, Match(TypeText, Text("x")))
	assert.True(t, Match(TypeTextarea, Text("x")))
	assert.True(t, Match(TypeSelect, Text("todo")))
	assert.True(t, Match(TypeRating, Number(4)))
	assert.True(t, Match(TypeNoteLink, NoteLink{NoteID: "n"}))

	// No coercion across variants.
	assert.False(t, Match(TypeNumber, Text("3")))
	assert.False(t, Match(TypeText, Number(3)))
	assert.False(t, Match(TypeDate, Text("2024-06-01")))
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(TypeNumber, int64(7))
	require.NoError(t, err)
	assert.Equal(t, Number(7), v)

	v, err = Coerce(TypeDate, nil)
	require.NoError(t, err)
	assert.Equal(t, Date{}, v)

	_, err = Coerce(TypeBoolean, "yes")
	require.Error(t, err)

	_, err = Coerce(TypeDate, "not-a-date")
	require.Error(t, err)
}

func TestMarshalMap_RoundTrip(t *testing.T) {
	in := map[string]Value{
		"name":   Text("Buy milk"),
		"done":   Bool(false),
		"rating": Number(5),
		"due":    Date{ISO: "2024-12-24"},
	}

	data, err := MarshalMap(in)
	require.NoError(t, err)

	out, err := UnmarshalMap(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "yes", Display(Bool(true)))
	assert.Equal(t, "no", Display(Bool(false)))
	assert.Equal(t, "2.5", Display(Number(2.5)))
	assert.Equal(t, "3", Display(Number(3)))
	assert.Equal(t, "2024-06-01", Display(Date{ISO: "2024-06-01"}))
}
