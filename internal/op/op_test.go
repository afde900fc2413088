package op

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RoundTripsPayload(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	o, err := New("op-1", ts, "device-a", TypeMoveNote, MoveNotePayload{
		NoteID:   "n-1",
		ParentID: "n-2",
		Position: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "op-1", o.OperationID)
	assert.Equal(t, ts, o.Timestamp)
	assert.Equal(t, "device-a", o.DeviceID)
	assert.False(t, o.Synced, "synced is reserved and must default to false")

	var p MoveNotePayload
	require.NoError(t, o.DecodePayload(&p))
	assert.Equal(t, "n-1", p.NoteID)
	assert.Equal(t, "n-2", p.ParentID)
	assert.Equal(t, 3, p.Position)
}

func TestDecodePayload_WrongShape(t *testing.T) {
	o, err := New("op-1", time.Now(), "d", TypeDeleteNote, DeleteNotePayload{NoteID: "n-1"})
	require.NoError(t, err)

	var p struct {
		NoteID int `json:"note_id"`
	}
	require.Error(t, o.DecodePayload(&p))
}

func TestDefaultStrategy(t *testing.T) {
	s, ok := DefaultStrategy().(LocalOnly)
	require.True(t, ok)
	assert.Equal(t, DefaultKeepLast, s.KeepLast)
}
