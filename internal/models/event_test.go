package models_test

import (
	"babelchat/backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_RestoresVariant(t *testing.T) {
	data, err := models.EncodeEvent(models.TypingBroadcast{
		Signal: models.TypingSignal{RoomID: "room-1", UserID: "u1", DisplayName: "Ana"},
	})
	require.NoError(t, err)

	ev, err := models.DecodeEvent(data)
	require.NoError(t, err)

	typing, ok := ev.(models.TypingBroadcast)
	require.True(t, ok, "expected TypingBroadcast, got %T", ev)
	assert.Equal(t, "room-1", typing.EventRoomID())
	assert.Equal(t, "Ana", typing.Signal.DisplayName)
}

func TestEncodeEvent_EnvelopeCarriesRoom(t *testing.T) {
	data, err := models.EncodeEvent(models.MemberLeft{Member: models.RoomMember{RoomID: "room-9", UserID: "u2"}})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"member_left"`)
	assert.Contains(t, string(data), `"room_id":"room-9"`)
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := models.DecodeEvent([]byte(`{"type":"presence","room_id":"r","payload":{}}`))
	assert.ErrorIs(t, err, models.ErrUnknownEvent)

	_, err = models.DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}
