package amqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorSyncMessageRoundTrip(t *testing.T) {
	msg := NewMirrorSyncMessage(42)
	require.Equal(t, int64(42), msg.UserID)
	require.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)

	body, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := MirrorSyncMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.UserID, got.UserID)
	assert.True(t, msg.Timestamp.Equal(got.Timestamp))
}

func TestMirrorSyncMessageFromJSONRejectsGarbage(t *testing.T) {
	_, err := MirrorSyncMessageFromJSON([]byte("not json"))
	assert.Error(t, err)
}
