package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientEvent(t *testing.T) {
	t.Run("join room", func(t *testing.T) {
		ev, err := decodeClientEvent([]byte(`{"event":"join-room","data":{"roomId":"m1","user":{"username":"sam","micOn":true}}}`))
		require.NoError(t, err)
		assert.Equal(t, EventJoinRoom, ev.kind)
		assert.Equal(t, "m1", ev.join.RoomID)
		assert.Equal(t, "sam", ev.join.User.Username)
		assert.True(t, ev.join.User.MicOn)
	})

	t.Run("leave room needs no data", func(t *testing.T) {
		ev, err := decodeClientEvent([]byte(`{"event":"leave-room"}`))
		require.NoError(t, err)
		assert.Equal(t, EventLeaveRoom, ev.kind)
	})

	t.Run("signal keeps payload opaque", func(t *testing.T) {
		ev, err := decodeClientEvent([]byte(`{"event":"signal","data":{"to":"c2","signal":{"candidate":"x","sdpMid":"0"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "c2", ev.signal.To)
		assert.JSONEq(t, `{"candidate":"x","sdpMid":"0"}`, string(ev.signal.Signal))
	})

	t.Run("send message with timestamp", func(t *testing.T) {
		ev, err := decodeClientEvent([]byte(`{"event":"send-message","data":{"content":"hi","timestamp":"2024-03-01T10:00:00Z"}}`))
		require.NoError(t, err)
		assert.Equal(t, "hi", ev.message.Content)
		assert.True(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Equal(ev.message.Timestamp))
	})

	t.Run("send message with unparseable timestamp", func(t *testing.T) {
		ev, err := decodeClientEvent([]byte(`{"event":"send-message","data":{"content":"hi","timestamp":1700000000}}`))
		require.NoError(t, err)
		assert.True(t, ev.message.Timestamp.IsZero())
	})

	t.Run("update settings", func(t *testing.T) {
		ev, err := decodeClientEvent([]byte(`{"event":"update-settings","data":{"micOn":true}}`))
		require.NoError(t, err)
		assert.True(t, ev.settings.MicOn)
	})

	for name, raw := range map[string]string{
		"malformed":    `{"event":`,
		"no event":     `{"data":{}}`,
		"unknown":      `{"event":"shout","data":{}}`,
		"missing data": `{"event":"join-room"}`,
		"wrong shape":  `{"event":"update-settings","data":{"micOn":"yes"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeClientEvent([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	data, err := encodeFrame("all-users", []string{"a"})
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "all-users", frame.Event)
	assert.JSONEq(t, `["a"]`, string(frame.Data))
}
