package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/model"
)

func TestRoomRegistry_UpsertOrdersByJoin(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "u1"})
	r.Upsert("room", model.Participant{ConnectionID: "c2", UserID: "u2"})
	r.Upsert("room", model.Participant{ConnectionID: "c3", UserID: "u3"})

	snap := r.Snapshot("room")
	require.Len(t, snap, 3)
	assert.Equal(t, "u1", snap[0].UserID)
	assert.Equal(t, "u3", snap[2].UserID)
	assert.Less(t, snap[0].JoinSeq, snap[1].JoinSeq)
}

func TestRoomRegistry_RejoinReplacesSameUser(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "u1", Username: "old"})

	replaced := r.Upsert("room", model.Participant{ConnectionID: "c9", UserID: "u1", Username: "new"})
	require.NotNil(t, replaced)
	assert.Equal(t, "c1", replaced.ConnectionID)

	snap := r.Snapshot("room")
	require.Len(t, snap, 1)
	assert.Equal(t, "c9", snap[0].ConnectionID)
	assert.Equal(t, "new", snap[0].Username)

	_, ok := r.RoomOf("c1")
	assert.False(t, ok, "replaced connection should no longer map to the room")
}

func TestRoomRegistry_RepeatedJoinKeepsJoinOrder(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "alice"})
	r.Upsert("room", model.Participant{ConnectionID: "c2", UserID: "bob"})

	before := r.Snapshot("room")
	require.Len(t, before, 2)
	require.False(t, model.ShouldInitiate(before[0], before[1]))

	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "alice", MicOn: true})

	after := r.Snapshot("room")
	require.Len(t, after, 2)
	assert.Equal(t, "alice", after[0].UserID)
	assert.Equal(t, before[0].JoinSeq, after[0].JoinSeq)
	assert.True(t, after[0].MicOn)
	assert.False(t, model.ShouldInitiate(after[0], after[1]), "alice still answers bob's offer")

	room, ok := r.RoomOf("c1")
	assert.True(t, ok)
	assert.Equal(t, "room", room)
}

func TestRoomRegistry_RemoveConnection(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "u1"})
	r.Upsert("room", model.Participant{ConnectionID: "c2", UserID: "u2"})

	roomID, ok := r.RemoveConnection("c1")
	assert.True(t, ok)
	assert.Equal(t, "room", roomID)
	assert.Len(t, r.Snapshot("room"), 1)

	_, ok = r.RemoveConnection("unknown")
	assert.False(t, ok)

	r.RemoveConnection("c2")
	assert.Empty(t, r.Snapshot("room"))
	assert.Empty(t, r.Rooms(), "empty rooms are dropped")
}

func TestRoomRegistry_UpdateMic(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "u1"})

	roomID, ok := r.UpdateMic("c1", true)
	require.True(t, ok)
	assert.Equal(t, "room", roomID)

	p, ok := r.Participant("c1")
	require.True(t, ok)
	assert.True(t, p.MicOn)

	_, ok = r.UpdateMic("nobody", true)
	assert.False(t, ok)
}

func TestRoomRegistry_Rooms(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("b", model.Participant{ConnectionID: "c1", UserID: "u1"})
	r.Upsert("a", model.Participant{ConnectionID: "c2", UserID: "u2"})
	r.Upsert("a", model.Participant{ConnectionID: "c3", UserID: "u3"})

	assert.Equal(t, []model.RoomInfo{
		{ID: "a", ParticipantCount: 2},
		{ID: "b", ParticipantCount: 1},
	}, r.Rooms())
}

func TestRoomRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRoomRegistry()
	r.Upsert("room", model.Participant{ConnectionID: "c1", UserID: "u1"})

	snap := r.Snapshot("room")
	snap[0].Username = "mutated"

	p, _ := r.Participant("c1")
	assert.Empty(t, p.Username)
}
