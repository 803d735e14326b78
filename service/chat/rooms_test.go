package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomsRelayOnlyToMembers(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")

	rooms.Join(a, "conn_1")
	n := rooms.Relay("conn_1", EventNewMessage, map[string]any{"text": "hi"}, nil)

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{EventNewMessage}, a.events())
	assert.Empty(t, b.events())

	rooms.Join(b, "conn_1")
	rooms.Leave(a, "conn_1")
	rooms.Relay("conn_1", EventNewMessage, map[string]any{"text": "again"}, nil)
	assert.Len(t, a.events(), 1)
	assert.Len(t, b.events(), 1)
}

func TestRoomsRelayExclude(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	rooms.Join(a, "r")
	rooms.Join(b, "r")

	assert.Equal(t, 1, rooms.Relay("r", EventUserTyping, nil, a))
	assert.Empty(t, a.events())
	assert.Equal(t, []string{EventUserTyping}, b.events())
}

func TestRoomsActiveRoomOverwrite(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")

	rooms.Join(a, "conn_2")
	rooms.Join(a, "conn_3")

	room, ok := rooms.ActiveRoom("alice")
	assert.True(t, ok)
	assert.Equal(t, "conn_3", room)
	assert.True(t, rooms.IsMember(a, "conn_2"))
	assert.True(t, rooms.IsMember(a, "conn_3"))
}

func TestRoomsLeaveClearsActiveOnlyWhenMatching(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")
	rooms.Join(a, "conn_2")
	rooms.Join(a, "conn_3")

	rooms.Leave(a, "conn_2")
	room, ok := rooms.ActiveRoom("alice")
	assert.True(t, ok)
	assert.Equal(t, "conn_3", room)

	rooms.Leave(a, "conn_3")
	_, ok = rooms.ActiveRoom("alice")
	assert.False(t, ok)
}

func TestRoomsLeaveAll(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	rooms.Join(a, "r1")
	rooms.Join(a, "r2")
	rooms.Join(b, "r2")

	assert.Equal(t, 2, rooms.LeaveAll(a))
	assert.False(t, rooms.IsMember(a, "r1"))
	assert.False(t, rooms.IsMember(a, "r2"))
	assert.Len(t, rooms.Members("r2"), 1)

	s := rooms.Stats()
	assert.Equal(t, 1, s.Rooms)
	assert.Equal(t, 1, s.Memberships)
}

func TestRoomsRelayPreservesCallOrder(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	rooms.Join(a, "r")
	rooms.Join(b, "r")

	for _, ev := range []string{EventUserTyping, EventNewMessage, EventUserStoppedTyping} {
		rooms.Relay("r", ev, nil, nil)
	}
	want := []string{EventUserTyping, EventNewMessage, EventUserStoppedTyping}
	assert.Equal(t, want, a.events())
	assert.Equal(t, want, b.events())
}

func TestRoomsPendingJoin(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")

	// leave before the check answers cancels the join
	ticket := rooms.BeginJoin(a, "r")
	rooms.Leave(a, "r")
	assert.False(t, rooms.CommitJoin(a, "r", ticket))
	assert.False(t, rooms.IsMember(a, "r"))
	_, ok := rooms.ActiveRoom("alice")
	assert.False(t, ok)

	// a re-join replaces the older ticket
	old := rooms.BeginJoin(a, "r")
	ticket = rooms.BeginJoin(a, "r")
	assert.False(t, rooms.CommitJoin(a, "r", old))
	assert.True(t, rooms.CommitJoin(a, "r", ticket))
	assert.True(t, rooms.IsMember(a, "r"))
	room, _ := rooms.ActiveRoom("alice")
	assert.Equal(t, "r", room)
}

func TestRoomsPendingJoinKeepsNewestActive(t *testing.T) {
	rooms := NewRooms()
	a := newMockConn("c1", "alice")

	first := rooms.BeginJoin(a, "r1")
	second := rooms.BeginJoin(a, "r2")
	assert.True(t, rooms.CommitJoin(a, "r2", second))
	assert.True(t, rooms.CommitJoin(a, "r1", first))

	assert.True(t, rooms.IsMember(a, "r1"))
	room, _ := rooms.ActiveRoom("alice")
	assert.Equal(t, "r2", room)

	pending := rooms.BeginJoin(a, "r3")
	rooms.LeaveAll(a)
	assert.False(t, rooms.CommitJoin(a, "r3", pending))
}
