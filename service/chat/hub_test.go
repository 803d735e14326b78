package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeProfiles) SetPresence(_ context.Context, userID, socketID string, online bool, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "offline"
	if online {
		state = "online"
	}
	f.calls = append(f.calls, userID+":"+socketID+":"+state)
	return nil
}

func (f *fakeProfiles) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type echoHandler struct{}

func (echoHandler) Event() string { return EventTyping }

func (echoHandler) Handle(ctx *Context, ev Event) error {
	ctx.Hub.Rooms().Relay(ev.(TypingEvent).ConnectionID, EventUserTyping, nil, nil)
	return nil
}

func startHub(t *testing.T, opts HubOptions) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h, cancel
}

// drain waits until everything submitted so far has run.
func drain(t *testing.T, h *Hub) {
	t.Helper()
	require.NoError(t, h.Call(context.Background(), func() {}))
}

func TestHubConnectDisconnect(t *testing.T) {
	profiles := &fakeProfiles{}
	h, _ := startHub(t, HubOptions{NodeID: "n1", Profiles: profiles})
	ctx := context.Background()

	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	h.Connect(a)
	h.Connect(b)

	online, err := h.IsOnline(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, []string{EventUserOnline}, a.events())

	h.Disconnect(b)
	online, err = h.IsOnline(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, online)
	assert.Equal(t, []string{EventUserOnline, EventUserOffline}, a.events())

	// a second disconnect for the same conn is ignored
	h.Disconnect(b)
	drain(t, h)
	assert.Len(t, a.events(), 2)

	assert.Eventually(t, func() bool { return len(profiles.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, profiles.snapshot(), "bob:c2:offline")
}

func TestHubStaleDisconnectAfterReconnect(t *testing.T) {
	h, _ := startHub(t, HubOptions{})
	ctx := context.Background()
	watcher := newMockConn("w", "watcher")
	old := newMockConn("c1", "alice")
	fresh := newMockConn("c2", "alice")

	h.Connect(watcher)
	h.Connect(old)
	h.Connect(fresh)
	h.Submit(func() { h.Rooms().Join(fresh, "conn_1") })
	drain(t, h)
	watcher.reset()

	h.Disconnect(old)
	online, err := h.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Empty(t, watcher.dataOf(EventUserOffline))

	room, err := h.ActiveRoomOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "conn_1", room)

	delivered, err := h.Send(ctx, "alice", EventNotification, NotificationPayload{Type: "x"})
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Len(t, fresh.dataOf(EventNotification), 1)
	assert.Empty(t, old.dataOf(EventNotification))
}

func TestHubDisconnectClearsRoomsAndActive(t *testing.T) {
	h, _ := startHub(t, HubOptions{})
	ctx := context.Background()
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	h.Connect(a)
	h.Connect(b)
	h.Submit(func() {
		h.Rooms().Join(a, "r1")
		h.Rooms().Join(b, "r1")
	})
	h.Disconnect(a)
	drain(t, h)
	b.reset()

	h.RelayRoom("r1", EventNewMessage, map[string]any{"text": "hi"})
	drain(t, h)
	assert.Equal(t, []string{EventNewMessage}, b.events())
	assert.Empty(t, a.dataOf(EventNewMessage))

	room, err := h.ActiveRoomOf(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, room)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Online)
	assert.Equal(t, 1, stats.Connections)
	assert.Equal(t, 1, stats.Rooms.Memberships)
}

func TestHubDispatch(t *testing.T) {
	d := NewDispatcher()
	d.Register(echoHandler{})
	h, _ := startHub(t, HubOptions{Dispatcher: d})
	a := newMockConn("c1", "alice")
	h.Connect(a)
	h.Submit(func() { h.Rooms().Join(a, "r1") })

	h.Dispatch(a, TypingEvent{ConnectionID: "r1"})
	h.Dispatch(a, LeaveConnectionEvent{ConnectionID: "r1"})
	drain(t, h)

	assert.Equal(t, []string{EventUserTyping, EventError}, a.events())
	errPayload := a.dataOf(EventError)[0]
	assert.Equal(t, CodeUnknownEvent, errPayload["code"])
	assert.Equal(t, EventLeaveConnection, errPayload["event"])

	// frames from a conn that was never attached are dropped
	stranger := newMockConn("c9", "mallory")
	h.Dispatch(stranger, TypingEvent{ConnectionID: "r1"})
	drain(t, h)
	assert.Empty(t, stranger.events())
	assert.Len(t, a.dataOf(EventUserTyping), 1)
}

func TestHubNotifyAndProfileUpdate(t *testing.T) {
	h, _ := startHub(t, HubOptions{})
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	h.Connect(a)
	h.Connect(b)

	h.Notify("bob", EventNotification, NotificationPayload{Type: "connection.request"})
	h.Notify("ghost", EventNotification, NotificationPayload{Type: "connection.request"})
	h.AnnounceProfileUpdate("bob", map[string]any{"name": "Bobby"})
	drain(t, h)

	n := b.dataOf(EventNotification)
	require.Len(t, n, 1)
	assert.Equal(t, "connection.request", n[0]["type"])
	assert.Len(t, a.dataOf(EventProfileUpdated), 1)
	assert.Empty(t, b.dataOf(EventProfileUpdated))

	set, err := h.OnlineSet(context.Background(), []string{"alice", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice": true, "ghost": false}, set)
}

func TestHubShutdownClosesConnections(t *testing.T) {
	h := NewHub(HubOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	a := newMockConn("c1", "alice")
	h.Connect(a)
	require.NoError(t, h.Call(ctx, func() {}))

	cancel()
	<-done
	a.mu.Lock()
	assert.True(t, a.closed)
	assert.Equal(t, websocket.CloseGoingAway, a.code)
	a.mu.Unlock()

	assert.False(t, h.Submit(func() {}))
	_, err := h.IsOnline(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrHubStopped)
}
