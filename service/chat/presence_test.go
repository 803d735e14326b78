package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu   sync.Mutex
	sent [][]byte
	fn   func([]byte)
}

func (b *fakeBus) Publish(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, data)
	return nil
}

func (b *fakeBus) Subscribe(fn func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fn = fn
	return func() {}, nil
}

func (b *fakeBus) published() []presenceEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]presenceEnvelope, 0, len(b.sent))
	for _, d := range b.sent {
		var env presenceEnvelope
		_ = json.Unmarshal(d, &env)
		out = append(out, env)
	}
	return out
}

func TestPresencePublishesToBus(t *testing.T) {
	bus := &fakeBus{}
	effects := NewEffects(0)
	r := NewRegistry()
	r.Observe(NewPresence(r, bus, "node-a", effects))

	r.Register("alice", newMockConn("c1", "alice"))
	r.Unregister("alice")
	effects.Wait()

	envs := bus.published()
	require.Len(t, envs, 2)
	events := []string{envs[0].Event, envs[1].Event}
	assert.ElementsMatch(t, []string{EventUserOnline, EventUserOffline}, events)
	for _, env := range envs {
		assert.Equal(t, "node-a", env.Origin)
		assert.Equal(t, "alice", env.UserID)
	}
}

func TestPresenceHandleRemote(t *testing.T) {
	r := NewRegistry()
	p := NewPresence(r, nil, "node-a", NewEffects(0))
	a := newMockConn("c1", "alice")
	r.Register("alice", a)

	remote, _ := json.Marshal(presenceEnvelope{
		Origin: "node-b", Event: EventUserOnline, UserID: "bob",
		Payload: json.RawMessage(`{"userId":"bob"}`),
	})
	assert.Equal(t, 1, p.HandleRemote(remote))
	got := a.dataOf(EventUserOnline)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0]["userId"])

	own, _ := json.Marshal(presenceEnvelope{Origin: "node-a", Event: EventUserOnline, UserID: "bob"})
	assert.Equal(t, 0, p.HandleRemote(own))

	bogus, _ := json.Marshal(presenceEnvelope{Origin: "node-b", Event: EventNewMessage, UserID: "bob"})
	assert.Equal(t, 0, p.HandleRemote(bogus))
	assert.Equal(t, 0, p.HandleRemote([]byte("not json")))
}

func TestAnnounceProfileUpdate(t *testing.T) {
	r := NewRegistry()
	p := NewPresence(r, nil, "node-a", NewEffects(0))
	a := newMockConn("c1", "alice")
	b := newMockConn("c2", "bob")
	r.Register("alice", a)
	r.Register("bob", b)

	n := p.AnnounceProfileUpdate("alice", map[string]any{"headline": "Go dev"})
	assert.Equal(t, 1, n)
	assert.Empty(t, a.dataOf(EventProfileUpdated))

	got := b.dataOf(EventProfileUpdated)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0]["userId"])
	assert.Equal(t, map[string]any{"headline": "Go dev"}, got[0]["fields"])
}
