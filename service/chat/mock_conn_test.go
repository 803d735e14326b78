package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type mockConn struct {
	id string
	p  Principal

	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	code     int
	failSend bool
}

func newMockConn(id, user string) *mockConn {
	return &mockConn{id: id, p: Principal{ID: user, Name: "name-" + user}}
}

func (m *mockConn) ID() string           { return m.id }
func (m *mockConn) Principal() Principal { return m.p }

func (m *mockConn) Send(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend || m.closed {
		return errors.New("send failed")
	}
	m.frames = append(m.frames, frame)
	return nil
}

func (m *mockConn) Close(code int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.code = code
	return nil
}

type gotFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (m *mockConn) received() []gotFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]gotFrame, 0, len(m.frames))
	for _, f := range m.frames {
		var g gotFrame
		_ = json.Unmarshal(f, &g)
		out = append(out, g)
	}
	return out
}

func (m *mockConn) events() []string {
	var out []string
	for _, f := range m.received() {
		out = append(out, f.Event)
	}
	return out
}

func (m *mockConn) dataOf(event string) []map[string]any {
	var out []map[string]any
	for _, f := range m.received() {
		if f.Event != event {
			continue
		}
		var d map[string]any
		_ = json.Unmarshal(f.Data, &d)
		out = append(out, d)
	}
	return out
}

func (m *mockConn) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

type countingObserver struct {
	online, offline []string
}

func (o *countingObserver) SessionOnline(id string, _ Conn, _ time.Time) {
	o.online = append(o.online, id)
}

func (o *countingObserver) SessionOffline(id string, _ Conn, _ time.Time) {
	o.offline = append(o.offline, id)
}
