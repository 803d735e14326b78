package chat

import (
	"PPLink/logger"

	"go.uber.org/zap"
)

// Rooms tracks conversation membership per connection and each principal's
// foreground room. Loop-owned like Registry.
type Rooms struct {
	members map[string]map[string]Conn     // room -> connID -> conn
	byConn  map[string]map[string]struct{} // connID -> rooms
	active  map[string]string              // principal -> room

	// joins waiting on the room guard: connID -> room -> ticket
	pending map[string]map[string]uint64
	latest  map[string]uint64 // connID -> newest join ticket
	seq     uint64
}

type RoomStats struct {
	Rooms       int `json:"rooms"`
	Memberships int `json:"memberships"`
	Active      int `json:"active"`
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]Conn),
		byConn:  make(map[string]map[string]struct{}),
		active:  make(map[string]string),
		pending: make(map[string]map[string]uint64),
		latest:  make(map[string]uint64),
	}
}

// Join adds c to roomID and makes it the principal's active room.
func (r *Rooms) Join(c Conn, roomID string) {
	r.seq++
	r.latest[c.ID()] = r.seq
	r.join(c, roomID, true)
}

// BeginJoin records a join that is waiting on an asynchronous check and returns
// its ticket. A later Leave of the same room, or LeaveAll, cancels it.
func (r *Rooms) BeginJoin(c Conn, roomID string) uint64 {
	r.seq++
	ps := r.pending[c.ID()]
	if ps == nil {
		ps = make(map[string]uint64)
		r.pending[c.ID()] = ps
	}
	ps[roomID] = r.seq
	r.latest[c.ID()] = r.seq
	return r.seq
}

// CommitJoin applies a join started with BeginJoin. It reports false when the
// join was cancelled or superseded. The active room only moves when no newer
// join was issued on c in the meantime.
func (r *Rooms) CommitJoin(c Conn, roomID string, ticket uint64) bool {
	if !r.dropPending(c.ID(), roomID, ticket) {
		return false
	}
	r.join(c, roomID, r.latest[c.ID()] == ticket)
	return true
}

// AbortJoin forgets a pending join without applying it.
func (r *Rooms) AbortJoin(c Conn, roomID string, ticket uint64) {
	r.dropPending(c.ID(), roomID, ticket)
}

func (r *Rooms) dropPending(connID, roomID string, ticket uint64) bool {
	ps := r.pending[connID]
	if ps == nil || ps[roomID] != ticket {
		return false
	}
	delete(ps, roomID)
	if len(ps) == 0 {
		delete(r.pending, connID)
	}
	return true
}

func (r *Rooms) join(c Conn, roomID string, activate bool) {
	m := r.members[roomID]
	if m == nil {
		m = make(map[string]Conn)
		r.members[roomID] = m
	}
	m[c.ID()] = c

	rs := r.byConn[c.ID()]
	if rs == nil {
		rs = make(map[string]struct{})
		r.byConn[c.ID()] = rs
	}
	rs[roomID] = struct{}{}

	if activate {
		r.active[c.Principal().ID] = roomID
	}
}

// Leave removes c from roomID. The active-room entry is cleared only if it still points at roomID.
func (r *Rooms) Leave(c Conn, roomID string) {
	if ps := r.pending[c.ID()]; ps != nil {
		delete(ps, roomID)
		if len(ps) == 0 {
			delete(r.pending, c.ID())
		}
	}
	r.remove(c.ID(), roomID)
	pid := c.Principal().ID
	if r.active[pid] == roomID {
		delete(r.active, pid)
	}
}

// LeaveAll drops c from every room it joined and cancels its pending joins.
// Active-room entries are left alone.
func (r *Rooms) LeaveAll(c Conn) int {
	delete(r.pending, c.ID())
	delete(r.latest, c.ID())
	rs := r.byConn[c.ID()]
	n := len(rs)
	for room := range rs {
		r.remove(c.ID(), room)
	}
	delete(r.byConn, c.ID())
	return n
}

func (r *Rooms) remove(connID, roomID string) {
	if m := r.members[roomID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.members, roomID)
		}
	}
	if rs := r.byConn[connID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(r.byConn, connID)
		}
	}
}

func (r *Rooms) ClearActive(principalID string) {
	delete(r.active, principalID)
}

func (r *Rooms) ActiveRoom(principalID string) (string, bool) {
	room, ok := r.active[principalID]
	return room, ok
}

func (r *Rooms) IsMember(c Conn, roomID string) bool {
	_, ok := r.members[roomID][c.ID()]
	return ok
}

func (r *Rooms) Members(roomID string) []Conn {
	m := r.members[roomID]
	out := make([]Conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Relay sends one event to every member of roomID except the exclude connection (nil = nobody).
func (r *Rooms) Relay(roomID, event string, payload any, exclude Conn) int {
	m := r.members[roomID]
	if len(m) == 0 {
		return 0
	}
	frame, err := Encode(event, payload)
	if err != nil {
		logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return 0
	}
	n := 0
	for id, c := range m {
		if exclude != nil && id == exclude.ID() {
			continue
		}
		if err := c.Send(frame); err != nil {
			logger.Debug("relay skip", zap.String("room", roomID), zap.String("conn", id), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

func (r *Rooms) Stats() RoomStats {
	s := RoomStats{Rooms: len(r.members), Active: len(r.active)}
	for _, m := range r.members {
		s.Memberships += len(m)
	}
	return s
}
