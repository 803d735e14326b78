package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	connmodel "PPLink/module/connection/model"
	usermodel "PPLink/module/user/model"
	"PPLink/service/chat"
	"PPLink/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	byID map[string]*connmodel.Connection
}

func newMemStore() *memStore { return &memStore{byID: map[string]*connmodel.Connection{}} }

func (m *memStore) Create(_ context.Context, c *connmodel.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byID[c.ConnectionID] = &cp
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*connmodel.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.Wrap()
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) FindActiveByPair(_ context.Context, pair string) (*connmodel.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.PairKey == pair && c.Status != connmodel.StatusRejected {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errs.ErrRecordNotFound.Wrap()
}

func (m *memStore) Transition(_ context.Context, id string, from, to connmodel.Status, at time.Time) (*connmodel.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Status != from {
		return nil, errs.ErrRelationship.Wrap()
	}
	c.Status = to
	c.UpdateTime = at
	c.HandleTime = &at
	cp := *c
	return &cp, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string, status connmodel.Status) ([]*connmodel.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*connmodel.Connection{}
	for _, c := range m.byID {
		if c.Involves(userID) && (status == "" || c.Status == status) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out, nil
}

type users map[string]bool

func (u users) FindByID(_ context.Context, id string) (*usermodel.User, error) {
	if !u[id] {
		return nil, errs.ErrRecordNotFound.Wrap()
	}
	return &usermodel.User{UserID: id}, nil
}

type pushed struct {
	userID string
	event  string
	kind   string
}

type recordingNotifier struct {
	mu  sync.Mutex
	out []pushed
}

func (r *recordingNotifier) Notify(userID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := pushed{userID: userID, event: event}
	if n, ok := payload.(chat.NotificationPayload); ok {
		p.kind = n.Type
	}
	r.out = append(r.out, p)
}

func newService() (*Service, *memStore, *recordingNotifier) {
	st := newMemStore()
	n := &recordingNotifier{}
	return NewService(st, users{"alice": true, "bob": true, "carol": true}, n), st, n
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", CreateReq{RecipientID: "alice"})
	assert.True(t, errs.ErrArgs.Is(err))

	_, err = svc.Create(ctx, "alice", CreateReq{})
	assert.True(t, errs.ErrArgs.Is(err))

	_, err = svc.Create(ctx, "alice", CreateReq{RecipientID: "nobody"})
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func TestCreate_NotifiesAndRejectsDuplicatePair(t *testing.T) {
	svc, _, n := newService()
	ctx := context.Background()

	c, err := svc.Create(ctx, "alice", CreateReq{RecipientID: "bob", Note: " hi "})
	require.NoError(t, err)
	assert.Equal(t, connmodel.StatusPending, c.Status)
	assert.Equal(t, "hi", c.Note)
	require.Len(t, n.out, 1)
	assert.Equal(t, pushed{userID: "bob", event: chat.EventNotification, kind: NotifyRequest}, n.out[0])

	// either direction counts as the same pair
	_, err = svc.Create(ctx, "bob", CreateReq{RecipientID: "alice"})
	assert.True(t, errs.ErrRecordIsExist.Is(err))
}

func TestAccept_RecipientOnly(t *testing.T) {
	svc, _, n := newService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "alice", CreateReq{RecipientID: "bob"})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, "alice", c.ConnectionID)
	assert.True(t, errs.ErrNoPermission.Is(err))

	got, err := svc.Accept(ctx, "bob", c.ConnectionID)
	require.NoError(t, err)
	assert.Equal(t, connmodel.StatusAccepted, got.Status)
	assert.NotNil(t, got.HandleTime)
	assert.Equal(t, pushed{userID: "alice", event: chat.EventNotification, kind: NotifyAccepted}, n.out[len(n.out)-1])

	_, err = svc.Reject(ctx, "bob", c.ConnectionID)
	assert.True(t, errs.ErrRelationship.Is(err))
}

func TestReject_AllowsNewRequest(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "alice", CreateReq{RecipientID: "bob"})
	require.NoError(t, err)
	_, err = svc.Reject(ctx, "bob", c.ConnectionID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "alice", CreateReq{RecipientID: "bob"})
	assert.NoError(t, err)
}

func TestGetAndCanJoin(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "alice", CreateReq{RecipientID: "bob"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "carol", c.ConnectionID)
	assert.True(t, errs.ErrNoPermission.Is(err))

	ok, err := svc.CanJoin(ctx, "alice", c.ConnectionID)
	require.NoError(t, err)
	assert.False(t, ok, "pending connection is not a room yet")

	_, err = svc.Accept(ctx, "bob", c.ConnectionID)
	require.NoError(t, err)

	ok, err = svc.CanJoin(ctx, "alice", c.ConnectionID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.CanJoin(ctx, "carol", c.ConnectionID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.CanJoin(ctx, "alice", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAndPeers(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	c1, err := svc.Create(ctx, "alice", CreateReq{RecipientID: "bob"})
	require.NoError(t, err)
	c2, err := svc.Create(ctx, "carol", CreateReq{RecipientID: "alice"})
	require.NoError(t, err)
	_, err = svc.Reject(ctx, "alice", c2.ConnectionID)
	require.NoError(t, err)

	pending, err := svc.List(ctx, "alice", connmodel.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, c1.ConnectionID, pending[0].ConnectionID)

	_, err = svc.List(ctx, "alice", "bogus")
	assert.True(t, errs.ErrArgs.Is(err))

	peers, err := svc.ConnectedPeers(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, peers)
}
