package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PPLink/tools/ids"
	"PPLink/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = security.DefaultOptions([]byte("test-secret-0123456789"))

type relayHandler struct{}

func (relayHandler) Event() string { return EventSendMessage }

func (relayHandler) Handle(ctx *Context, ev Event) error {
	e := ev.(SendMessageEvent)
	ctx.Hub.Rooms().Relay(e.ConnectionID, EventNewMessage, NewMessagePayload{
		ConnectionID: e.ConnectionID, SenderID: ctx.Principal().ID, Message: e.Message}, nil)
	return nil
}

type joinHandler struct{}

func (joinHandler) Event() string { return EventJoinConnection }

func (joinHandler) Handle(ctx *Context, ev Event) error {
	ctx.Hub.Rooms().Join(ctx.Conn, ev.(JoinConnectionEvent).ConnectionID)
	return nil
}

func newWSTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	return newWSTestServerWith(t, ServerOptions{AuthTimeout: 500 * time.Millisecond})
}

func newWSTestServerWith(t *testing.T, opts ServerOptions) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	d := NewDispatcher()
	d.Register(relayHandler{}, joinHandler{})
	h, _ := startHub(t, HubOptions{Dispatcher: d})

	srv := NewWSServer(h, TokenAuthenticator{Opts: testJWT}, ids.NewNode(7), opts)
	r := gin.New()
	r.GET("/ws", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return h, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, _, err := security.Generate(testJWT, user, "Name "+user)
	require.NoError(t, err)
	return tok
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) gotFrame {
	t.Helper()
	var f gotFrame
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func expectAuthClose(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CloseAuthFailed, ce.Code)
	assert.Equal(t, "authentication failed", ce.Text)
}

func TestWSRejectsBadToken(t *testing.T) {
	_, url := newWSTestServer(t)
	ws := dial(t, url+"?token=garbage", nil)
	expectAuthClose(t, ws)
}

func TestWSRejectsNonAuthFirstFrame(t *testing.T) {
	_, url := newWSTestServer(t)
	ws := dial(t, url, nil)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"typing","data":{"connectionId":"c"}}`)))
	expectAuthClose(t, ws)
}

func TestWSRejectsSilentClient(t *testing.T) {
	_, url := newWSTestServer(t)
	ws := dial(t, url, nil)
	expectAuthClose(t, ws)
}

func TestWSAuthFrameSizeLimited(t *testing.T) {
	h, url := newWSTestServerWith(t, ServerOptions{
		AuthTimeout: 500 * time.Millisecond,
		Client:      ClientOptions{MaxMessageBytes: 1024},
	})
	ws := dial(t, url, nil)

	// a valid token padded past the read limit must not log in
	frame := `{"event":"auth","data":{"token":"` + token(t, "dave") + `","pad":"` + strings.Repeat("x", 4096) + `"}}`
	_ = ws.WriteMessage(websocket.TextMessage, []byte(frame))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		assert.Equal(t, websocket.CloseMessageTooBig, ce.Code)
	}

	ok, err := h.IsOnline(context.Background(), "dave")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWSHeaderAuthAndEcho(t *testing.T) {
	h, url := newWSTestServer(t)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, "alice"))
	ws := dial(t, url, header)

	require.Eventually(t, func() bool {
		ok, _ := h.IsOnline(context.Background(), "alice")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-connection","data":{"connectionId":"conn_1"}}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"send-message","data":{"connectionId":"conn_1","message":{"text":"hi"}}}`)))

	f := readFrame(t, ws)
	assert.Equal(t, EventNewMessage, f.Event)
	assert.JSONEq(t, `{"connectionId":"conn_1","senderId":"alice","message":{"text":"hi"}}`, string(f.Data))
}

func TestWSFirstFrameAuthAndBadFrame(t *testing.T) {
	h, url := newWSTestServer(t)
	ws := dial(t, url, nil)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"auth","data":{"token":"`+token(t, "bob")+`"}}`)))

	require.Eventually(t, func() bool {
		ok, _ := h.IsOnline(context.Background(), "bob")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"typing","data":{}}`)))
	f := readFrame(t, ws)
	assert.Equal(t, EventError, f.Event)
	assert.Contains(t, string(f.Data), CodeBadPayload)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"auth","data":{"token":"x"}}`)))
	f = readFrame(t, ws)
	assert.Equal(t, EventError, f.Event)
	assert.Contains(t, string(f.Data), CodeAlreadyAuthed)

	// still open after protocol errors
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-connection","data":{"connectionId":"r"}}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"send-message","data":{"connectionId":"r","message":{"n":1}}}`)))
	f = readFrame(t, ws)
	assert.Equal(t, EventNewMessage, f.Event)
}

func TestWSDisconnectUnregisters(t *testing.T) {
	h, url := newWSTestServer(t)
	ws := dial(t, url+"?token="+token(t, "carol"), nil)

	require.Eventually(t, func() bool {
		ok, _ := h.IsOnline(context.Background(), "carol")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = ws.Close()

	assert.Eventually(t, func() bool {
		ok, _ := h.IsOnline(context.Background(), "carol")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}
