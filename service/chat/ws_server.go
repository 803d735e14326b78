package chat

import (
	"net/http"
	"strings"
	"time"

	"PPLink/logger"
	"PPLink/tools/ids"
	"PPLink/tools/safe"
	"PPLink/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer credential into a principal.
type Authenticator interface {
	Authenticate(token string) (Principal, error)
}

// TokenAuthenticator verifies the JWTs issued by the account API.
type TokenAuthenticator struct {
	Opts security.Options
}

func (a TokenAuthenticator) Authenticate(token string) (Principal, error) {
	claims, err := security.Verify(a.Opts, token)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: claims.UserID(), Name: claims.Name}, nil
}

type ServerOptions struct {
	AuthTimeout    time.Duration
	AllowedOrigins []string
	Client         ClientOptions
}

// WSServer upgrades /ws requests, authenticates them, and feeds frames to the hub.
type WSServer struct {
	hub      *Hub
	auth     Authenticator
	ids      *ids.Node
	opts     ServerOptions
	upgrader websocket.Upgrader
}

func NewWSServer(hub *Hub, auth Authenticator, idNode *ids.Node, opts ServerOptions) *WSServer {
	safe.MustNotNil(hub, "hub")
	safe.MustNotNil(auth, "auth")
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 10 * time.Second
	}
	opts.Client.norm()
	s := &WSServer{hub: hub, auth: auth, ids: idNode, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *WSServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// HandleWS ===== WebSocket 处理 =====
func (s *WSServer) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败，Upgrade 已经写回了 HTTP 错误
		logger.Info("[WS] upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}

	token := security.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		token, err = s.awaitAuthFrame(ws)
		if err != nil {
			s.reject(ws, err)
			return
		}
	}
	p, err := s.auth.Authenticate(token)
	if err != nil {
		s.reject(ws, err)
		return
	}

	client := NewClient(s.ids.NextString(), p, ws, s.opts.Client)
	safe.SafeGo("ws.write", client.WritePump)
	if !s.hub.Connect(client) {
		_ = client.Close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	logger.Info("[WS] connected", zap.String("conn", client.ID()), zap.String("user", p.ID), zap.String("remote", c.ClientIP()))

	client.ReadPump(func(data []byte) { s.onFrame(client, data) })

	s.hub.Disconnect(client)
	_ = client.Close(websocket.CloseNormalClosure, "")
	logger.Info("[WS] disconnected", zap.String("conn", client.ID()), zap.String("user", p.ID))
}

// awaitAuthFrame waits for {"event":"auth","data":{"token":...}} as the first frame.
func (s *WSServer) awaitAuthFrame(ws *websocket.Conn) (string, error) {
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.AuthTimeout))
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()
	ws.SetReadLimit(s.opts.Client.MaxMessageBytes)

	_, data, err := ws.ReadMessage()
	if err != nil {
		return "", errors.Wrap(err, "read auth frame")
	}
	ev, err := ParseFrame(data)
	if err != nil {
		return "", err
	}
	auth, ok := ev.(AuthEvent)
	if !ok {
		return "", errors.Errorf("first frame must be auth, got %s", ev.EventName())
	}
	return auth.Token, nil
}

func (s *WSServer) reject(ws *websocket.Conn, cause error) {
	logger.Info("[WS] handshake rejected", zap.String("remote", ws.RemoteAddr().String()), zap.Error(cause))
	msg := websocket.FormatCloseMessage(CloseAuthFailed, "authentication failed")
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = ws.Close()
}

func (s *WSServer) onFrame(client *Client, data []byte) {
	ev, err := ParseFrame(data)
	if err != nil {
		sample := data
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Debug("[WS] bad frame", zap.String("conn", client.ID()), zap.ByteString("sample", sample), zap.Error(err))
		s.hub.ReplyError(client, "", err)
		return
	}
	if _, ok := ev.(AuthEvent); ok {
		s.hub.ReplyError(client, EventAuth, protoErr(CodeAlreadyAuthed, EventAuth, "connection is already authenticated"))
		return
	}
	s.hub.Dispatch(client, ev)
}
