package chat

import (
	"net"
	"sync"
	"time"

	"PPLink/logger"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrSendQueue  = errors.New("send queue full")
)

type ClientOptions struct {
	SendQueue       int
	WriteWait       time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

func (o *ClientOptions) norm() {
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
}

type closeReq struct {
	code   int
	reason string
}

// Client is one authenticated websocket. A single writer goroutine owns ws writes;
// everything else enqueues through Send.
type Client struct {
	id        string
	principal Principal
	ws        *websocket.Conn
	opts      ClientOptions

	send      chan []byte
	closing   chan closeReq
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(id string, p Principal, ws *websocket.Conn, opts ClientOptions) *Client {
	opts.norm()
	return &Client{
		id:        id,
		principal: p,
		ws:        ws,
		opts:      opts,
		send:      make(chan []byte, opts.SendQueue),
		closing:   make(chan closeReq, 1),
		done:      make(chan struct{}),
	}
}

func (c *Client) ID() string           { return c.id }
func (c *Client) Principal() Principal { return c.principal }

// Send enqueues a frame. A full queue means the peer is not reading; the socket is dropped.
func (c *Client) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		logger.Warn("[WS] send queue full, closing", zap.String("conn", c.id), zap.String("user", c.principal.ID))
		_ = c.Close(websocket.ClosePolicyViolation, "send queue overflow")
		return ErrSendQueue
	}
}

// Close asks the writer to send a close frame and stop. Safe to call many times.
func (c *Client) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closing <- closeReq{code: code, reason: reason}
		close(c.done)
	})
	return nil
}

func (c *Client) Done() <-chan struct{} { return c.done }

// WritePump drains the send queue and pings the peer until the client closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				logger.Debug("[WS] write err", zap.String("conn", c.id), zap.Error(err))
				_ = c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				logger.Debug("[WS] ping err", zap.String("conn", c.id), zap.Error(err))
				_ = c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case req := <-c.closing:
			c.flush()
			msg := websocket.FormatCloseMessage(req.code, req.reason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait))
			return
		}
	}
}

// flush writes whatever is already queued so replies sent just before Close are not lost.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(mt int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	return c.ws.WriteMessage(mt, data)
}

// ReadPump delivers each text/binary frame to onFrame until the peer goes away.
func (c *Client) ReadPump(onFrame func([]byte)) {
	c.ws.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			logReadErr(c.id, c.principal.ID, err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		onFrame(data)
	}
}

func logReadErr(connID, userID string, err error) {
	var ne net.Error
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		logger.Debug("[WS] peer closed", zap.String("conn", connID), zap.String("user", userID))
	case errors.As(err, &ne) && ne.Timeout():
		logger.Info("[WS] read timeout", zap.String("conn", connID), zap.String("user", userID))
	default:
		logger.Debug("[WS] read err", zap.String("conn", connID), zap.String("user", userID), zap.Error(err))
	}
}
