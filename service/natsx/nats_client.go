package natsx

import (
	"context"
	"strings"
	"sync"
	"time"

	"PPLink/logger"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NatsxConfig 客户端配置
type NatsxConfig struct {
	Servers       []string
	Name          string
	User          string
	Password      string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsxClient is a core-NATS (no JetStream) connection used for cluster fan-out.
type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNatsxClient 连接 NATS
func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("[NATS] disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &NatsxClient{cfg: cfg, nc: nc}, nil
}

// Publish 发布一条消息（core 模式，无持久化）
func (c *NatsxClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(c.nc.Publish(subject, data), "nats publish %s", subject)
}

// Subscribe registers fn for subject. fn runs on the NATS client's delivery goroutine.
func (c *NatsxClient) Subscribe(subject string, fn func(data []byte)) (func(), error) {
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		fn(m.Data)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "nats subscribe %s", subject)
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close 优雅关闭
func (c *NatsxClient) Close() error {
	c.mu.Lock()
	for _, sub := range c.subs {
		_ = sub.Drain()
	}
	c.subs = nil
	c.mu.Unlock()
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

// SubjectBus binds a client to one subject; it satisfies the hub's cluster bus contract.
type SubjectBus struct {
	client  *NatsxClient
	subject string
}

func NewSubjectBus(client *NatsxClient, subject string) *SubjectBus {
	return &SubjectBus{client: client, subject: subject}
}

func (b *SubjectBus) Publish(ctx context.Context, data []byte) error {
	return b.client.Publish(ctx, b.subject, data)
}

func (b *SubjectBus) Subscribe(fn func(data []byte)) (func(), error) {
	return b.client.Subscribe(b.subject, fn)
}
