package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// AppConfig is the whole process configuration, read from the environment.
type AppConfig struct {
	NodeID   string `env:"NODE_ID" envDefault:"pplink_01"` // 节点ID，参与 presence key 与集群事件去重
	NodeNum  int64  `env:"NODE_NUM" envDefault:"1"`        // 雪花节点号 0~1023
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogColor bool   `env:"LOG_COLOR" envDefault:"true"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Nats   NatsConfig
	JWT    JWTConfig
	LLM    LLMConfig
	Socket SocketConfig
}

type MongoConfig struct {
	Uri         string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database    string `env:"MONGO_DATABASE" envDefault:"pplink"`
	Username    string `env:"MONGO_USERNAME"`
	Password    string `env:"MONGO_PASSWORD"`
	AuthSource  string `env:"MONGO_AUTH_SOURCE"`
	MaxPoolSize int    `env:"MONGO_MAX_POOL_SIZE" envDefault:"20"`
	MaxRetry    int    `env:"MONGO_MAX_RETRY" envDefault:"3"`
}

// RedisConfig: empty Addr disables the presence mirror.
type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	PresenceTTL time.Duration `env:"REDIS_PRESENCE_TTL" envDefault:"24h"`
}

// NatsConfig: empty Servers runs the hub as a single process.
type NatsConfig struct {
	Servers  []string `env:"NATS_SERVERS" envSeparator:","`
	Name     string   `env:"NATS_NAME" envDefault:"pplink"`
	Subject  string   `env:"NATS_PRESENCE_SUBJECT" envDefault:"pplink.presence"`
	User     string   `env:"NATS_USER"`
	Password string   `env:"NATS_PASSWORD"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Alg    string        `env:"JWT_ALG" envDefault:"HS256"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`
}

// LLMConfig: empty APIKey disables AI ranking and the assistant.
type LLMConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	Model   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string        `env:"OPENAI_BASE_URL"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"30s"`
}

type SocketConfig struct {
	AuthTimeout     time.Duration `env:"WS_AUTH_TIMEOUT" envDefault:"10s"`  // 首帧鉴权的等待时间
	PongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`     // 读超时，超时即视为断开
	WriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	SendQueue       int           `env:"WS_SEND_QUEUE" envDefault:"256"`    // 每连接发送队列
	MaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"65536"`
	EffectTimeout   time.Duration `env:"WS_EFFECT_TIMEOUT" envDefault:"3s"` // best-effort 写库超时
	AllowedOrigins  []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load parses the environment into an AppConfig and validates it.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := env.Parse(&c); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if c.NodeNum < 0 || c.NodeNum > 1023 {
		return errors.Errorf("NODE_NUM out of range: %d", c.NodeNum)
	}
	if c.Socket.SendQueue <= 0 {
		return errors.New("WS_SEND_QUEUE must be positive")
	}
	return nil
}

func (c *AppConfig) RedisEnabled() bool { return strings.TrimSpace(c.Redis.Addr) != "" }
func (c *AppConfig) NatsEnabled() bool  { return len(c.Nats.Servers) > 0 }
func (c *AppConfig) LLMEnabled() bool   { return strings.TrimSpace(c.LLM.APIKey) != "" }
