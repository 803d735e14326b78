package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "pplink", c.Mongo.Database)
	assert.Equal(t, 168*time.Hour, c.JWT.TTL)
	assert.Equal(t, 10*time.Second, c.Socket.AuthTimeout)
	assert.False(t, c.RedisEnabled())
	assert.False(t, c.NatsEnabled())
	assert.False(t, c.LLMEnabled())
}

func TestLoadOptionalBackends(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("NATS_SERVERS", "nats://a:4222,nats://b:4222")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.RedisEnabled())
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, c.Nats.Servers)
	assert.True(t, c.LLMEnabled())
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "short")
	_, err = Load()
	assert.Error(t, err)
}
