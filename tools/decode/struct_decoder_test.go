package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readPayload struct {
	ConnectionID string         `json:"connectionId"`
	MessageIDs   []string       `json:"messageIds"`
	Limit        int            `json:"limit"`
	Meta         map[string]any `json:"meta"`
}

func TestMap(t *testing.T) {
	out, err := Map[readPayload](map[string]any{
		"connectionId": "c1",
		"messageIds":   []any{"m1", "m2"},
		"limit":        float64(20),
		"meta":         `{"k":"v"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", out.ConnectionID)
	assert.Equal(t, []string{"m1", "m2"}, out.MessageIDs)
	assert.Equal(t, 20, out.Limit)
	assert.Equal(t, "v", out.Meta["k"])
}

func TestMapNil(t *testing.T) {
	out, err := Map[readPayload](nil)
	require.NoError(t, err)
	assert.Empty(t, out.ConnectionID)
}

func TestMapWrongShape(t *testing.T) {
	_, err := Map[readPayload](map[string]any{"messageIds": map[string]any{"x": 1}})
	assert.Error(t, err)
}

func TestMapErrorUnused(t *testing.T) {
	_, err := Map[readPayload](map[string]any{"bogus": 1}, Options{ErrorUnused: true})
	assert.Error(t, err)
}
