package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeySymmetric(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.NotEqual(t, PairKey("a", "b"), PairKey("a", "c"))
}

func TestPeerAndInvolves(t *testing.T) {
	c := &Connection{RequesterID: "u1", RecipientID: "u2"}
	assert.Equal(t, "u2", c.Peer("u1"))
	assert.Equal(t, "u1", c.Peer("u2"))
	assert.True(t, c.Involves("u1"))
	assert.False(t, c.Involves("u3"))
	assert.True(t, StatusAccepted.Valid())
	assert.False(t, Status("blocked").Valid())
}
