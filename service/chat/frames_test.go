package chat

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameValid(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"event":"join-connection","data":{"connectionId":"conn_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, JoinConnectionEvent{ConnectionID: "conn_1"}, ev)

	ev, err = ParseFrame([]byte(`{"event":"send-message","data":{"connectionId":"conn_1","message":{"text":"hi"}}}`))
	require.NoError(t, err)
	sm := ev.(SendMessageEvent)
	assert.Equal(t, "hi", sm.Message["text"])

	ev, err = ParseFrame([]byte(`{"event":"message-read","data":{"connectionId":"conn_1","messageIds":["m1","m2"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ev.(MessageReadEvent).MessageIDs)

	ev, err = ParseFrame([]byte(`{"event":"get-unread-counts"}`))
	require.NoError(t, err)
	assert.Equal(t, EventGetUnreadCounts, ev.EventName())
}

func TestParseFrameTrimsRoomID(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"event":"join-connection","data":{"connectionId":"  conn_1 "}}`))
	require.NoError(t, err)
	assert.Equal(t, JoinConnectionEvent{ConnectionID: "conn_1"}, ev)

	ev, err = ParseFrame([]byte(`{"event":"send-message","data":{"connectionId":" conn_1","message":{"text":"hi"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "conn_1", ev.(SendMessageEvent).ConnectionID)

	ev, err = ParseFrame([]byte(`{"event":"message-read","data":{"connectionId":"conn_1\t","messageIds":["m1"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "conn_1", ev.(MessageReadEvent).ConnectionID)

	_, err = ParseFrame([]byte(`{"event":"typing","data":{"connectionId":"   "}}`))
	assert.Error(t, err)
}

func TestParseFrameRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", `nope`, CodeBadFrame},
		{"array", `[1,2]`, CodeBadFrame},
		{"no event", `{"data":{}}`, CodeBadFrame},
		{"unknown", `{"event":"drop-tables"}`, CodeUnknownEvent},
		{"missing room", `{"event":"typing","data":{}}`, CodeBadPayload},
		{"room wrong type", `{"event":"typing","data":{"connectionId":42}}`, CodeBadPayload},
		{"missing message", `{"event":"send-message","data":{"connectionId":"c"}}`, CodeBadPayload},
		{"empty ids", `{"event":"message-read","data":{"connectionId":"c","messageIds":[]}}`, CodeBadPayload},
		{"blank id", `{"event":"message-read","data":{"connectionId":"c","messageIds":[" "]}}`, CodeBadPayload},
		{"empty token", `{"event":"auth","data":{"token":""}}`, CodeBadPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFrame([]byte(tc.raw))
			var pe *ProtocolError
			require.True(t, errors.As(err, &pe), "err=%v", err)
			assert.Equal(t, tc.code, pe.Code)
		})
	}
}

func TestEncode(t *testing.T) {
	b, err := Encode(EventUserOnline, PresencePayload{UserID: "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user:online","data":{"userId":"u1"}}`, string(b))

	_, err = Encode(EventNotification, func() {})
	assert.Error(t, err)
}
