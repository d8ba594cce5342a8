package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncode(t *testing.T) {
	frame, err := Encode("playerAssigned", map[string]string{"side": "left", "gameId": "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"playerAssigned","data":{"side":"left","gameId":"abc"}}`, string(frame))
}

func TestEncode_NilDataOmitted(t *testing.T) {
	frame, err := Encode("waitingForOpponent", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"waitingForOpponent"}`, string(frame))
}

func TestEncode_Unencodable(t *testing.T) {
	_, err := Encode("gameState", make(chan int))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"event":"joinGame","data":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "joinGame", env.Event)
	assert.JSONEq(t, `"abc"`, string(env.Data))
}

func TestDecode_Rejects(t *testing.T) {
	for _, frame := range []string{``, `not json`, `[]`, `{"data":"abc"}`, `{"event":""}`} {
		_, err := Decode([]byte(frame))
		assert.Error(t, err, "frame %q", frame)
	}
	_, err := Decode([]byte(`{"data":1}`))
	assert.ErrorIs(t, err, ErrMissingEvent)
}

func TestProperty_EncodeDecodeString(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		event := rapid.StringMatching(`[a-zA-Z]{1,16}`).Draw(t, "event")
		payload := rapid.String().Draw(t, "payload")

		frame, err := Encode(event, payload)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		env, err := Decode(frame)
		if err != nil {
			t.Fatalf("decode %s: %v", frame, err)
		}
		if env.Event != event {
			t.Fatalf("event %q became %q", event, env.Event)
		}
	})
}
