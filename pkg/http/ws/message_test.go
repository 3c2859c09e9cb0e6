package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientRejectsMissingType(t *testing.T) {
	_, err := DecodeClient([]byte(`{"score": 100}`))
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestDecodeClientRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"death"`, `42`, `null`} {
		_, err := DecodeClient([]byte(raw))
		assert.ErrorIs(t, err, ErrBadMessage, "input %s", raw)
	}
}

func TestDecodeClientRejectsServerTags(t *testing.T) {
	// Server-to-client tags are not valid inbound.
	_, err := DecodeClient([]byte(`{"type":"question"}`))
	assert.ErrorIs(t, err, ErrBadMessage)

	_, err = DecodeClient([]byte(`{"type":"leaderboard_update"}`))
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestDecodeClientRejectsUnknownTags(t *testing.T) {
	_, err := DecodeClient([]byte(`{"type":"self_destruct"}`))
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestDecodeClientRejectsOversizedPayloads(t *testing.T) {
	big := fmt.Sprintf(`{"type":"special_event","event":{"blob":%q}}`, bytes.Repeat([]byte("x"), MaxMessageSize))
	_, err := DecodeClient([]byte(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeClientEnforcesRequiredFields(t *testing.T) {
	cases := []string{
		`{"type":"init"}`,
		`{"type":"init","role":"admin","token":"t"}`,
		`{"type":"death"}`,
		`{"type":"answer","question_id":"q1"}`,
		`{"type":"answer","question_id":"q1","answer_index":4,"time_ms":10}`,
		`{"type":"score_update"}`,
		`{"type":"special_event"}`,
	}
	for _, raw := range cases {
		_, err := DecodeClient([]byte(raw))
		assert.ErrorIs(t, err, ErrBadMessage, "input %s", raw)
	}
}

func TestDecodeClientIgnoresUnknownFields(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"type":"death","score":150,"frames":9000,"metadata":{"cause":"spikes"}}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Death)
	assert.Equal(t, 150, *msg.Death.Score)
}

func TestDecodeClientControlMessages(t *testing.T) {
	for _, typ := range []string{TypeStartSession, TypePauseSession, TypeResumeSession, TypeEndSession, TypePong} {
		msg, err := DecodeClient([]byte(fmt.Sprintf(`{"type":%q}`, typ)))
		require.NoError(t, err)
		assert.Equal(t, typ, msg.Type)
	}
}

func TestClientRoundTrip(t *testing.T) {
	score := 42
	idx := 2
	ms := 3400
	payloads := []any{
		InitPayload{Role: "player", Token: "tok", PlayerID: "p1"},
		DeathPayload{Score: &score},
		AnswerPayload{QuestionID: "q1", AnswerIndex: &idx, TimeMs: &ms},
		ScoreUpdatePayload{Score: &score},
		SpecialEventPayload{Event: json.RawMessage(`{"kind":"powerup"}`)},
	}
	types := []string{TypeInit, TypeDeath, TypeAnswer, TypeScoreUpdate, TypeSpecialEvent}

	for i, payload := range payloads {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		// Splice the type tag the way clients frame messages.
		tagged := []byte(fmt.Sprintf(`{"type":%q,%s`, types[i], body[1:]))

		decoded, err := DecodeClient(tagged)
		require.NoError(t, err, "payload %d", i)
		assert.Equal(t, types[i], decoded.Type)
	}
}

func TestEncodeSetsValidServerTag(t *testing.T) {
	data, err := Encode(NewError("expired", "expired"))
	require.NoError(t, err)

	typ, err := DecodeServerType(data)
	require.NoError(t, err)
	assert.Equal(t, TypeError, typ)

	var decoded ErrorMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, NewError("expired", "expired"), decoded)
}

func TestEncodeRejectsClientTags(t *testing.T) {
	_, err := Encode(struct {
		Type string `json:"type"`
	}{Type: TypeDeath})
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestEncodeRoundTripsQuestionWithoutCorrectIndex(t *testing.T) {
	msg := QuestionMessage{
		Type:       TypeQuestion,
		QuestionID: "m1",
		Text:       "3 + 4 = ?",
		Options:    []string{"7", "8", "6", "5"},
	}
	data, err := Encode(msg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "correct", "the wire format never leaks the answer")

	var decoded QuestionMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg, decoded)
}
