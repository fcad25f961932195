package ws

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"event":"send_message","data":{"receiver_id":"u_bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, "send_message", env.Event)
	assert.JSONEq(t, `{"receiver_id":"u_bob"}`, string(env.Data))
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{`not json`, `{"data":{}}`, `{"event":""}`} {
		_, err := decodeEnvelope([]byte(raw))
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr, "input %q", raw)
	}
}

func TestDecodeSendMessage(t *testing.T) {
	p, err := decodeSendMessage([]byte(`{"receiver_id":"u_bob","content":"hi","message_id_by_client":7,"timestamp":1700000000000}`))
	require.NoError(t, err)
	assert.Equal(t, "u_bob", p.ReceiverID)
	assert.Equal(t, "hi", p.Content)
	assert.Equal(t, int64(7), p.MessageIDByClient)
	assert.Equal(t, int64(1700000000000), p.Timestamp)
}

func TestDecodeSendMessageContentBounds(t *testing.T) {
	frame := func(content string) []byte {
		return []byte(fmt.Sprintf(`{"receiver_id":"u_bob","content":%q,"timestamp":1700000000000}`, content))
	}

	_, err := decodeSendMessage(frame(strings.Repeat("x", service.MaxContentLength)))
	assert.NoError(t, err)

	_, err = decodeSendMessage(frame(strings.Repeat("x", service.MaxContentLength+1)))
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDecodeSendMessageCollectsAllReasons(t *testing.T) {
	_, err := decodeSendMessage([]byte(`{"receiver_id":"","content":"","timestamp":0}`))
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Reasons, 3)
}

func TestDecodeMessageDelivered(t *testing.T) {
	p, err := decodeMessageDelivered([]byte(`{"message_id":"m1","timestamp":1700000000000}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MessageID)

	_, err = decodeMessageDelivered([]byte(`{"timestamp":1700000000000}`))
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}
