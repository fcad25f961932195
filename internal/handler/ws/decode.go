package ws

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
)

const (
	eventSendMessage      = "send_message"
	eventMessageDelivered = "message_delivered"
)

// envelope frames every inbound transport event: a name and a raw payload
// each event decoder owns.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendMessagePayload struct {
	ReceiverID        string `json:"receiver_id"`
	Content           string `json:"content"`
	MessageIDByClient int64  `json:"message_id_by_client"`
	Timestamp         int64  `json:"timestamp"` // ms since epoch
}

type messageDeliveredPayload struct {
	MessageID string `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
}

func decodeEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &model.ValidationError{Reasons: []string{"malformed event frame"}}
	}
	if env.Event == "" {
		return nil, &model.ValidationError{Reasons: []string{"event name is required"}}
	}
	return &env, nil
}

func decodeSendMessage(data []byte) (*sendMessagePayload, error) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &model.ValidationError{Reasons: []string{"malformed send_message payload"}}
	}

	var reasons []string
	if p.ReceiverID == "" {
		reasons = append(reasons, "receiver_id is required")
	}
	if p.Content == "" {
		reasons = append(reasons, "content must not be empty")
	}
	if utf8.RuneCountInString(p.Content) > service.MaxContentLength {
		reasons = append(reasons, fmt.Sprintf("content exceeds %d characters", service.MaxContentLength))
	}
	if p.Timestamp <= 0 {
		reasons = append(reasons, "timestamp must be a positive epoch-ms value")
	}
	if len(reasons) > 0 {
		return nil, &model.ValidationError{Reasons: reasons}
	}
	return &p, nil
}

func decodeMessageDelivered(data []byte) (*messageDeliveredPayload, error) {
	var p messageDeliveredPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &model.ValidationError{Reasons: []string{"malformed message_delivered payload"}}
	}
	if p.MessageID == "" {
		return nil, &model.ValidationError{Reasons: []string{"message_id is required"}}
	}
	return &p, nil
}
