package model

import (
	"time"

	"github.com/google/uuid"
)

// Interface guard
var _ Eventer = (*Event)(nil)

// IncomingMessagePayload is pushed to the receiver, live or on drain.
type IncomingMessagePayload struct {
	Type      string `json:"type"` // always "incoming_message"
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}

// MessageReceivedPayload is the sender's receipt. MessageIDByClient echoes
// the client-supplied id so an optimistic UI can reconcile with the
// server-assigned one.
type MessageReceivedPayload struct {
	Action            string `json:"action"` // always "message_received"
	MessageID         string `json:"message_id"`
	MessageIDByClient int64  `json:"message_id_by_client"`
	Timestamp         int64  `json:"timestamp"`
}

// ErrorPayload reports an inbound event failure back on the same session.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Event is the single concrete carrier behind Eventer.
type Event struct {
	id         string
	userID     string
	kind       EventKind
	priority   EventPriority
	occurredAt int64
	payload    any
	cached     any // transport marshal cache, written by the session pump
}

func (e *Event) GetID() string              { return e.id }
func (e *Event) GetKind() EventKind         { return e.kind }
func (e *Event) GetUserID() string          { return e.userID }
func (e *Event) GetPriority() EventPriority { return e.priority }
func (e *Event) GetOccurredAt() int64       { return e.occurredAt }
func (e *Event) GetPayload() any            { return e.payload }
func (e *Event) GetCached() any             { return e.cached }
func (e *Event) SetCached(v any)            { e.cached = v }

// NewIncomingMessageEvent targets the message's receiver. The event id is
// the messageId itself, which is what clients de-duplicate on under the
// at-least-once guarantee.
func NewIncomingMessageEvent(msg *Message) *Event {
	return &Event{
		id:         msg.ID,
		userID:     msg.ReceiverID,
		kind:       IncomingMessage,
		priority:   PriorityHigh,
		occurredAt: msg.Timestamp.UnixMilli(),
		payload: &IncomingMessagePayload{
			Type:      "incoming_message",
			MessageID: msg.ID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.UnixMilli(),
		},
	}
}

func NewMessageReceivedEvent(userID, messageID string, messageIDByClient int64) *Event {
	now := time.Now().UnixMilli()
	return &Event{
		id:         messageID,
		userID:     userID,
		kind:       MessageReceived,
		priority:   PriorityHigh,
		occurredAt: now,
		payload: &MessageReceivedPayload{
			Action:            "message_received",
			MessageID:         messageID,
			MessageIDByClient: messageIDByClient,
			Timestamp:         now,
		},
	}
}

func NewErrorEvent(userID, msg string) *Event {
	return &Event{
		id:         uuid.NewString(),
		userID:     userID,
		kind:       ErrorNotice,
		priority:   PriorityNormal,
		occurredAt: time.Now().UnixMilli(),
		payload:    &ErrorPayload{Message: msg},
	}
}
