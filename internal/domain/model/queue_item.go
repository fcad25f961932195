package model

import (
	"fmt"
	"time"
)

// QueueItem is the wire payload crossing the durable queue between ingress
// and the dispatcher. Timestamp travels as ISO-8601.
type QueueItem struct {
	MessageID  string `json:"messageId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

func NewQueueItem(msg *Message) *QueueItem {
	return &QueueItem{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// Validate rejects payloads that lack the fields every consumer decision
// depends on. Content bounds are not re-checked here; ingress owns them.
func (q *QueueItem) Validate() error {
	var reasons []string
	if q.MessageID == "" {
		reasons = append(reasons, "messageId is required")
	}
	if q.SenderID == "" {
		reasons = append(reasons, "senderId is required")
	}
	if q.ReceiverID == "" {
		reasons = append(reasons, "receiverId is required")
	}
	if _, err := time.Parse(time.RFC3339Nano, q.Timestamp); err != nil {
		reasons = append(reasons, fmt.Sprintf("timestamp is not ISO-8601: %v", err))
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func (q *QueueItem) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, q.Timestamp)
	if err != nil {
		return time.Now()
	}
	return t
}

// ToMessage rebuilds the undelivered message view the dispatcher works with.
func (q *QueueItem) ToMessage() *Message {
	return &Message{
		ID:          q.MessageID,
		SenderID:    q.SenderID,
		ReceiverID:  q.ReceiverID,
		Content:     q.Content,
		Timestamp:   q.Time(),
		Undelivered: true,
	}
}
