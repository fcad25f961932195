package model

import "time"

// Message is the core persisted entity of the delivery pipeline.
//
// Undelivered is true from creation until the receiver acknowledges the
// delivery; DeliveredAt is set exactly when Undelivered flips to false and
// cleared again by the acknowledgment compensator. Timestamp is the
// sender-supplied wall clock, retained verbatim and used as the history
// sort key.
type Message struct {
	ID          string
	SenderID    string
	ReceiverID  string
	Content     string
	Timestamp   time.Time
	Undelivered bool
	DeliveredAt *time.Time
	ReadAt      *time.Time
}
