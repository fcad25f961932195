package service

import (
	"context"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
)

// MessageStore is the durable record of every accepted message.
type MessageStore interface {
	Create(ctx context.Context, senderID, receiverID, content string, timestamp time.Time) (*model.Message, error)
	FindByID(ctx context.Context, messageID string) (*model.Message, error)
	MarkDelivered(ctx context.Context, messageID string) error
	MarkUndelivered(ctx context.Context, messageID string) error
	DeleteByID(ctx context.Context, messageID string) error
	FindUndelivered(ctx context.Context, receiverID string) ([]*model.Message, error)
	ChatHistory(ctx context.Context, userID, participantID string, before *time.Time, limit int64) ([]*model.Message, error)
	DeleteDeliveredOlderThan(ctx context.Context, days int) (int64, error)
}

// MessageInboxCache holds the per-receiver ordered list of messageIds
// awaiting first delivery.
type MessageInboxCache interface {
	AddToInbox(ctx context.Context, userID, messageID string) error
	GetInbox(ctx context.Context, userID string) ([]string, error)
	RemoveFromInbox(ctx context.Context, userID, messageID string) error
	ClearInbox(ctx context.Context, userID string) error
}

// UserConnectionCache is the cross-instance presence hint.
type UserConnectionCache interface {
	SetUserConnection(ctx context.Context, userID, serverID string) error
	IsUserOnline(ctx context.Context, userID string) (bool, error)
	RemoveUserConnection(ctx context.Context, userID string) error
	GetUserServerID(ctx context.Context, userID string) (string, error)
}

// MessageCache is the short-horizon fast-fetch copy of a queued message.
type MessageCache interface {
	CacheMessage(ctx context.Context, item *model.QueueItem) error
	GetCachedMessage(ctx context.Context, messageID string) (*model.Message, error)
}

// QueuePublisher hands an accepted message to the durable queue.
type QueuePublisher interface {
	Publish(ctx context.Context, item *model.QueueItem) error
}

// LocalDeliverer attempts a live emit to a session bound on this instance.
// It reports true only when a local session exists and the transport-level
// send was attempted.
type LocalDeliverer interface {
	SendToUser(userID string, ev model.Eventer) bool
}
