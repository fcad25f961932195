package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	// TTLs: presence must expire fast after a silent crash, the inbox must
	// survive a long absence, the message hash is only a fast-fetch copy.
	presenceTTL = 3600 * time.Second
	inboxTTL    = 31536000 * time.Second
	messageTTL  = 86400 * time.Second

	opTimeout = 2 * time.Second
)

// Interface guards
var (
	_ service.MessageInboxCache   = (*Cache)(nil)
	_ service.UserConnectionCache = (*Cache)(nil)
	_ service.MessageCache        = (*Cache)(nil)
)

func connectionKey(userID string) string { return "ws:connection:" + userID }
func inboxKey(userID string) string      { return "inbox:" + userID }
func messageKey(messageID string) string { return "msg:" + messageID }

// Cache implements the inbox list, the presence hint and the short-horizon
// message hash over one Redis client. Every operation runs under a 2s
// deadline behind a shared circuit breaker; any failure surfaces as a
// CacheOperationError carrying the operation name and key.
type Cache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-cache",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Cache{
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

func (c *Cache) run(ctx context.Context, op, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		return fn(opCtx)
	})
	if err != nil {
		return nil, &model.CacheOperationError{Op: op, Key: key, Err: err}
	}
	return res, nil
}

// AddToInbox appends messageID and refreshes the inbox TTL so an offline
// user's backlog survives extended absence.
func (c *Cache) AddToInbox(ctx context.Context, userID, messageID string) error {
	key := inboxKey(userID)
	_, err := c.run(ctx, "AddToInbox", key, func(ctx context.Context) (any, error) {
		pipe := c.client.TxPipeline()
		pipe.RPush(ctx, key, messageID)
		pipe.Expire(ctx, key, inboxTTL)
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return err
}

// GetInbox returns all pending messageIds in insertion order.
func (c *Cache) GetInbox(ctx context.Context, userID string) ([]string, error) {
	key := inboxKey(userID)
	res, err := c.run(ctx, "GetInbox", key, func(ctx context.Context) (any, error) {
		return c.client.LRange(ctx, key, 0, -1).Result()
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// RemoveFromInbox removes the first occurrence of messageID.
func (c *Cache) RemoveFromInbox(ctx context.Context, userID, messageID string) error {
	key := inboxKey(userID)
	_, err := c.run(ctx, "RemoveFromInbox", key, func(ctx context.Context) (any, error) {
		return c.client.LRem(ctx, key, 1, messageID).Result()
	})
	return err
}

func (c *Cache) ClearInbox(ctx context.Context, userID string) error {
	key := inboxKey(userID)
	_, err := c.run(ctx, "ClearInbox", key, func(ctx context.Context) (any, error) {
		return c.client.Del(ctx, key).Result()
	})
	return err
}

func (c *Cache) SetUserConnection(ctx context.Context, userID, serverID string) error {
	key := connectionKey(userID)
	_, err := c.run(ctx, "SetUserConnection", key, func(ctx context.Context) (any, error) {
		return c.client.Set(ctx, key, serverID, presenceTTL).Result()
	})
	return err
}

func (c *Cache) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	key := connectionKey(userID)
	res, err := c.run(ctx, "IsUserOnline", key, func(ctx context.Context) (any, error) {
		return c.client.Exists(ctx, key).Result()
	})
	if err != nil {
		return false, err
	}
	return res.(int64) > 0, nil
}

func (c *Cache) RemoveUserConnection(ctx context.Context, userID string) error {
	key := connectionKey(userID)
	_, err := c.run(ctx, "RemoveUserConnection", key, func(ctx context.Context) (any, error) {
		return c.client.Del(ctx, key).Result()
	})
	return err
}

// GetUserServerID returns the instance the user is connected to, or empty
// when the hint is absent. The hint is advisory only.
func (c *Cache) GetUserServerID(ctx context.Context, userID string) (string, error) {
	key := connectionKey(userID)
	res, err := c.run(ctx, "GetUserServerID", key, func(ctx context.Context) (any, error) {
		serverID, err := c.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return serverID, err
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (c *Cache) CacheMessage(ctx context.Context, item *model.QueueItem) error {
	key := messageKey(item.MessageID)
	_, err := c.run(ctx, "CacheMessage", key, func(ctx context.Context) (any, error) {
		pipe := c.client.TxPipeline()
		pipe.HSet(ctx, key, map[string]any{
			"senderId":   item.SenderID,
			"receiverId": item.ReceiverID,
			"content":    item.Content,
			"timestamp":  item.Timestamp,
		})
		pipe.Expire(ctx, key, messageTTL)
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return err
}

// GetCachedMessage returns ErrMessageNotFound when the hash is absent or
// expired; callers fall back to the store.
func (c *Cache) GetCachedMessage(ctx context.Context, messageID string) (*model.Message, error) {
	key := messageKey(messageID)
	res, err := c.run(ctx, "GetCachedMessage", key, func(ctx context.Context) (any, error) {
		return c.client.HGetAll(ctx, key).Result()
	})
	if err != nil {
		return nil, err
	}

	fields := res.(map[string]string)
	if len(fields) == 0 {
		return nil, model.ErrMessageNotFound
	}

	ts, err := time.Parse(time.RFC3339Nano, fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("cache: message %s has malformed timestamp: %w", messageID, err)
	}

	return &model.Message{
		ID:          messageID,
		SenderID:    fields["senderId"],
		ReceiverID:  fields["receiverId"],
		Content:     fields["content"],
		Timestamp:   ts,
		Undelivered: true,
	}, nil
}
