package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recentDepositCapacity bounds the dedup window for inbox appends across
// queue redeliveries.
const recentDepositCapacity = 65536

// Dispatcher is the consume path: for each queue item it decides between a
// live emit to a local session and an offline inbox deposit.
type Dispatcher struct {
	presence UserConnectionCache
	inbox    MessageInboxCache
	msgCache MessageCache
	local    LocalDeliverer

	// recent remembers messageIds already deposited by this instance so an
	// at-least-once redelivery does not append the same id twice.
	recent *lru.Cache[string, struct{}]

	logger *slog.Logger
	tracer trace.Tracer
}

func NewDispatcher(
	presence UserConnectionCache,
	inbox MessageInboxCache,
	msgCache MessageCache,
	local LocalDeliverer,
	logger *slog.Logger,
) *Dispatcher {
	recent, _ := lru.New[string, struct{}](recentDepositCapacity)

	return &Dispatcher{
		presence: presence,
		inbox:    inbox,
		msgCache: msgCache,
		local:    local,
		recent:   recent,
		logger:   logger,
		tracer:   otel.Tracer("service/dispatcher"),
	}
}

// Dispatch processes one queue item. A nil return acknowledges the item;
// any error leaves it on the queue for redelivery, which is safe because
// both branches are idempotent in their effects.
func (d *Dispatcher) Dispatch(ctx context.Context, item *model.QueueItem) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.Dispatch",
		trace.WithAttributes(
			attribute.String("message_id", item.MessageID),
			attribute.String("receiver_id", item.ReceiverID),
		))
	defer span.End()

	online, err := d.presence.IsUserOnline(ctx, item.ReceiverID)
	if err != nil {
		return fmt.Errorf("dispatch: presence check: %w", err)
	}

	if online {
		ev := model.NewIncomingMessageEvent(item.ToMessage())
		if d.local.SendToUser(item.ReceiverID, ev) {
			d.logger.Debug("message delivered live",
				"message_id", item.MessageID,
				"receiver_id", item.ReceiverID,
			)
			return nil
		}
		// Presence said online but no local session took the emit: the
		// receiver sits on another instance or the hint is stale. Fall
		// through to the offline deposit.
	}

	return d.deposit(ctx, item)
}

func (d *Dispatcher) deposit(ctx context.Context, item *model.QueueItem) error {
	if _, seen := d.recent.Get(item.MessageID); seen {
		d.logger.Debug("skipping duplicate inbox deposit",
			"message_id", item.MessageID,
			"receiver_id", item.ReceiverID,
		)
		return nil
	}

	if err := d.inbox.AddToInbox(ctx, item.ReceiverID, item.MessageID); err != nil {
		return fmt.Errorf("dispatch: inbox deposit: %w", err)
	}
	d.recent.Add(item.MessageID, struct{}{})

	// Best effort: the 24h hash only speeds up the next drain.
	if err := d.msgCache.CacheMessage(ctx, item); err != nil {
		d.logger.Warn("message fast-fetch caching failed",
			"message_id", item.MessageID,
			"err", err,
		)
	}

	d.logger.Debug("message deposited to inbox",
		"message_id", item.MessageID,
		"receiver_id", item.ReceiverID,
	)
	return nil
}
