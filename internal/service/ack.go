package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Acker finalizes a delivery: the store row flips to delivered, then the
// message leaves the receiver's inbox.
type Acker struct {
	store  MessageStore
	inbox  MessageInboxCache
	logger *slog.Logger
	tracer trace.Tracer
}

func NewAcker(store MessageStore, inbox MessageInboxCache, logger *slog.Logger) *Acker {
	return &Acker{
		store:  store,
		inbox:  inbox,
		logger: logger,
		tracer: otel.Tracer("service/acker"),
	}
}

// Confirm marks messageID delivered and removes one inbox occurrence.
// When the inbox removal fails after a successful mark, the mark is rolled
// back so the receiver gets the message again on the next drain; a
// duplicate is preferred over a loss.
func (a *Acker) Confirm(ctx context.Context, userID, messageID string) error {
	ctx, span := a.tracer.Start(ctx, "Acker.Confirm",
		trace.WithAttributes(attribute.String("message_id", messageID)))
	defer span.End()

	if err := a.store.MarkDelivered(ctx, messageID); err != nil {
		return fmt.Errorf("ack: mark delivered: %w", err)
	}

	if err := a.inbox.RemoveFromInbox(ctx, userID, messageID); err != nil {
		if rerr := a.store.MarkUndelivered(ctx, messageID); rerr != nil {
			a.logger.Error("ack rollback failed, delivered flag may be inconsistent with inbox",
				"message_id", messageID,
				"user_id", userID,
				"err", rerr,
			)
		}
		return fmt.Errorf("ack: remove from inbox: %w", err)
	}

	return nil
}
