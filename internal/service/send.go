package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const MaxContentLength = 1000

// Sender is the ingress path: it durably records an accepted message and
// enqueues it for the dispatcher, compensating on a partial failure.
type Sender struct {
	store  MessageStore
	queue  QueuePublisher
	logger *slog.Logger
	tracer trace.Tracer
}

func NewSender(store MessageStore, queue QueuePublisher, logger *slog.Logger) *Sender {
	return &Sender{
		store:  store,
		queue:  queue,
		logger: logger,
		tracer: otel.Tracer("service/sender"),
	}
}

// Send validates, persists and enqueues one directed message. The senderID
// is authoritative from the session binding, never from the client payload;
// the timestamp is the client's wall clock, retained verbatim.
//
// If the queue publish fails after the store write succeeded, the store row
// is deleted so no message can exist durably without a queue item. A failed
// compensation is logged at error level and not retried inline.
func (s *Sender) Send(ctx context.Context, senderID, receiverID, content string, timestamp time.Time) (*model.Message, error) {
	ctx, span := s.tracer.Start(ctx, "Sender.Send",
		trace.WithAttributes(attribute.String("receiver_id", receiverID)))
	defer span.End()

	if err := validateSend(senderID, receiverID, content); err != nil {
		return nil, err
	}

	msg, err := s.store.Create(ctx, senderID, receiverID, content, timestamp)
	if err != nil {
		return nil, fmt.Errorf("ingress: persist message: %w", err)
	}

	if err := s.queue.Publish(ctx, model.NewQueueItem(msg)); err != nil {
		if derr := s.store.DeleteByID(ctx, msg.ID); derr != nil {
			s.logger.Error("ingress compensation failed, stale undelivered row remains",
				"message_id", msg.ID,
				"sender_id", senderID,
				"err", derr,
			)
		}
		return nil, &model.QueuePublishError{Err: err}
	}

	return msg, nil
}

func validateSend(senderID, receiverID, content string) error {
	if senderID == "" {
		return model.ErrNotAuthenticated
	}

	var reasons []string
	if receiverID == "" {
		reasons = append(reasons, "receiver_id is required")
	}
	if content == "" {
		reasons = append(reasons, "content must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		reasons = append(reasons, fmt.Sprintf("content exceeds %d characters", MaxContentLength))
	}
	if len(reasons) > 0 {
		return &model.ValidationError{Reasons: reasons}
	}
	return nil
}
