package amqp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
)

// Consumer binds the durable chat queue to the dispatcher. A nil return
// acks the delivery; an error nacks it back onto the queue, where the
// retry middleware and the poison queue bound the redelivery loop.
type Consumer struct {
	dispatcher *service.Dispatcher
	logger     *slog.Logger
}

func NewConsumer(dispatcher *service.Dispatcher, logger *slog.Logger) *Consumer {
	return &Consumer{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (c *Consumer) Handle(msg *message.Message) (err error) {
	// Keep the consumer loop alive through handler panics.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("dispatcher panic recovered",
				"err", r,
				"stack", string(debug.Stack()),
				"msg_id", msg.UUID,
			)
			err = fmt.Errorf("dispatcher panic: %v", r)
		}
	}()

	item := new(model.QueueItem)
	if err := json.Unmarshal(msg.Payload, item); err != nil {
		// Deliberate pessimism: a transient decode bug must not lose the
		// message, so the item is requeued until the poison queue takes it.
		c.logger.Error("queue payload decode failed", "msg_id", msg.UUID, "err", err)
		return fmt.Errorf("decode queue item: %w", err)
	}

	if err := item.Validate(); err != nil {
		c.logger.Error("queue payload invalid", "msg_id", msg.UUID, "err", err)
		return err
	}

	return c.dispatcher.Dispatch(msg.Context(), item)
}
