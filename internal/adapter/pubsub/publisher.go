package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/chatline/chat-delivery-service/config"
	infrapubsub "github.com/chatline/chat-delivery-service/infra/pubsub"
	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
)

// Interface guard
var _ service.QueuePublisher = (*QueuePublisher)(nil)

// QueuePublisher hands accepted messages to the durable chat queue.
// Deliveries are persistent (durable-queue marshaler default), so an
// accepted message survives a broker restart.
type QueuePublisher struct {
	publisher message.Publisher
	queue     string
}

func NewQueuePublisher(cfg *config.Config, provider *infrapubsub.Provider) *QueuePublisher {
	return &QueuePublisher{
		publisher: provider.Publisher(),
		queue:     cfg.Queue.Name,
	}
}

func (p *QueuePublisher) Publish(ctx context.Context, item *model.QueueItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return &model.QueuePublishError{Err: fmt.Errorf("marshal queue item: %w", err)}
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.queue, msg); err != nil {
		return &model.QueuePublishError{Err: err}
	}
	return nil
}
