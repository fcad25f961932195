package pubsub

import (
	"github.com/chatline/chat-delivery-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub-adapter",
	fx.Provide(
		NewQueuePublisher,
		func(p *QueuePublisher) service.QueuePublisher { return p },
	),
)
