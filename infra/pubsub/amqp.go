package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/chatline/chat-delivery-service/config"
	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"go.uber.org/fx"
)

// Provider owns the AMQP publisher and subscriber built from one durable
// queue topology: queue and messages survive a broker restart, the broker
// client reconnects on its own, and the consumer acks manually.
type Provider struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewProvider(cfg *config.Config, wlog watermill.LoggerAdapter) (*Provider, error) {
	amqpCfg := amqp.NewDurableQueueConfig(cfg.Queue.URL)

	// Prefetch 1 with a single consumer keeps queue order end to end,
	// which is what gives the per-receiver ordering guarantee.
	amqpCfg.Consume.Qos.PrefetchCount = 1

	publisher, err := amqp.NewPublisher(amqpCfg, wlog)
	if err != nil {
		return nil, &model.QueueConsumeError{Err: fmt.Errorf("build publisher: %w", err)}
	}

	subscriber, err := amqp.NewSubscriber(amqpCfg, wlog)
	if err != nil {
		_ = publisher.Close()
		return nil, &model.QueueConsumeError{Err: fmt.Errorf("build subscriber: %w", err)}
	}

	return &Provider{publisher: publisher, subscriber: subscriber}, nil
}

func (p *Provider) Publisher() message.Publisher   { return p.publisher }
func (p *Provider) Subscriber() message.Subscriber { return p.subscriber }

func (p *Provider) Close() error {
	perr := p.publisher.Close()
	serr := p.subscriber.Close()
	if perr != nil {
		return perr
	}
	return serr
}

var Module = fx.Module("pubsub",
	fx.Provide(NewProvider),
	fx.Invoke(func(lc fx.Lifecycle, p *Provider) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return p.Close()
			},
		})
	}),
)
