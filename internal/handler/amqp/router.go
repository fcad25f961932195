package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/chatline/chat-delivery-service/config"
	infrapubsub "github.com/chatline/chat-delivery-service/infra/pubsub"
	"github.com/chatline/chat-delivery-service/internal/domain/model"
)

const poisonSuffix = ".poison"

func NewWatermillRouter(wlog watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wlog)
	if err != nil {
		return nil, &model.QueueConsumeError{Err: fmt.Errorf("build router: %w", err)}
	}
	router.AddMiddleware(middleware.Recoverer)
	return router, nil
}

// RegisterHandlers wires the single dispatcher consumer onto the durable
// chat queue. One handler goroutine with prefetch 1 keeps per-receiver
// enqueue order; sharding by receiver would be the change here if
// cross-recipient parallelism is ever needed.
func RegisterHandlers(
	router *message.Router,
	provider *infrapubsub.Provider,
	consumer *Consumer,
	cfg *config.Config,
	logger *slog.Logger,
) error {
	return addConsumerPipeline(
		router,
		provider.Publisher(),
		provider.Subscriber(),
		consumer.Handle,
		cfg.Queue.Name,
		NewRetryMiddleware(),
		logger,
	)
}

// addConsumerPipeline assembles the handler middleware chain. The first
// middleware listed is the outermost, so the poison hop must precede retry:
// a delivery lands on the poison queue only after the whole retry budget is
// spent, and every earlier failure stays a nack with requeue.
func addConsumerPipeline(
	router *message.Router,
	pub message.Publisher,
	sub message.Subscriber,
	handler message.NoPublishHandlerFunc,
	queue string,
	retry middleware.Retry,
	logger *slog.Logger,
) error {
	poison, err := middleware.PoisonQueue(pub, queue+poisonSuffix)
	if err != nil {
		return &model.QueueConsumeError{Err: fmt.Errorf("poison queue setup: %w", err)}
	}

	router.AddConsumerHandler(
		"chat-dispatcher",
		queue,
		sub,
		handler,
	).AddMiddleware(
		TraceIDMiddleware,
		LoggingMiddleware(logger),
		poison,
		retry.Middleware,
		middleware.Timeout(time.Second*30),
	)

	logger.Info("queue consumer pipeline ready",
		"queue", queue,
		"poison_queue", queue+poisonSuffix,
	)
	return nil
}
