package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewConsumer,
		NewWatermillRouter,
	),

	fx.Invoke(RegisterHandlers),

	// The router runs for the whole app lifetime; Close drains in-flight
	// deliveries before shutdown completes.
	fx.Invoke(func(lc fx.Lifecycle, router *message.Router, logger *slog.Logger) {
		runCtx, cancel := context.WithCancel(context.Background())

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := router.Run(runCtx); err != nil {
						logger.Error("queue router stopped", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				return router.Close()
			},
		})
	}),
)
