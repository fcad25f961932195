package redis

import (
	"context"
	"fmt"

	"github.com/chatline/chat-delivery-service/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func NewClient(cfg *config.Config, lc fx.Lifecycle) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.Addr(),
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: ping %s: %w", cfg.Cache.Addr(), err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)
