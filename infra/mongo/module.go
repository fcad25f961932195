package mongo

import (
	"context"
	"fmt"

	"github.com/chatline/chat-delivery-service/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

func NewDatabase(cfg *config.Config, lc fx.Lifecycle) (*mongo.Database, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.Store.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect %s: %w", cfg.Store.URI, err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx, nil); err != nil {
				return fmt.Errorf("mongo: ping: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client.Database(cfg.Store.Database), nil
}

var Module = fx.Module("mongo",
	fx.Provide(NewDatabase),
)
