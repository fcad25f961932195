package mongo

import (
	"context"

	"github.com/chatline/chat-delivery-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mongo-store",
	fx.Provide(
		NewStore,
		func(s *Store) service.MessageStore { return s },
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Store) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return s.EnsureIndexes(ctx)
			},
		})
	}),
)
