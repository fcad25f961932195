package redis

import (
	"github.com/chatline/chat-delivery-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("redis-cache",
	fx.Provide(
		NewCache,
		func(c *Cache) service.MessageInboxCache { return c },
		func(c *Cache) service.UserConnectionCache { return c },
		func(c *Cache) service.MessageCache { return c },
	),
)
