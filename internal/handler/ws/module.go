package ws

import (
	"github.com/chatline/chat-delivery-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ws-gateway",
	fx.Provide(
		NewGateway,
		func(g *Gateway) service.LocalDeliverer { return g },
	),
)
