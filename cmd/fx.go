package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/chatline/chat-delivery-service/config"
	inframongo "github.com/chatline/chat-delivery-service/infra/mongo"
	infraotel "github.com/chatline/chat-delivery-service/infra/otel"
	infrapubsub "github.com/chatline/chat-delivery-service/infra/pubsub"
	infraredis "github.com/chatline/chat-delivery-service/infra/redis"
	httpsrv "github.com/chatline/chat-delivery-service/infra/server/http"
	mongoadapter "github.com/chatline/chat-delivery-service/internal/adapter/mongo"
	pubsubadapter "github.com/chatline/chat-delivery-service/internal/adapter/pubsub"
	redisadapter "github.com/chatline/chat-delivery-service/internal/adapter/redis"
	"github.com/chatline/chat-delivery-service/internal/domain/registry"
	amqphandler "github.com/chatline/chat-delivery-service/internal/handler/amqp"
	httphandler "github.com/chatline/chat-delivery-service/internal/handler/http"
	wshandler "github.com/chatline/chat-delivery-service/internal/handler/ws"
	"github.com/chatline/chat-delivery-service/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
		),
		infraotel.Module,
		inframongo.Module,
		infraredis.Module,
		infrapubsub.Module,
		mongoadapter.Module,
		redisadapter.Module,
		pubsubadapter.Module,
		registry.Module,
		service.Module,
		wshandler.Module,
		httphandler.Module,
		amqphandler.Module,
		httpsrv.Module,
	)
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Log.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(
		slog.String("service", ServiceName),
		slog.String("server_id", cfg.ServerID),
	)

	slog.SetDefault(logger)
	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}
