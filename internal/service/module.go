package service

import (
	"context"
	"log/slog"

	"github.com/chatline/chat-delivery-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		NewSender,
		NewAcker,
		NewDispatcher,
		func(cfg *config.Config, store MessageStore, logger *slog.Logger) *Sweeper {
			return NewSweeper(store, cfg.Store.RetentionDays, logger)
		},
	),

	fx.Invoke(func(lc fx.Lifecycle, sweeper *Sweeper) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				sweeper.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				sweeper.Stop()
				return nil
			},
		})
	}),
)
