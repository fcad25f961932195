package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatline/chat-delivery-service/config"
	httphandler "github.com/chatline/chat-delivery-service/internal/handler/http"
	wshandler "github.com/chatline/chat-delivery-service/internal/handler/ws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
)

func NewMux(gateway *wshandler.Gateway, history *httphandler.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/ws", gateway.ServeHTTP)
	r.Route("/messages", func(r chi.Router) {
		r.Get("/history/{participantId}", history.History)
		r.Get("/{messageId}", history.GetMessage)
	})

	return r
}

func NewServer(cfg *config.Config, mux *chi.Mux, logger *slog.Logger, lc fx.Lifecycle) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("http server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

var Module = fx.Module("http-server",
	fx.Provide(NewMux, NewServer),
	fx.Invoke(func(*http.Server) {}),
)
