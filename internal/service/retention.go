package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper deletes delivered messages older than the retention horizon.
// Undelivered rows are never touched; they wait for the receiver.
type Sweeper struct {
	store    MessageStore
	days     int
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(store MessageStore, days int, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		days:     days,
		interval: 24 * time.Hour,
		logger:   logger,
	}
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)
}

func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	deleted, err := s.store.DeleteDeliveredOlderThan(ctx, s.days)
	if err != nil {
		s.logger.Error("retention sweep failed", "err", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("retention sweep completed", "deleted", deleted, "horizon_days", s.days)
	}
}
