package amqp

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoisonQueueOnlyAfterRetryBudget(t *testing.T) {
	wlog := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, wlog)

	router, err := NewWatermillRouter(wlog)
	require.NoError(t, err)

	var attempts atomic.Int32
	failing := func(msg *message.Message) error {
		attempts.Add(1)
		return errors.New("dispatch unavailable")
	}

	// Same chain as production, with the backoff shrunk so the budget is
	// spent within the test.
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
	require.NoError(t, addConsumerPipeline(
		router, pubsub, pubsub, failing,
		"chat.messages", retry, slog.New(slog.DiscardHandler),
	))

	poisoned, err := pubsub.Subscribe(context.Background(), "chat.messages"+poisonSuffix)
	require.NoError(t, err)

	go func() {
		_ = router.Run(context.Background())
	}()
	defer router.Close()
	<-router.Running()

	require.NoError(t, pubsub.Publish("chat.messages",
		message.NewMessage(watermill.NewUUID(), []byte(`{}`))))

	select {
	case msg := <-poisoned:
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("delivery never reached the poison queue")
	}

	// Initial attempt plus the three retries must all happen before the
	// poison hop takes the delivery out of the loop.
	assert.GreaterOrEqual(t, attempts.Load(), int32(4))
}

func TestPoisonQueueUntouchedOnSuccess(t *testing.T) {
	wlog := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, wlog)

	router, err := NewWatermillRouter(wlog)
	require.NoError(t, err)

	handled := make(chan struct{}, 1)
	ok := func(msg *message.Message) error {
		handled <- struct{}{}
		return nil
	}

	require.NoError(t, addConsumerPipeline(
		router, pubsub, pubsub, ok,
		"chat.messages", NewRetryMiddleware(), slog.New(slog.DiscardHandler),
	))

	poisoned, err := pubsub.Subscribe(context.Background(), "chat.messages"+poisonSuffix)
	require.NoError(t, err)

	go func() {
		_ = router.Run(context.Background())
	}()
	defer router.Close()
	<-router.Running()

	require.NoError(t, pubsub.Publish("chat.messages",
		message.NewMessage(watermill.NewUUID(), []byte(`{}`))))

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}

	select {
	case <-poisoned:
		t.Fatal("successful delivery must not reach the poison queue")
	case <-time.After(100 * time.Millisecond):
	}
}
