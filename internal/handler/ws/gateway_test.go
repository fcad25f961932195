package ws

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/domain/registry"
	"github.com/chatline/chat-delivery-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInbox struct {
	service.MessageInboxCache
	ids []string
}

func (s *stubInbox) GetInbox(context.Context, string) ([]string, error) {
	return append([]string(nil), s.ids...), nil
}

type stubMsgCache struct {
	service.MessageCache
	byID map[string]*model.Message
}

func (s *stubMsgCache) GetCachedMessage(_ context.Context, id string) (*model.Message, error) {
	if msg, ok := s.byID[id]; ok {
		return msg, nil
	}
	return nil, model.ErrMessageNotFound
}

type stubStore struct {
	service.MessageStore
	byID map[string]*model.Message
}

func (s *stubStore) FindByID(_ context.Context, id string) (*model.Message, error) {
	if msg, ok := s.byID[id]; ok {
		return msg, nil
	}
	return nil, model.ErrMessageNotFound
}

func testMessage(id string) *model.Message {
	return &model.Message{
		ID:          id,
		SenderID:    "u_alice",
		ReceiverID:  "u_bob",
		Content:     "msg " + id,
		Timestamp:   time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
		Undelivered: true,
	}
}

func collectEvents(t *testing.T, conn registry.Connector, n int) []model.Eventer {
	t.Helper()
	out := make([]model.Eventer, 0, n)
	for len(out) < n {
		select {
		case ev := <-conn.Recv():
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestDrainEmitsInInboxOrder(t *testing.T) {
	ids := []string{"m1", "m2", "m3", "m4", "m5"}

	// Split hydration between the fast-fetch hash and the store so both
	// lookup paths land in the same ordered emit.
	cache := &stubMsgCache{byID: map[string]*model.Message{
		"m2": testMessage("m2"),
		"m4": testMessage("m4"),
	}}
	store := &stubStore{byID: map[string]*model.Message{
		"m1": testMessage("m1"),
		"m3": testMessage("m3"),
		"m5": testMessage("m5"),
	}}

	g := &Gateway{
		logger:   slog.New(slog.DiscardHandler),
		inbox:    &stubInbox{ids: ids},
		msgCache: cache,
		store:    store,
	}

	conn := registry.NewConnector(context.Background(), "u_bob", 16)
	defer conn.Close()

	g.drain(context.Background(), "u_bob", conn, g.logger)

	events := collectEvents(t, conn, len(ids))
	got := make([]string, 0, len(events))
	for _, ev := range events {
		got = append(got, ev.GetID())
	}
	assert.Equal(t, ids, got)
}

func TestDrainSkipsUnloadableMessages(t *testing.T) {
	store := &stubStore{byID: map[string]*model.Message{
		"m1": testMessage("m1"),
		"m3": testMessage("m3"),
	}}

	g := &Gateway{
		logger:   slog.New(slog.DiscardHandler),
		inbox:    &stubInbox{ids: []string{"m1", "m2", "m3"}},
		msgCache: &stubMsgCache{},
		store:    store,
	}

	conn := registry.NewConnector(context.Background(), "u_bob", 16)
	defer conn.Close()

	g.drain(context.Background(), "u_bob", conn, g.logger)

	events := collectEvents(t, conn, 2)
	assert.Equal(t, "m1", events[0].GetID())
	assert.Equal(t, "m3", events[1].GetID())
}

func TestSendToUserReportsLocalSessionOnly(t *testing.T) {
	reg := registry.NewRegistry()
	g := &Gateway{
		logger:   slog.New(slog.DiscardHandler),
		registry: reg,
	}

	assert.False(t, g.SendToUser("u_bob", model.NewErrorEvent("u_bob", "x")))

	conn := registry.NewConnector(context.Background(), "u_bob", 16)
	defer conn.Close()
	require.Nil(t, reg.Add("u_bob", conn))

	assert.True(t, g.SendToUser("u_bob", model.NewErrorEvent("u_bob", "x")))

	events := collectEvents(t, conn, 1)
	assert.Equal(t, model.ErrorNotice, events[0].GetKind())
}
