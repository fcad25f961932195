package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatline/chat-delivery-service/config"
	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/domain/registry"
	"github.com/chatline/chat-delivery-service/internal/service"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	sessionBufferSize = 1024
	sendTimeout       = 500 * time.Millisecond
	writeWait         = 10 * time.Second

	// drainFetchParallelism bounds the concurrent store reads that hydrate
	// an inbox drain; emission stays in insertion order regardless.
	drainFetchParallelism = 8
)

// Interface guard
var _ service.LocalDeliverer = (*Gateway)(nil)

// Gateway owns the per-client websocket event loop: handshake, inbound
// event routing, outbound pump and the reconnect drain.
type Gateway struct {
	logger   *slog.Logger
	registry registry.Registrar
	sender   *service.Sender
	acker    *service.Acker
	presence service.UserConnectionCache
	inbox    service.MessageInboxCache
	msgCache service.MessageCache
	store    service.MessageStore
	serverID string
	upgrader websocket.Upgrader
}

func NewGateway(
	cfg *config.Config,
	logger *slog.Logger,
	reg registry.Registrar,
	sender *service.Sender,
	acker *service.Acker,
	presence service.UserConnectionCache,
	inbox service.MessageInboxCache,
	msgCache service.MessageCache,
	store service.MessageStore,
) *Gateway {
	return &Gateway{
		logger:   logger,
		registry: reg,
		sender:   sender,
		acker:    acker,
		presence: presence,
		inbox:    inbox,
		msgCache: msgCache,
		store:    store,
		serverID: cfg.ServerID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

// SendToUser is the dispatcher's hook into this instance. It reports true
// only when a local session exists and the emit was attempted.
func (g *Gateway) SendToUser(userID string, ev model.Eventer) bool {
	conn, ok := g.registry.HandleOf(userID)
	if !ok {
		return false
	}
	return conn.Send(ev, sendTimeout)
}

// ServeHTTP upgrades one client connection and runs its session until the
// transport drops.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Identity comes from the handshake query string, as the upstream
	// clients send it today. A verified credential must replace this
	// before any production exposure.
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("ws upgrade failed", "error", err)
		return
	}

	conn := registry.NewConnector(r.Context(), userID, sessionBufferSize)
	l := g.logger.With(
		slog.String("user_id", userID),
		slog.String("conn_id", conn.GetID().String()),
	)

	// Single session per user: the prior handle is evicted and closed.
	// Closing its mailbox makes its write pump exit, which closes its
	// socket and unwinds its read loop.
	if evicted := g.registry.Add(userID, conn); evicted != nil {
		l.Info("evicting prior session", "evicted_conn_id", evicted.GetID().String())
		evicted.Close()
	}

	if err := g.presence.SetUserConnection(r.Context(), userID, g.serverID); err != nil {
		// The hint is advisory; a miss only degrades to offline deposits.
		l.Warn("presence hint write failed", "error", err)
	}

	l.Info("ws session bound")

	go g.writePump(ws, conn.Recv(), l)
	go g.drain(r.Context(), userID, conn, l)

	g.readPump(r.Context(), ws, userID, conn, l)

	// Teardown. Release is a no-op if a reconnect already replaced this
	// binding; only the current binding may clear the presence hint.
	if g.registry.Release(userID, conn.GetID()) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.presence.RemoveUserConnection(ctx, userID); err != nil {
			l.Warn("presence hint removal failed", "error", err)
		}
	}
	conn.Close()
	l.Info("ws session closed")
}

// readPump routes inbound transport events until the socket errors out.
// In-flight ingress calls are never cancelled on disconnect; their durable
// effects must complete even if the response has nobody to go to.
func (g *Gateway) readPump(ctx context.Context, ws *websocket.Conn, userID string, conn registry.Connector, l *slog.Logger) {
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Warn("ws read failed", "error", err)
			}
			return
		}

		env, err := decodeEnvelope(data)
		if err != nil {
			conn.Send(model.NewErrorEvent(userID, err.Error()), sendTimeout)
			continue
		}

		switch env.Event {
		case eventSendMessage:
			g.handleSendMessage(ctx, userID, env.Data, conn)
		case eventMessageDelivered:
			g.handleMessageDelivered(ctx, userID, env.Data, l)
		default:
			conn.Send(model.NewErrorEvent(userID, "unknown event: "+env.Event), sendTimeout)
		}
	}
}

func (g *Gateway) handleSendMessage(ctx context.Context, userID string, data []byte, conn registry.Connector) {
	payload, err := decodeSendMessage(data)
	if err != nil {
		conn.Send(model.NewErrorEvent(userID, err.Error()), sendTimeout)
		return
	}

	ts := time.UnixMilli(payload.Timestamp)
	msg, err := g.sender.Send(ctx, userID, payload.ReceiverID, payload.Content, ts)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			conn.Send(model.NewErrorEvent(userID, vErr.Error()), sendTimeout)
			return
		}
		g.logger.Error("send failed", "user_id", userID, "err", err)
		conn.Send(model.NewErrorEvent(userID, "message could not be accepted"), sendTimeout)
		return
	}

	conn.Send(model.NewMessageReceivedEvent(userID, msg.ID, payload.MessageIDByClient), sendTimeout)
}

func (g *Gateway) handleMessageDelivered(ctx context.Context, userID string, data []byte, l *slog.Logger) {
	payload, err := decodeMessageDelivered(data)
	if err != nil {
		l.Warn("invalid message_delivered payload", "error", err)
		return
	}

	if err := g.acker.Confirm(ctx, userID, payload.MessageID); err != nil {
		// The entry stays in the inbox; the receiver gets the message
		// again on the next drain. Duplicate over loss.
		l.Error("delivery ack failed", "message_id", payload.MessageID, "err", err)
	}
}

// writePump is the session's single socket writer.
func (g *Gateway) writePump(ws *websocket.Conn, recv <-chan model.Eventer, l *slog.Logger) {
	defer ws.Close()

	for ev := range recv {
		data, err := marshalEvent(ev)
		if err != nil {
			l.Error("event marshal failed", "event_id", ev.GetID(), "error", err)
			continue
		}

		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			l.Warn("ws send failed", "error", err)
			return
		}
	}

	// Mailbox closed: the session was evicted or the server is stopping.
	_ = ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "session replaced"),
		time.Now().Add(writeWait),
	)
}

// drain replays the pending inbox to a freshly bound session, in insertion
// order. Hydration reads the 24h message hash first and falls back to the
// store; a message that fails to load is skipped and stays in the inbox
// for a future drain. Emission does not await acks; the receiver's
// message_delivered events remove entries one by one.
func (g *Gateway) drain(ctx context.Context, userID string, conn registry.Connector, l *slog.Logger) {
	ids, err := g.inbox.GetInbox(ctx, userID)
	if err != nil {
		l.Error("inbox fetch failed, drain skipped", "err", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	msgs := make([]*model.Message, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(drainFetchParallelism)

	for i, id := range ids {
		eg.Go(func() error {
			msg, err := g.loadMessage(egCtx, id)
			if err != nil {
				l.Warn("drain hydration failed for message, skipping", "message_id", id, "err", err)
				return nil
			}
			msgs[i] = msg
			return nil
		})
	}
	_ = eg.Wait()

	sent := 0
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if !conn.Send(model.NewIncomingMessageEvent(msg), sendTimeout) {
			l.Warn("drain emit failed, session gone", "message_id", msg.ID)
			return
		}
		sent++
	}

	l.Info("inbox drained", "pending", len(ids), "emitted", sent)
}

func (g *Gateway) loadMessage(ctx context.Context, messageID string) (*model.Message, error) {
	if msg, err := g.msgCache.GetCachedMessage(ctx, messageID); err == nil {
		return msg, nil
	}
	return g.store.FindByID(ctx, messageID)
}
