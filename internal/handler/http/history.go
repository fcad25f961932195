package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// Handler serves the read-only message surface over the Message Store.
type Handler struct {
	store  service.MessageStore
	logger *slog.Logger
}

func NewHandler(store service.MessageStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type messageView struct {
	MessageID   string `json:"message_id"`
	SenderID    string `json:"sender_id"`
	ReceiverID  string `json:"receiver_id"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"`
	Undelivered bool   `json:"undelivered"`
	DeliveredAt *int64 `json:"delivered_at,omitempty"`
}

func toView(m *model.Message) messageView {
	v := messageView{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Content,
		Timestamp:   m.Timestamp.UnixMilli(),
		Undelivered: m.Undelivered,
	}
	if m.DeliveredAt != nil {
		ms := m.DeliveredAt.UnixMilli()
		v.DeliveredAt = &ms
	}
	return v
}

// History handles GET /messages/history/{participantId}?userId=&lastTimestamp=&limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantId")
	userID := r.URL.Query().Get("userId")
	if userID == "" || participantID == "" {
		writeError(w, http.StatusBadRequest, "userId and participantId are required")
		return
	}

	var before *time.Time
	if raw := r.URL.Query().Get("lastTimestamp"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "lastTimestamp must be epoch milliseconds")
			return
		}
		t := time.UnixMilli(ms)
		before = &t
	}

	var limit int64 = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := h.store.ChatHistory(r.Context(), userID, participantID, before, limit)
	if err != nil {
		h.logger.Error("history query failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, toView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

// GetMessage handles GET /messages/{messageId}.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")

	msg, err := h.store.FindByID(r.Context(), messageID)
	if errors.Is(err, model.ErrMessageNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		h.logger.Error("message fetch failed", "message_id", messageID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toView(msg))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
