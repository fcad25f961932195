package service

import (
	"context"
	"sync"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/google/uuid"
)

func testTime() time.Time {
	return time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
}

// fakeStore is an in-memory MessageStore with per-method failure hooks.
type fakeStore struct {
	mu       sync.Mutex
	messages map[string]*model.Message

	createErr          error
	deleteErr          error
	markDeliveredErr   error
	markUndeliveredErr error

	deleted       []string
	undelivered   []string
	deliveredSets []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[string]*model.Message)}
}

func (f *fakeStore) Create(_ context.Context, senderID, receiverID, content string, timestamp time.Time) (*model.Message, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := &model.Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		Timestamp:   timestamp,
		Undelivered: true,
	}
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeStore) FindByID(_ context.Context, messageID string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, model.ErrMessageNotFound
	}
	return msg, nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, messageID string) error {
	if f.markDeliveredErr != nil {
		return f.markDeliveredErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveredSets = append(f.deliveredSets, messageID)
	if msg, ok := f.messages[messageID]; ok {
		msg.Undelivered = false
	}
	return nil
}

func (f *fakeStore) MarkUndelivered(_ context.Context, messageID string) error {
	if f.markUndeliveredErr != nil {
		return f.markUndeliveredErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undelivered = append(f.undelivered, messageID)
	if msg, ok := f.messages[messageID]; ok {
		msg.Undelivered = true
	}
	return nil
}

func (f *fakeStore) DeleteByID(_ context.Context, messageID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	delete(f.messages, messageID)
	return nil
}

func (f *fakeStore) FindUndelivered(_ context.Context, receiverID string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Message
	for _, msg := range f.messages {
		if msg.ReceiverID == receiverID && msg.Undelivered {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeStore) ChatHistory(_ context.Context, userID, participantID string, _ *time.Time, _ int64) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Message
	for _, msg := range f.messages {
		if (msg.SenderID == userID && msg.ReceiverID == participantID) ||
			(msg.SenderID == participantID && msg.ReceiverID == userID) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteDeliveredOlderThan(_ context.Context, _ int) (int64, error) {
	return 0, nil
}

// fakeQueue records published items and can fail on demand.
type fakeQueue struct {
	mu         sync.Mutex
	published  []*model.QueueItem
	publishErr error
}

func (f *fakeQueue) Publish(_ context.Context, item *model.QueueItem) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, item)
	return nil
}

// fakeInbox is an in-memory MessageInboxCache.
type fakeInbox struct {
	mu        sync.Mutex
	inboxes   map[string][]string
	addErr    error
	removeErr error

	removed []string
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{inboxes: make(map[string][]string)}
}

func (f *fakeInbox) AddToInbox(_ context.Context, userID, messageID string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inboxes[userID] = append(f.inboxes[userID], messageID)
	return nil
}

func (f *fakeInbox) GetInbox(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inboxes[userID]...), nil
}

func (f *fakeInbox) RemoveFromInbox(_ context.Context, userID, messageID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, messageID)
	ids := f.inboxes[userID]
	for i, id := range ids {
		if id == messageID {
			f.inboxes[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeInbox) ClearInbox(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inboxes, userID)
	return nil
}

// fakePresence answers online checks from a static set.
type fakePresence struct {
	online   map[string]bool
	checkErr error
}

func (f *fakePresence) SetUserConnection(_ context.Context, userID, _ string) error {
	f.online[userID] = true
	return nil
}

func (f *fakePresence) IsUserOnline(_ context.Context, userID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.online[userID], nil
}

func (f *fakePresence) RemoveUserConnection(_ context.Context, userID string) error {
	delete(f.online, userID)
	return nil
}

func (f *fakePresence) GetUserServerID(_ context.Context, _ string) (string, error) {
	return "", nil
}

// fakeMsgCache records fast-fetch writes.
type fakeMsgCache struct {
	mu       sync.Mutex
	cached   []*model.QueueItem
	cacheErr error
}

func (f *fakeMsgCache) CacheMessage(_ context.Context, item *model.QueueItem) error {
	if f.cacheErr != nil {
		return f.cacheErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = append(f.cached, item)
	return nil
}

func (f *fakeMsgCache) GetCachedMessage(_ context.Context, _ string) (*model.Message, error) {
	return nil, model.ErrMessageNotFound
}

// fakeDeliverer pretends to be the local session gateway.
type fakeDeliverer struct {
	accept bool
	sent   []model.Eventer
}

func (f *fakeDeliverer) SendToUser(_ string, ev model.Eventer) bool {
	if !f.accept {
		return false
	}
	f.sent = append(f.sent, ev)
	return true
}
