package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/chatline/chat-delivery-service/internal/service"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	messagesCollection = "messages"
	maxHistoryLimit    = 50
)

// Interface guard
var _ service.MessageStore = (*Store)(nil)

// messageDoc is the persisted shape; the domain model stays free of driver tags.
type messageDoc struct {
	ID          string     `bson:"_id"`
	SenderID    string     `bson:"sender_id"`
	ReceiverID  string     `bson:"receiver_id"`
	Content     string     `bson:"content"`
	Timestamp   time.Time  `bson:"timestamp"`
	Undelivered bool       `bson:"undelivered"`
	DeliveredAt *time.Time `bson:"delivered_at,omitempty"`
	ReadAt      *time.Time `bson:"read_at,omitempty"`
}

func (d *messageDoc) toModel() *model.Message {
	return &model.Message{
		ID:          d.ID,
		SenderID:    d.SenderID,
		ReceiverID:  d.ReceiverID,
		Content:     d.Content,
		Timestamp:   d.Timestamp,
		Undelivered: d.Undelivered,
		DeliveredAt: d.DeliveredAt,
		ReadAt:      d.ReadAt,
	}
}

// Store is the durable message record over a single mongo collection.
// Every mutation is single-document atomic.
type Store struct {
	col    *mongo.Collection
	logger *slog.Logger
}

func NewStore(db *mongo.Database, logger *slog.Logger) *Store {
	return &Store{
		col:    db.Collection(messagesCollection),
		logger: logger,
	}
}

// EnsureIndexes creates the composite indexes that keep inbox fill, history
// queries and retention sweeps off full scans.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "undelivered", Value: 1}, {Key: "receiver_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, senderID, receiverID, content string, timestamp time.Time) (*model.Message, error) {
	doc := &messageDoc{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		Timestamp:   timestamp,
		Undelivered: true,
	}

	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongo: insert message: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) FindByID(ctx context.Context, messageID string) (*model.Message, error) {
	var doc messageDoc
	err := s.col.FindOne(ctx, bson.M{"_id": messageID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find message %s: %w", messageID, err)
	}
	return doc.toModel(), nil
}

func (s *Store) MarkDelivered(ctx context.Context, messageID string) error {
	now := time.Now().UTC()
	res, err := s.col.UpdateByID(ctx, messageID, bson.M{
		"$set": bson.M{"undelivered": false, "delivered_at": now},
	})
	if err != nil {
		return fmt.Errorf("mongo: mark delivered %s: %w", messageID, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrMessageNotFound
	}
	return nil
}

// MarkUndelivered is the acknowledgment compensator: it clears the
// delivered instant and restores the undelivered flag in one update.
func (s *Store) MarkUndelivered(ctx context.Context, messageID string) error {
	res, err := s.col.UpdateByID(ctx, messageID, bson.M{
		"$set":   bson.M{"undelivered": true},
		"$unset": bson.M{"delivered_at": ""},
	})
	if err != nil {
		return fmt.Errorf("mongo: mark undelivered %s: %w", messageID, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrMessageNotFound
	}
	return nil
}

func (s *Store) DeleteByID(ctx context.Context, messageID string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return fmt.Errorf("mongo: delete message %s: %w", messageID, err)
	}
	if res.DeletedCount == 0 {
		return model.ErrMessageNotFound
	}
	return nil
}

// FindUndelivered returns the receiver's pending backlog, oldest first.
// A reconciliation job uses this scan to rebuild a lost inbox list.
func (s *Store) FindUndelivered(ctx context.Context, receiverID string) ([]*model.Message, error) {
	cur, err := s.col.Find(ctx,
		bson.M{"receiver_id": receiverID, "undelivered": true},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: find undelivered for %s: %w", receiverID, err)
	}
	return decodeAll(ctx, cur)
}

// ChatHistory returns messages between two users, newest first, optionally
// older than before. The limit is capped at 50.
func (s *Store) ChatHistory(ctx context.Context, userID, participantID string, before *time.Time, limit int64) ([]*model.Message, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": userID, "receiver_id": participantID},
			bson.M{"sender_id": participantID, "receiver_id": userID},
		},
	}
	if before != nil {
		filter["timestamp"] = bson.M{"$lt": *before}
	}

	cur, err := s.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: chat history %s/%s: %w", userID, participantID, err)
	}
	return decodeAll(ctx, cur)
}

func (s *Store) DeleteDeliveredOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.col.DeleteMany(ctx, bson.M{
		"undelivered":  false,
		"delivered_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo: retention delete: %w", err)
	}
	return res.DeletedCount, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*model.Message, error) {
	defer cur.Close(ctx)

	var out []*model.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode message: %w", err)
		}
		out = append(out, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: cursor: %w", err)
	}
	return out, nil
}
