package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/erazemk/odvoz/internal/model"
)

// MongoCollection is the collection notifications are kept in.
const MongoCollection = "notifications"

// MongoSink keeps notifications in a MongoDB collection.
type MongoSink struct {
	coll *mongo.Collection
}

type mongoNotification struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id,omitempty"`
	ReceiverID string    `bson:"receiver_id,omitempty"`
	Message    string    `bson:"message"`
	Read       bool      `bson:"read"`
	CreatedAt  time.Time `bson:"created_at"`
}

// ConnectMongo connects to uri, verifies the connection and prepares the
// mailbox indexes. The returned function disconnects the client.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoSink, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	coll := client.Database(database).Collection(MongoCollection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("creating notification indexes: %w", err)
	}

	return &MongoSink{coll: coll}, client.Disconnect, nil
}

func (s *MongoSink) Append(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if (n.UserID == "") == (n.ReceiverID == "") {
		return fmt.Errorf("notification needs exactly one recipient")
	}

	if _, err := s.coll.InsertOne(ctx, toMongo(n)); err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (s *MongoSink) List(ctx context.Context, to model.Recipient, limit int) ([]model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, recipientFilter(to), opts)
	if err != nil {
		return nil, fmt.Errorf("finding notifications: %w", err)
	}

	var docs []mongoNotification
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding notifications: %w", err)
	}

	list := make([]model.Notification, 0, len(docs))
	for _, d := range docs {
		list = append(list, fromMongo(d))
	}
	return list, nil
}

func (s *MongoSink) MarkRead(ctx context.Context, id string, to model.Recipient) (bool, error) {
	filter := recipientFilter(to)
	filter["_id"] = id

	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func recipientFilter(to model.Recipient) bson.M {
	if to.IsReceiver {
		return bson.M{"receiver_id": to.ID}
	}
	return bson.M{"user_id": to.ID}
}

func toMongo(n *model.Notification) mongoNotification {
	return mongoNotification{
		ID:         n.ID,
		UserID:     n.UserID,
		ReceiverID: n.ReceiverID,
		Message:    n.Message,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

func fromMongo(d mongoNotification) model.Notification {
	return model.Notification{
		ID:         d.ID,
		UserID:     d.UserID,
		ReceiverID: d.ReceiverID,
		Message:    d.Message,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}
