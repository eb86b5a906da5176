package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "seen_users"

// MongoSeenStore persists seen users in MongoDB. Known ids are loaded
// once at startup so MarkSeen answers from memory and only writes on a
// genuinely new user.
type MongoSeenStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger

	seen  map[string]struct{}
	mutex sync.Mutex
}

func NewMongoSeenStore(uri, database string, log *slog.Logger) (*MongoSeenStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(collectionName)

	// Create index on user_id for faster lookups
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn("creating index", slog.String("error", err.Error()))
	}

	store := &MongoSeenStore{
		client:     client,
		collection: collection,
		log:        log,
		seen:       make(map[string]struct{}),
	}
	if err := store.loadKnown(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (m *MongoSeenStore) loadKnown(ctx context.Context) error {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("loading seen users: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.log.Warn("closing cursor", slog.String("error", err.Error()))
		}
	}()

	for cursor.Next(ctx) {
		var record SeenRecord
		if err := cursor.Decode(&record); err != nil {
			return fmt.Errorf("decoding seen record: %w", err)
		}
		m.seen[record.UserId] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterating seen users: %w", err)
	}

	m.log.With(slog.Int("users", len(m.seen))).Info("seen users loaded")
	return nil
}

func (m *MongoSeenStore) MarkSeen(userId string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.seen[userId]; ok {
		return false, nil
	}
	m.seen[userId] = struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record := SeenRecord{
		UserId:      userId,
		FirstSeenAt: time.Now(),
	}
	if _, err := m.collection.InsertOne(ctx, record); err != nil {
		// the user still counts as new for this process
		return true, fmt.Errorf("inserting seen record: %w", err)
	}
	return true, nil
}

func (m *MongoSeenStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
