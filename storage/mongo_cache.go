package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Tgviews/lib/sl"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cacheCollectionName = "caches"

// MongoCacheStorage stores memoized results as documents expiring at valid_until
type MongoCacheStorage struct {
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoCacheStorage(client *mongo.Client, database string, log *slog.Logger) *MongoCacheStorage {
	return &MongoCacheStorage{
		collection: client.Database(database).Collection(cacheCollectionName),
		log:        log.With(sl.Module("storage.cache")),
	}
}

func (m *MongoCacheStorage) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m.log.Info("init caches collection")
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "valid_until", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("creating caches indexes: %w", err)
	}
	return nil
}

func (m *MongoCacheStorage) GetCache(ctx context.Context, key string) (*CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var entry CacheEntry
	filter := bson.M{
		"key":         key,
		"valid_until": bson.M{"$gt": time.Now().UTC()},
	}
	err := m.collection.FindOne(ctx, filter).Decode(&entry)
	if isNoDocuments(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding cache %s: %w", key, err)
	}
	return &entry, nil
}

func (m *MongoCacheStorage) SetCache(ctx context.Context, entry *CacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"key": entry.Key}, entry, opts)
	if err != nil {
		return fmt.Errorf("saving cache %s: %w", entry.Key, err)
	}
	return nil
}
