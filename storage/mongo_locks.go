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

const (
	locksCollectionName = "telebot_views_locks"
	// stale lease records are dropped by the server after this window, independent of any lock ttl
	leaseRetention = 24 * time.Hour
)

// MongoLockStorage keeps lease records in a shared collection
type MongoLockStorage struct {
	collection *mongo.Collection
	log        *slog.Logger
}

// NewMongoLockStorage creates lock storage on a shared client
func NewMongoLockStorage(client *mongo.Client, database string, log *slog.Logger) *MongoLockStorage {
	return &MongoLockStorage{
		collection: client.Database(database).Collection(locksCollectionName),
		log:        log.With(sl.Module("storage.locks")),
	}
}

// Init creates the unique key index, the holder index and the retention TTL index
func (m *MongoLockStorage) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m.log.Info("init locks collection")
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "lock_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "acquired_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(leaseRetention.Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("creating locks indexes: %w", err)
	}
	return nil
}

func (m *MongoLockStorage) AcquireLease(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := m.collection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$setOnInsert": bson.M{"key": key}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("ensuring lease record %s: %w", key, err)
	}

	filter := bson.M{
		"key": key,
		"$or": []bson.M{
			{"acquired_at": nil},
			{"acquired_at": bson.M{"$lt": now.Add(-ttl)}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"lock_id":     lockID,
			"acquired_at": now,
		},
	}
	err = m.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Err()
	if isNoDocuments(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	return true, nil
}

func (m *MongoLockStorage) RenewLease(ctx context.Context, key, lockID string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := m.collection.FindOneAndUpdate(ctx,
		bson.M{"key": key, "lock_id": lockID},
		bson.M{"$set": bson.M{"acquired_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Err()
	if isNoDocuments(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("renewing lease %s: %w", key, err)
	}
	return true, nil
}

func (m *MongoLockStorage) ReleaseLease(ctx context.Context, key, lockID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := m.collection.FindOneAndDelete(ctx, bson.M{"key": key, "lock_id": lockID}).Err()
	if isNoDocuments(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("releasing lease %s: %w", key, err)
	}
	return true, nil
}
