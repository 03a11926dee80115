package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Tgviews/lib/sl"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	opTimeout       = 5 * time.Second
)

type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoStorage(uri, database string, log *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(usersCollection),
		log:        log.With(sl.Module("storage.users")),
	}, nil
}

// Init creates the users indexes; it must be awaited before serving updates
func (m *MongoStorage) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m.log.Info("init users collection")
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users index: %w", err)
	}
	return nil
}

func (m *MongoStorage) GetOrCreateUser(ctx context.Context, profile Profile) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"username":   profile.UserName,
			"first_name": profile.FirstName,
			"last_name":  profile.LastName,
		},
		"$setOnInsert": bson.M{
			"state":        NewUserState(),
			"keyboard_id":  0,
			"constants":    bson.M{},
			"is_superuser": false,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user User
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"user_id": profile.UserID}, update, opts).Decode(&user)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert inserted the same user first
		err = m.collection.FindOneAndUpdate(ctx, bson.M{"user_id": profile.UserID}, update, opts).Decode(&user)
	}
	if err != nil {
		return nil, fmt.Errorf("upserting user %d: %w", profile.UserID, err)
	}
	user.normalize()
	return &user, nil
}

func (m *MongoStorage) SaveUser(ctx context.Context, user *User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"state":       user.State,
			"keyboard_id": user.KeyboardID,
			"constants":   user.Constants,
		},
	}
	res, err := m.collection.UpdateOne(ctx, bson.M{"user_id": user.UserId}, update)
	if err != nil {
		return fmt.Errorf("saving user %d: %w", user.UserId, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("saving user %d: %w", user.UserId, ErrNotFound)
	}
	return nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// GetClient returns the MongoDB client for sharing with other storages
func (m *MongoStorage) GetClient() *mongo.Client {
	return m.client
}

// GetDatabase returns the database name
func (m *MongoStorage) GetDatabase() string {
	return m.collection.Database().Name()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
