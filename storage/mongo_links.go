package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Tgviews/lib/sl"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const linksCollectionName = "links"

type linkDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Callback *Callback          `bson:"callback"`
}

func (d *linkDocument) link() *Link {
	return &Link{ID: d.ID.Hex(), Callback: d.Callback}
}

type MongoLinkStorage struct {
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoLinkStorage(client *mongo.Client, database string, log *slog.Logger) *MongoLinkStorage {
	return &MongoLinkStorage{
		collection: client.Database(database).Collection(linksCollectionName),
		log:        log.With(sl.Module("storage.links")),
	}
}

func (m *MongoLinkStorage) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m.log.Info("init links collection")
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "callback.id", Value: 1}}},
		{Keys: bson.D{{Key: "callback.view_name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating links indexes: %w", err)
	}
	return nil
}

// GetOrCreateLink matches links on everything but the callback id and creation time
func (m *MongoLinkStorage) GetOrCreateLink(ctx context.Context, callback *Callback) (*Link, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"callback.view_name":   callback.ViewName,
		"callback.page_num":    nilIfZero(callback.PageNum),
		"callback.view_params": nilIfEmpty(callback.ViewParams),
		"callback.params":      nilIfEmpty(callback.Params),
	}
	update := bson.M{"$setOnInsert": bson.M{"callback": callback}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	m.log.With(
		slog.String("view", callback.ViewName),
		slog.Int("page", callback.PageNum),
	).Debug("creating link")

	var doc linkDocument
	if err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("upserting link: %w", err)
	}
	return doc.link(), nil
}

func (m *MongoLinkStorage) GetLink(ctx context.Context, id string) (*Link, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc linkDocument
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding link %s: %w", id, err)
	}
	return doc.link(), nil
}

func nilIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nilIfEmpty(v map[string]any) any {
	if len(v) == 0 {
		return nil
	}
	return v
}
