package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mockLockStorage(mt *mtest.T) *MongoLockStorage {
	return &MongoLockStorage{
		collection: mt.Coll,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func leaseDocument(key, lockID string) bson.D {
	return bson.D{{Key: "key", Value: key}, {Key: "lock_id", Value: lockID}}
}

func findAndModifyResponse(value any) bson.D {
	return bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: value}}
}

func TestMongoLockStorage_AcquireLease(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 30 * time.Second

	mt.Run("free record is taken", func(mt *mtest.T) {
		store := mockLockStorage(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			findAndModifyResponse(leaseDocument("orders", "holder")),
		)

		ok, err := store.AcquireLease(context.Background(), "orders", "holder", ttl, now)
		require.NoError(t, err)
		assert.True(t, ok)

		upsert := mt.GetStartedEvent()
		require.NotNil(t, upsert)
		assert.Equal(t, "update", upsert.CommandName)
		first := upsert.Command.Lookup("updates").Array().Index(0).Document()
		assert.True(t, first.Lookup("upsert").Boolean())
		assert.Equal(t, "orders", first.Lookup("q", "key").StringValue())

		acquire := mt.GetStartedEvent()
		require.NotNil(t, acquire)
		assert.Equal(t, "findAndModify", acquire.CommandName)
		query := acquire.Command.Lookup("query").Document()
		assert.Equal(t, "orders", query.Lookup("key").StringValue())

		branches, err := query.Lookup("$or").Array().Values()
		require.NoError(t, err)
		require.Len(t, branches, 2)
		assert.Equal(t, bson.TypeNull, branches[0].Document().Lookup("acquired_at").Type)
		expired := branches[1].Document().Lookup("acquired_at", "$lt").Time()
		assert.WithinDuration(t, now.Add(-ttl), expired, 0)

		set := acquire.Command.Lookup("update", "$set").Document()
		assert.Equal(t, "holder", set.Lookup("lock_id").StringValue())
		assert.WithinDuration(t, now, set.Lookup("acquired_at").Time(), 0)
	})

	mt.Run("live record is not taken", func(mt *mtest.T) {
		store := mockLockStorage(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			findAndModifyResponse(nil),
		)

		ok, err := store.AcquireLease(context.Background(), "orders", "other", ttl, now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("concurrent insert of the record is tolerated", func(mt *mtest.T) {
		store := mockLockStorage(mt)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			findAndModifyResponse(leaseDocument("orders", "holder")),
		)

		ok, err := store.AcquireLease(context.Background(), "orders", "holder", ttl, now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	mt.Run("server error is reported", func(mt *mtest.T) {
		store := mockLockStorage(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		_, err := store.AcquireLease(context.Background(), "orders", "holder", ttl, now)
		assert.Error(t, err)
	})
}

func TestMongoLockStorage_RenewAndRelease(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("renew matches the holder", func(mt *mtest.T) {
		store := mockLockStorage(mt)
		mt.AddMockResponses(
			findAndModifyResponse(leaseDocument("orders", "holder")),
			findAndModifyResponse(nil),
		)

		ok, err := store.RenewLease(context.Background(), "orders", "holder", now)
		require.NoError(t, err)
		assert.True(t, ok)

		renew := mt.GetStartedEvent()
		require.NotNil(t, renew)
		assert.Equal(t, "orders", renew.Command.Lookup("query", "key").StringValue())
		assert.Equal(t, "holder", renew.Command.Lookup("query", "lock_id").StringValue())
		assert.WithinDuration(t, now, renew.Command.Lookup("update", "$set", "acquired_at").Time(), 0)

		ok, err = store.RenewLease(context.Background(), "orders", "stranger", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("release removes only the holder's record", func(mt *mtest.T) {
		store := mockLockStorage(mt)
		mt.AddMockResponses(
			findAndModifyResponse(leaseDocument("orders", "holder")),
			findAndModifyResponse(nil),
		)

		deleted, err := store.ReleaseLease(context.Background(), "orders", "holder")
		require.NoError(t, err)
		assert.True(t, deleted)

		release := mt.GetStartedEvent()
		require.NotNil(t, release)
		assert.True(t, release.Command.Lookup("remove").Boolean())
		assert.Equal(t, "holder", release.Command.Lookup("query", "lock_id").StringValue())

		deleted, err = store.ReleaseLease(context.Background(), "orders", "holder")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
