package locking

import (
	"context"
	"errors"
	"fmt"

	"courtside/pkg/clock"
	"courtside/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lockCollectionName = "Reservation_locks"

// MongoStore persists locks in a collection keyed on _id. Acquisition is a
// single findOneAndReplace with upsert: it replaces an expired record,
// upserts a missing one, and hits the unique _id index (duplicate key) when a
// live record exists. Exactly one of any set of racing callers wins.
type MongoStore struct {
	collection *mongo.Collection
	clk        clock.Clock
}

func NewMongoStore(db *mongo.Database, clk clock.Clock) *MongoStore {
	return &MongoStore{
		collection: db.Collection(lockCollectionName),
		clk:        clk,
	}
}

func (s *MongoStore) Insert(ctx context.Context, lock *model.Lock) (bool, error) {
	filter := bson.M{
		"_id":        lock.Key,
		"expires_at": bson.M{"$lte": s.clk.Now()},
	}

	err := s.collection.FindOneAndReplace(
		ctx,
		filter,
		lock,
		options.FindOneAndReplace().SetUpsert(true),
	).Err()

	switch {
	case err == nil:
		// Replaced an expired record.
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// No prior record; the upsert inserted a fresh one.
		return true, nil
	case mongo.IsDuplicateKeyError(err):
		// A live record exists.
		return false, nil
	default:
		return false, fmt.Errorf("lock upsert: %w", err)
	}
}

func (s *MongoStore) DeleteOwned(ctx context.Context, key, owner string) (bool, error) {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	if err != nil {
		return false, fmt.Errorf("lock delete: %w", err)
	}
	return result.DeletedCount > 0, nil
}
