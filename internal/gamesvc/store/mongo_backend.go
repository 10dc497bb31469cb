package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoBackend struct {
	coll *mongo.Collection
}

func NewMongoBackend(db *mongo.Database, collection string) *MongoBackend {
	return &MongoBackend{coll: db.Collection(collection)}
}

func (b *MongoBackend) Insert(ctx context.Context, room *models.Room) error {
	_, err := b.coll.InsertOne(ctx, room)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("room %s already exists: %w", room.ID, err)
		}
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (b *MongoBackend) Find(ctx context.Context, id string) (*models.Room, error) {
	room := &models.Room{}
	err := b.coll.FindOne(ctx, bson.M{"_id": id}).Decode(room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return room, nil
}

// Update applies u with $set and bumps version with $inc in one
// FindOneAndUpdate, so the returned record is exactly what was committed.
func (b *MongoBackend) Update(ctx context.Context, id string, expectedVersion int64, u models.Update) (*models.Room, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$ne": models.StatusDeleted},
	}
	if expectedVersion != AnyVersion {
		filter["version"] = expectedVersion
	}

	update := bson.M{"$inc": bson.M{"version": 1}}
	if len(u) > 0 {
		set := bson.M{}
		for k, v := range u {
			set[k] = v
		}
		update["$set"] = set
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	room := &models.Room{}
	err := b.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(room)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	// nothing matched: tell a missing room apart from a stale version
	if expectedVersion == AnyVersion {
		return nil, ErrNotFound
	}
	current, err := b.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Gone() {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}
