package repository

import (
	"context"
	"errors"

	irepository "voice-connector/internal/domain/interfaces/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository[T any] struct {
	mongo    *mongo.Database
	keyField string
}

// NewMongoRepository stores documents of type T, addressing them by keyField.
func NewMongoRepository[T any](mongo *mongo.Database, keyField string) *MongoRepository[T] {
	return &MongoRepository[T]{mongo: mongo, keyField: keyField}
}

func (r *MongoRepository[T]) Update(ctx context.Context, collectionName string, key string, entity T) (T, error) {
	collection := r.mongo.Collection(collectionName)
	filter := bson.M{r.keyField: key}

	update := bson.M{
		"$set": entity,
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return entity, err
}

func (r *MongoRepository[T]) FindByKey(ctx context.Context, collectionName string, key string) (T, error) {
	var entity T
	collection := r.mongo.Collection(collectionName)
	filter := bson.M{r.keyField: key}
	err := collection.FindOne(ctx, filter).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity, irepository.ErrNotFound
	}
	return entity, err
}

// EnsureKeyIndex creates a unique index on the key field of the collection.
func (r *MongoRepository[T]) EnsureKeyIndex(ctx context.Context, collectionName string) error {
	collection := r.mongo.Collection(collectionName)
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: r.keyField, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
