package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// mongoMediaRepository implements repository.MediaRepository
type mongoMediaRepository struct {
	collection *mongo.Collection
}

// NewMongoMediaRepository creates a new Media repository backed by MongoDB.
func NewMongoMediaRepository(db *mongo.Database) repository.MediaRepository {
	return &mongoMediaRepository{
		collection: db.Collection(mediaCollectionName),
	}
}

// Create inserts new media metadata into the database.
func (r *mongoMediaRepository) Create(ctx context.Context, media *domain.Media) (primitive.ObjectID, error) {
	if media.WorkoutID == primitive.NilObjectID || media.ObjectKey == "" {
		return primitive.NilObjectID, errors.New("media requires workoutId and objectKey")
	}

	media.ID = primitive.NewObjectID()
	media.UploadedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, media); err != nil {
		return primitive.NilObjectID, mapWriteError(err)
	}
	return media.ID, nil
}

// GetByID retrieves media metadata by its ID.
func (r *mongoMediaRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Media, error) {
	var media domain.Media
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&media); err != nil {
		return nil, findOneErr(err)
	}
	return &media, nil
}

// GetByWorkoutID retrieves the latest media uploaded for a workout.
func (r *mongoMediaRepository) GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (*domain.Media, error) {
	var media domain.Media
	opts := options.FindOne().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})
	if err := r.collection.FindOne(ctx, bson.M{"workoutId": workoutID}, opts).Decode(&media); err != nil {
		return nil, findOneErr(err)
	}
	return &media, nil
}

func (r *mongoMediaRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMediaIndexes creates necessary indexes for the media collection.
func EnsureMediaIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workoutId", Value: 1}, {Key: "uploadedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "objectKey", Value: 1}}, // Keys are unique within the bucket
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
