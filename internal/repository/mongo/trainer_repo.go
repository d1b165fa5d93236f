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

// mongoTrainerRepository implements repository.TrainerRepository
type mongoTrainerRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainerRepository creates a new Trainer profile repository.
func NewMongoTrainerRepository(db *mongo.Database) repository.TrainerRepository {
	return &mongoTrainerRepository{
		collection: db.Collection(trainerCollectionName),
	}
}

func (r *mongoTrainerRepository) Create(ctx context.Context, trainer *domain.Trainer) (primitive.ObjectID, error) {
	if trainer.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("trainer profile requires userId")
	}
	trainer.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	trainer.CreatedAt = now
	trainer.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, trainer); err != nil {
		return primitive.NilObjectID, mapWriteError(err)
	}
	return trainer.ID, nil
}

func (r *mongoTrainerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Trainer, error) {
	var trainer domain.Trainer
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trainer); err != nil {
		return nil, findOneErr(err)
	}
	return &trainer, nil
}

func (r *mongoTrainerRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Trainer, error) {
	var trainer domain.Trainer
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&trainer); err != nil {
		return nil, findOneErr(err)
	}
	return &trainer, nil
}

func (r *mongoTrainerRepository) List(ctx context.Context) ([]domain.Trainer, error) {
	trainers := []domain.Trainer{}
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(byCreatedAtAsc))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &trainers); err != nil {
		return nil, err
	}
	return trainers, nil
}

func (r *mongoTrainerRepository) Update(ctx context.Context, trainer *domain.Trainer) error {
	trainer.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"specialization":  trainer.Specialization,
			"experienceYears": trainer.ExperienceYears,
			"bio":             trainer.Bio,
			"updatedAt":       trainer.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": trainer.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoTrainerRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTrainerIndexes creates necessary indexes. Call during startup.
func EnsureTrainerIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}}, // One profile per user
		Options: options.Index().SetUnique(true),
	})
	return err
}
