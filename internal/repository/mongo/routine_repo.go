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

// mongoRoutineRepository implements repository.RoutineRepository.
// Routines and their workout links live in two collections.
type mongoRoutineRepository struct {
	collection *mongo.Collection
	links      *mongo.Collection
}

// NewMongoRoutineRepository creates a new Routine repository.
func NewMongoRoutineRepository(db *mongo.Database) repository.RoutineRepository {
	return &mongoRoutineRepository{
		collection: db.Collection(routineCollectionName),
		links:      db.Collection(routineWorkoutCollectionName),
	}
}

// Create inserts a new routine.
func (r *mongoRoutineRepository) Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error) {
	if routine.Name == "" || routine.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("routine requires name and creator")
	}
	routine.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	routine.CreatedAt = now
	routine.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, routine)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted routine ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single routine by its ID.
func (r *mongoRoutineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	var routine domain.Routine
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&routine); err != nil {
		return nil, findOneErr(err)
	}
	return &routine, nil
}

// List returns all routines, newest first.
func (r *mongoRoutineRepository) List(ctx context.Context) ([]domain.Routine, error) {
	routines := []domain.Routine{}
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (r *mongoRoutineRepository) Update(ctx context.Context, routine *domain.Routine) error {
	if routine.ID == primitive.NilObjectID {
		return errors.New("routine ID is required for update")
	}
	routine.UpdatedAt = time.Now().UTC()
	updateDoc := bson.M{
		"$set": bson.M{
			"name":        routine.Name,
			"description": routine.Description,
			"difficulty":  routine.Difficulty,
			"updatedAt":   routine.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": routine.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoRoutineRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoRoutineRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// AddWorkout links a workout into a routine.
func (r *mongoRoutineRepository) AddWorkout(ctx context.Context, link *domain.RoutineWorkout) (primitive.ObjectID, error) {
	if link.RoutineID == primitive.NilObjectID || link.WorkoutID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("routine workout requires routineId and workoutId")
	}
	link.ID = primitive.NewObjectID()
	if _, err := r.links.InsertOne(ctx, link); err != nil {
		return primitive.NilObjectID, mapWriteError(err)
	}
	return link.ID, nil
}

// ListWorkouts returns a routine's links sorted by sequence.
func (r *mongoRoutineRepository) ListWorkouts(ctx context.Context, routineID primitive.ObjectID) ([]domain.RoutineWorkout, error) {
	links := []domain.RoutineWorkout{}
	cursor, err := r.links.Find(ctx, bson.M{"routineId": routineID}, options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (r *mongoRoutineRepository) DeleteWorkouts(ctx context.Context, routineID primitive.ObjectID) error {
	_, err := r.links.DeleteMany(ctx, bson.M{"routineId": routineID})
	return err
}

func (r *mongoRoutineRepository) RemoveWorkoutEverywhere(ctx context.Context, workoutID primitive.ObjectID) error {
	_, err := r.links.DeleteMany(ctx, bson.M{"workoutId": workoutID})
	return err
}

// EnsureRoutineIndexes creates necessary indexes. Call during startup.
func EnsureRoutineIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdBy", Value: 1}},
		Options: options.Index(),
	})
	return err
}

// EnsureRoutineWorkoutIndexes creates the link indexes; a sequence slot is unique per routine.
func EnsureRoutineWorkoutIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "routineId", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "workoutId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
