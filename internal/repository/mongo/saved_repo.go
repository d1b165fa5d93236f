package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// mongoSavedRepository implements repository.SavedRepository over two join collections.
type mongoSavedRepository struct {
	workouts *mongo.Collection
	routines *mongo.Collection
}

// NewMongoSavedRepository creates a new bookmarks repository.
func NewMongoSavedRepository(db *mongo.Database) repository.SavedRepository {
	return &mongoSavedRepository{
		workouts: db.Collection(savedWorkoutCollectionName),
		routines: db.Collection(savedRoutineCollectionName),
	}
}

// SaveWorkout inserts the join row; the unique (memberId, workoutId) index rejects a second save.
func (r *mongoSavedRepository) SaveWorkout(ctx context.Context, memberID, workoutID primitive.ObjectID) (*domain.SavedWorkout, error) {
	saved := &domain.SavedWorkout{
		ID:        primitive.NewObjectID(),
		MemberID:  memberID,
		WorkoutID: workoutID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.workouts.InsertOne(ctx, saved); err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (r *mongoSavedRepository) UnsaveWorkout(ctx context.Context, memberID, workoutID primitive.ObjectID) error {
	result, err := r.workouts.DeleteOne(ctx, bson.M{"memberId": memberID, "workoutId": workoutID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoSavedRepository) ListSavedWorkouts(ctx context.Context, memberID primitive.ObjectID) ([]domain.SavedWorkout, error) {
	saved := []domain.SavedWorkout{}
	cursor, err := r.workouts.Find(ctx, bson.M{"memberId": memberID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *mongoSavedRepository) SaveRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) (*domain.SavedRoutine, error) {
	saved := &domain.SavedRoutine{
		ID:        primitive.NewObjectID(),
		MemberID:  memberID,
		RoutineID: routineID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.routines.InsertOne(ctx, saved); err != nil {
		return nil, mapWriteError(err)
	}
	return saved, nil
}

func (r *mongoSavedRepository) UnsaveRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) error {
	result, err := r.routines.DeleteOne(ctx, bson.M{"memberId": memberID, "routineId": routineID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoSavedRepository) ListSavedRoutines(ctx context.Context, memberID primitive.ObjectID) ([]domain.SavedRoutine, error) {
	saved := []domain.SavedRoutine{}
	cursor, err := r.routines.Find(ctx, bson.M{"memberId": memberID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *mongoSavedRepository) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error {
	if _, err := r.workouts.DeleteMany(ctx, bson.M{"memberId": memberID}); err != nil {
		return err
	}
	_, err := r.routines.DeleteMany(ctx, bson.M{"memberId": memberID})
	return err
}

func (r *mongoSavedRepository) DeleteByWorkout(ctx context.Context, workoutID primitive.ObjectID) error {
	_, err := r.workouts.DeleteMany(ctx, bson.M{"workoutId": workoutID})
	return err
}

func (r *mongoSavedRepository) DeleteByRoutine(ctx context.Context, routineID primitive.ObjectID) error {
	_, err := r.routines.DeleteMany(ctx, bson.M{"routineId": routineID})
	return err
}

// EnsureSavedWorkoutIndexes creates the unique pair index for saved workouts.
func EnsureSavedWorkoutIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "workoutId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// EnsureSavedRoutineIndexes creates the unique pair index for saved routines.
func EnsureSavedRoutineIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "routineId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
