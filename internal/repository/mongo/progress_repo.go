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

// mongoProgressRepository implements repository.ProgressRepository.
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new Progress repository.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// routineLevelFilter matches the routine-level record of a session. workoutId: null
// matches both explicit nulls and missing fields.
func routineLevelFilter(memberID, routineID primitive.ObjectID, sessionID string) bson.M {
	return bson.M{
		"memberId":  memberID,
		"routineId": routineID,
		"sessionId": sessionID,
		"workoutId": nil,
	}
}

func (r *mongoProgressRepository) Create(ctx context.Context, p *domain.Progress) (primitive.ObjectID, error) {
	if p.MemberID == primitive.NilObjectID || p.RoutineID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("progress requires memberId and routineId")
	}
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.StartedAt.IsZero() {
		p.StartedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		return primitive.NilObjectID, mapWriteError(err)
	}
	return p.ID, nil
}

func (r *mongoProgressRepository) FindRoutineLevel(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string) (*domain.Progress, error) {
	var p domain.Progress
	if err := r.collection.FindOne(ctx, routineLevelFilter(memberID, routineID, sessionID)).Decode(&p); err != nil {
		return nil, findOneErr(err)
	}
	return &p, nil
}

func (r *mongoProgressRepository) FindOpenSession(ctx context.Context, memberID, routineID primitive.ObjectID) (*domain.Progress, error) {
	filter := bson.M{
		"memberId":  memberID,
		"routineId": routineID,
		"workoutId": nil,
		"status":    domain.StatusInProgress,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var p domain.Progress
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&p); err != nil {
		return nil, findOneErr(err)
	}
	return &p, nil
}

// CompleteRoutineLevel is an update-many: an unknown session simply matches nothing.
func (r *mongoProgressRepository) CompleteRoutineLevel(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string, at time.Time) (int64, error) {
	update := bson.M{
		"$set": bson.M{
			"status":      domain.StatusCompleted,
			"completedAt": at,
			"updatedAt":   at,
		},
	}
	result, err := r.collection.UpdateMany(ctx, routineLevelFilter(memberID, routineID, sessionID), update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

// UpsertWorkoutLevel creates or updates the record keyed by (member, routine, workout, session).
func (r *mongoProgressRepository) UpsertWorkoutLevel(ctx context.Context, memberID, routineID, workoutID primitive.ObjectID, sessionID string, status domain.ProgressStatus, at time.Time) (*domain.Progress, error) {
	filter := bson.M{
		"memberId":  memberID,
		"routineId": routineID,
		"workoutId": workoutID,
		"sessionId": sessionID,
	}
	var completedAt *time.Time
	if status == domain.StatusCompleted {
		completedAt = &at
	}
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"completedAt": completedAt,
			"updatedAt":   at,
		},
		"$setOnInsert": bson.M{
			"startedAt": at,
			"createdAt": at,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var p domain.Progress
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced on the unique key; the loser retries as an update.
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	}
	if err != nil {
		return nil, findOneErr(err)
	}
	return &p, nil
}

func (r *mongoProgressRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]domain.Progress, error) {
	records := []domain.Progress{}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByMemberRoutine groups rows by session id (string order), then creation time.
func (r *mongoProgressRepository) ListByMemberRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) ([]domain.Progress, error) {
	return r.find(ctx,
		bson.M{"memberId": memberID, "routineId": routineID},
		bson.D{{Key: "sessionId", Value: 1}, {Key: "createdAt", Value: 1}},
	)
}

func (r *mongoProgressRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Progress, error) {
	return r.find(ctx, bson.M{"memberId": memberID}, byCreatedAtAsc)
}

func (r *mongoProgressRepository) ListCompletedByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Progress, error) {
	return r.find(ctx,
		bson.M{"memberId": memberID, "status": domain.StatusCompleted},
		bson.D{{Key: "completedAt", Value: 1}},
	)
}

func (r *mongoProgressRepository) CountCompletedSessionsSince(ctx context.Context, memberIDs []primitive.ObjectID, since time.Time) (int64, error) {
	filter := bson.M{
		"workoutId":   nil,
		"status":      domain.StatusCompleted,
		"completedAt": bson.M{"$gte": since},
	}
	if memberIDs != nil {
		if len(memberIDs) == 0 {
			return 0, nil
		}
		filter["memberId"] = bson.M{"$in": memberIDs}
	}
	return r.collection.CountDocuments(ctx, filter)
}

func (r *mongoProgressRepository) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"memberId": memberID})
	return err
}

func (r *mongoProgressRepository) DeleteByRoutine(ctx context.Context, routineID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"routineId": routineID})
	return err
}

// EnsureProgressIndexes creates the progress indexes. The unique compound key treats a
// null workoutId as a value, so each session has at most one routine-level row.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "memberId", Value: 1},
				{Key: "routineId", Value: 1},
				{Key: "workoutId", Value: 1},
				{Key: "sessionId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("progress_session_key"),
		},
		{
			Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "status", Value: 1}, {Key: "completedAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "routineId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
