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

// mongoMemberRepository implements repository.MemberRepository
type mongoMemberRepository struct {
	collection *mongo.Collection
}

// NewMongoMemberRepository creates a new Member profile repository.
func NewMongoMemberRepository(db *mongo.Database) repository.MemberRepository {
	return &mongoMemberRepository{
		collection: db.Collection(memberCollectionName),
	}
}

func (r *mongoMemberRepository) Create(ctx context.Context, member *domain.Member) (primitive.ObjectID, error) {
	if member.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("member profile requires userId")
	}
	member.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now
	if member.JoinedAt.IsZero() {
		member.JoinedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, member); err != nil {
		return primitive.NilObjectID, mapWriteError(err)
	}
	return member.ID, nil
}

func (r *mongoMemberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Member, error) {
	var member domain.Member
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		return nil, findOneErr(err)
	}
	return &member, nil
}

func (r *mongoMemberRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Member, error) {
	var member domain.Member
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&member); err != nil {
		return nil, findOneErr(err)
	}
	return &member, nil
}

func (r *mongoMemberRepository) find(ctx context.Context, filter bson.M) ([]domain.Member, error) {
	members := []domain.Member{}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(byCreatedAtAsc))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *mongoMemberRepository) List(ctx context.Context) ([]domain.Member, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoMemberRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Member, error) {
	return r.find(ctx, bson.M{"trainerId": trainerID})
}

// Update modifies the profile fields. TrainerID is deliberately not touched here;
// assignments go through SetTrainer.
func (r *mongoMemberRepository) Update(ctx context.Context, member *domain.Member) error {
	member.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"age":            member.Age,
			"gender":         member.Gender,
			"heightCm":       member.HeightCm,
			"weightKg":       member.WeightKg,
			"fitnessGoal":    member.FitnessGoal,
			"membershipType": member.MembershipType,
			"updatedAt":      member.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": member.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetTrainer sets the TrainerID field for a member. Last write wins.
func (r *mongoMemberRepository) SetTrainer(ctx context.Context, memberID primitive.ObjectID, trainerID *primitive.ObjectID) error {
	var update bson.M
	if trainerID == nil {
		update = bson.M{"$unset": bson.M{"trainerId": ""}, "$set": bson.M{"updatedAt": time.Now().UTC()}}
	} else {
		update = bson.M{"$set": bson.M{"trainerId": *trainerID, "updatedAt": time.Now().UTC()}}
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": memberID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ClearTrainer unassigns every member of the given trainer.
func (r *mongoMemberRepository) ClearTrainer(ctx context.Context, trainerID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"trainerId": trainerID},
		bson.M{"$unset": bson.M{"trainerId": ""}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	return err
}

func (r *mongoMemberRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoMemberRepository) CountUnassigned(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"trainerId": bson.M{"$exists": false}})
}

// EnsureMemberIndexes creates necessary indexes. Call during startup.
func EnsureMemberIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}}, // Finding members by trainer
			Options: options.Index().SetSparse(true),      // Sparse because not all members have a trainer
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
