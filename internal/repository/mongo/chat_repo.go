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

// mongoChatRepository implements repository.ChatRepository.
type mongoChatRepository struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoChatRepository creates a new Chat repository.
func NewMongoChatRepository(db *mongo.Database) repository.ChatRepository {
	return &mongoChatRepository{
		chats:    db.Collection(chatCollectionName),
		messages: db.Collection(messageCollectionName),
	}
}

// GetOrCreate upserts on the unique (memberId, trainerId) pair, so concurrent callers
// converge on one chat.
func (r *mongoChatRepository) GetOrCreate(ctx context.Context, memberID, trainerID primitive.ObjectID) (*domain.Chat, error) {
	filter := bson.M{"memberId": memberID, "trainerId": trainerID}
	update := bson.M{"$setOnInsert": bson.M{"createdAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var chat domain.Chat
	err := r.chats.FindOneAndUpdate(ctx, filter, update, opts).Decode(&chat)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race; the winner's row is there now.
		err = r.chats.FindOne(ctx, filter).Decode(&chat)
	}
	if err != nil {
		return nil, findOneErr(err)
	}
	return &chat, nil
}

func (r *mongoChatRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Chat, error) {
	var chat domain.Chat
	if err := r.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		return nil, findOneErr(err)
	}
	return &chat, nil
}

func (r *mongoChatRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Chat, error) {
	chats := []domain.Chat{}
	cursor, err := r.chats.Find(ctx, bson.M{"trainerId": trainerID}, options.Find().SetSort(byCreatedAtAsc))
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *mongoChatRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.chats.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByMember removes every chat of a member together with the messages.
func (r *mongoChatRepository) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error {
	var chats []domain.Chat
	cursor, err := r.chats.Find(ctx, bson.M{"memberId": memberID})
	if err != nil {
		return err
	}
	if err := decodeAll(ctx, cursor, &chats); err != nil {
		return err
	}
	ids := make([]primitive.ObjectID, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.messages.DeleteMany(ctx, bson.M{"chatId": bson.M{"$in": ids}}); err != nil {
		return err
	}
	_, err = r.chats.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *mongoChatRepository) CreateMessage(ctx context.Context, msg *domain.Message) (primitive.ObjectID, error) {
	if msg.ChatID == primitive.NilObjectID || msg.SenderID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("message requires chatId and senderId")
	}
	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if _, err := r.messages.InsertOne(ctx, msg); err != nil {
		return primitive.NilObjectID, err
	}
	return msg.ID, nil
}

func (r *mongoChatRepository) GetMessage(ctx context.Context, id primitive.ObjectID) (*domain.Message, error) {
	var msg domain.Message
	if err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, findOneErr(err)
	}
	return &msg, nil
}

// ListMessages returns the chat history; _id breaks ties between equal timestamps.
func (r *mongoChatRepository) ListMessages(ctx context.Context, chatID primitive.ObjectID) ([]domain.Message, error) {
	messages := []domain.Message{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, err
	}
	if err := decodeAll(ctx, cursor, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *mongoChatRepository) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.messages.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoChatRepository) DeleteMessages(ctx context.Context, chatID primitive.ObjectID) (int64, error) {
	result, err := r.messages.DeleteMany(ctx, bson.M{"chatId": chatID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureChatIndexes enforces one chat per (member, trainer) pair.
func EnsureChatIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "trainerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// EnsureMessageIndexes supports the history query.
func EnsureMessageIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index(),
	})
	return err
}
