package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxMessageLength bounds the content of a single chat message.
const MaxMessageLength = 2000

// Chat is the single conversation between a member and a trainer.
// At most one exists per (MemberID, TrainerID) pair.
type Chat struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID  primitive.ObjectID `bson:"memberId" json:"memberId"`
	TrainerID primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Message belongs to exactly one Chat and is immutable once created.
// CreatedAt is the only ordering key.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID     primitive.ObjectID `bson:"chatId" json:"chatId"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"` // User ID
	SenderRole Role               `bson:"senderRole" json:"senderRole"`
	Content    string             `bson:"content" json:"content"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// ChatWithMessages is a chat plus its history in ascending CreatedAt order.
type ChatWithMessages struct {
	Chat
	Messages []Message `json:"messages"`
}
