package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trainer is the trainer-specific profile of a User with RoleTrainer.
type Trainer struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Specialization  string             `bson:"specialization,omitempty" json:"specialization,omitempty"` // e.g., "Strength", "Yoga"
	ExperienceYears int                `bson:"experienceYears" json:"experienceYears"`
	Bio             string             `bson:"bio,omitempty" json:"bio,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Member is the member-specific profile of a User with RoleMember.
type Member struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	// Trainer profile ID; nil until an admin assigns one.
	TrainerID      *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	Age            int                 `bson:"age,omitempty" json:"age,omitempty"`
	Gender         string              `bson:"gender,omitempty" json:"gender,omitempty"`
	HeightCm       float64             `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	WeightKg       float64             `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	FitnessGoal    string              `bson:"fitnessGoal,omitempty" json:"fitnessGoal,omitempty"`
	MembershipType string              `bson:"membershipType,omitempty" json:"membershipType,omitempty"` // e.g., "monthly", "annual"
	JoinedAt       time.Time           `bson:"joinedAt" json:"joinedAt"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// HasTrainer reports whether the member is assigned to the given trainer profile.
func (m *Member) HasTrainer(trainerID primitive.ObjectID) bool {
	return m.TrainerID != nil && *m.TrainerID == trainerID
}

// TrainerDetails joins a trainer profile with its user record for API responses.
type TrainerDetails struct {
	Trainer
	User *User `json:"user"`
}

// MemberDetails joins a member profile with its user record for API responses.
type MemberDetails struct {
	Member
	User *User `json:"user"`
}
