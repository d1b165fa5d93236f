package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workout is a single exercise definition in the gym's library.
type Workout struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	MuscleGroup     string             `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"` // e.g., "Chest", "Legs", "Back"
	Difficulty      string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`   // e.g., "beginner", "intermediate", "advanced"
	DurationMinutes int                `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Sets            int                `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps            int                `bson:"reps,omitempty" json:"reps,omitempty"`
	CaloriesBurned  int                `bson:"caloriesBurned,omitempty" json:"caloriesBurned,omitempty"`
	CreatedBy       primitive.ObjectID `bson:"createdBy" json:"createdBy"` // User ID of the trainer or admin
	// Demo video or image stored in object storage.
	MediaID   *primitive.ObjectID `bson:"mediaId,omitempty" json:"mediaId,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}
