package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SavedWorkout is a member's bookmark of a workout. (MemberID, WorkoutID) is unique.
type SavedWorkout struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID  primitive.ObjectID `bson:"memberId" json:"memberId"`
	WorkoutID primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// SavedRoutine is a member's bookmark of a routine. (MemberID, RoutineID) is unique.
type SavedRoutine struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID  primitive.ObjectID `bson:"memberId" json:"memberId"`
	RoutineID primitive.ObjectID `bson:"routineId" json:"routineId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
