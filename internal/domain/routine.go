package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Routine is an ordered collection of workouts a member performs in one session.
type Routine struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"` // e.g., "Push Day"
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Difficulty  string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RoutineWorkout links a Workout into a Routine with its execution details.
type RoutineWorkout struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoutineID   primitive.ObjectID `bson:"routineId" json:"routineId"`
	WorkoutID   primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	Sequence    int                `bson:"sequence" json:"sequence"` // Order within the routine
	Sets        *int               `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps        *int               `bson:"reps,omitempty" json:"reps,omitempty"`
	RestSeconds *int               `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// RoutineWorkoutDetails is a link enriched with the workout it points at.
type RoutineWorkoutDetails struct {
	RoutineWorkout
	Workout *Workout `json:"workout"`
}

// RoutineDetails is a routine with its workouts in sequence order.
type RoutineDetails struct {
	Routine
	Workouts []RoutineWorkoutDetails `json:"workouts"`
}
