package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressStatus tracks the lifecycle of a Progress record.
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "NOT_STARTED"
	StatusInProgress ProgressStatus = "IN_PROGRESS"
	StatusCompleted  ProgressStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s ProgressStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Progress records a member's attempt at a routine within one session.
//
// A record with WorkoutID == nil is the routine-level record: exactly one exists per
// (MemberID, RoutineID, SessionID). Workout-level records are unique per
// (MemberID, RoutineID, WorkoutID, SessionID). Records written outside a session use
// an empty SessionID.
type Progress struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MemberID    primitive.ObjectID  `bson:"memberId" json:"memberId"`
	RoutineID   primitive.ObjectID  `bson:"routineId" json:"routineId"`
	WorkoutID   *primitive.ObjectID `bson:"workoutId" json:"workoutId"` // stored as null for routine-level rows
	SessionID   string              `bson:"sessionId" json:"sessionId"`
	Status      ProgressStatus      `bson:"status" json:"status"`
	StartedAt   time.Time           `bson:"startedAt" json:"startedAt"`
	CompletedAt *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsRoutineLevel reports whether p is the session's overall record.
func (p *Progress) IsRoutineLevel() bool {
	return p.WorkoutID == nil
}

// AnalyticsEntry is the projection of a completed Progress record used for dashboards.
type AnalyticsEntry struct {
	RoutineID   primitive.ObjectID `json:"routineId"`
	CompletedAt *time.Time         `json:"completedAt"`
	Status      ProgressStatus     `json:"status"`
}

// ToAnalytics projects completed records down to routine id, timestamp and status.
func ToAnalytics(records []Progress) []AnalyticsEntry {
	out := make([]AnalyticsEntry, 0, len(records))
	for _, p := range records {
		out = append(out, AnalyticsEntry{RoutineID: p.RoutineID, CompletedAt: p.CompletedAt, Status: p.Status})
	}
	return out
}
