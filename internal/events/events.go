// Package events publishes domain events about training sessions.
package events

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types.
const (
	SessionStarted  = "session.started"
	SessionFinished = "session.finished"
)

// Event describes a session lifecycle change. It is keyed by member so one member's
// events stay ordered within a partition.
type Event struct {
	Type       string               `json:"type"`
	MemberID   primitive.ObjectID   `json:"memberId"`
	RoutineID  primitive.ObjectID   `json:"routineId"`
	SessionID  string               `json:"sessionId"`
	WorkoutIDs []primitive.ObjectID `json:"workoutIds,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// Publisher hands events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
