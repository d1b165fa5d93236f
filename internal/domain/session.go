package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrSessionNotInProgress = errors.New("session is not in progress")
	ErrNotRoutineLevel      = errors.New("progress record is not a routine-level record")
)

// SessionState is the state of one timed attempt at a routine.
// Start and Finish are the only legal transitions:
//
//	NotStarted --Start--> InProgress --Finish--> Finished
type SessionState string

const (
	SessionNotStarted SessionState = "NOT_STARTED"
	SessionInProgress SessionState = "IN_PROGRESS"
	SessionFinished   SessionState = "FINISHED"
)

// Session is derived from (and persisted as) the routine-level Progress record.
type Session struct {
	ID         string             `json:"id"`
	MemberID   primitive.ObjectID `json:"memberId"`
	RoutineID  primitive.ObjectID `json:"routineId"`
	State      SessionState       `json:"state"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// StartSession mints a new session id and returns the session in the InProgress state.
func StartSession(memberID, routineID primitive.ObjectID, now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		RoutineID: routineID,
		State:     SessionInProgress,
		StartedAt: now,
	}
}

// Finish moves an InProgress session to Finished.
func (s Session) Finish(now time.Time) (Session, error) {
	if s.State != SessionInProgress {
		return s, ErrSessionNotInProgress
	}
	s.State = SessionFinished
	s.FinishedAt = &now
	return s, nil
}

// Record renders the session as its routine-level Progress record.
func (s Session) Record() *Progress {
	p := &Progress{
		MemberID:  s.MemberID,
		RoutineID: s.RoutineID,
		SessionID: s.ID,
		StartedAt: s.StartedAt,
	}
	switch s.State {
	case SessionInProgress:
		p.Status = StatusInProgress
	case SessionFinished:
		p.Status = StatusCompleted
		p.CompletedAt = s.FinishedAt
	default:
		p.Status = StatusNotStarted
	}
	return p
}

// SessionFromProgress rebuilds the session state from a routine-level record.
// A nil record means the session was never started.
func SessionFromProgress(p *Progress) (Session, error) {
	if p == nil {
		return Session{State: SessionNotStarted}, nil
	}
	if !p.IsRoutineLevel() {
		return Session{}, ErrNotRoutineLevel
	}
	s := Session{
		ID:        p.SessionID,
		MemberID:  p.MemberID,
		RoutineID: p.RoutineID,
		StartedAt: p.StartedAt,
	}
	switch p.Status {
	case StatusInProgress:
		s.State = SessionInProgress
	case StatusCompleted:
		s.State = SessionFinished
		s.FinishedAt = p.CompletedAt
	default:
		s.State = SessionNotStarted
	}
	return s, nil
}
