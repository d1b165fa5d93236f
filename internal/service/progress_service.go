package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/config"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/events"
	"alcyxob/gym-manager/internal/repository"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionNotInProgress = errors.New("session is not in progress")
	ErrSessionAlreadyOpen   = errors.New("a session for this routine is already in progress")
	ErrMemberNotAssigned    = errors.New("member is not assigned to this trainer")
)

// Session outcomes reported to metrics.
const (
	outcomeCompleted      = "completed"
	outcomeUnknownSession = "unknown_session"
	outcomeRejected       = "rejected"
)

// ProgressOptions tunes session handling.
type ProgressOptions struct {
	// StrictSessions rejects finishing a session that is unknown or already finished.
	StrictSessions bool
	// ConcurrentSessions is one of config.SessionsAllow, SessionsReuse or SessionsReject.
	ConcurrentSessions string
	// Location is the timezone used for calendar-day statistics.
	Location *time.Location
	Now      func() time.Time
}

func (o ProgressOptions) withDefaults() ProgressOptions {
	if o.ConcurrentSessions == "" {
		o.ConcurrentSessions = config.SessionsAllow
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// StartResult is the outcome of starting a routine.
type StartResult struct {
	SessionID string           `json:"sessionId"`
	Progress  *domain.Progress `json:"progress"`
	// Reused is set when an open session was returned instead of a new one.
	Reused bool `json:"reused,omitempty"`
}

// FinishResult carries the finished session and the workout rows written for it.
type FinishResult struct {
	Session  domain.Session    `json:"session"`
	Workouts []domain.Progress `json:"workouts"`
	// Matched is the number of routine-level rows moved to COMPLETED.
	Matched int64 `json:"matched"`
}

// WorkoutProgressInput records one workout outside of a timed session.
type WorkoutProgressInput struct {
	RoutineID primitive.ObjectID    `json:"routineId" binding:"required"`
	WorkoutID primitive.ObjectID    `json:"workoutId" binding:"required"`
	Status    domain.ProgressStatus `json:"status"`
	SessionID string                `json:"sessionId"`
}

type ProgressService interface {
	Start(ctx context.Context, actor Actor, routineID primitive.ObjectID) (*StartResult, error)
	Finish(ctx context.Context, actor Actor, routineID primitive.ObjectID, sessionID string, workoutIDs []primitive.ObjectID) (*FinishResult, error)
	// Complete starts and finishes a session in one unit of work.
	Complete(ctx context.Context, actor Actor, routineID primitive.ObjectID, workoutIDs []primitive.ObjectID) (*FinishResult, error)
	RecordWorkout(ctx context.Context, actor Actor, in WorkoutProgressInput) (*domain.Progress, error)
	RoutineProgress(ctx context.Context, actor Actor, routineID primitive.ObjectID) ([]domain.Progress, error)
	Analytics(ctx context.Context, actor Actor) ([]domain.AnalyticsEntry, error)
	// MemberProgress lets trainers read an assigned member's records and admins any member's.
	MemberProgress(ctx context.Context, actor Actor, memberID primitive.ObjectID) ([]domain.Progress, error)
}

type progressService struct {
	tx        repository.TxManager
	progress  repository.ProgressRepository
	routines  repository.RoutineRepository
	workouts  repository.WorkoutRepository
	members   repository.MemberRepository
	trainers  repository.TrainerRepository
	publisher events.Publisher
	metrics   Metrics
	log       logrus.FieldLogger
	opts      ProgressOptions
}

// NewProgressService wires session tracking. publisher and metrics may be nil.
func NewProgressService(
	tx repository.TxManager,
	progress repository.ProgressRepository,
	routines repository.RoutineRepository,
	workouts repository.WorkoutRepository,
	members repository.MemberRepository,
	trainers repository.TrainerRepository,
	publisher events.Publisher,
	metrics Metrics,
	log logrus.FieldLogger,
	opts ProgressOptions,
) ProgressService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &progressService{
		tx:        tx,
		progress:  progress,
		routines:  routines,
		workouts:  workouts,
		members:   members,
		trainers:  trainers,
		publisher: publisher,
		metrics:   metricsOrNop(metrics),
		log:       loggerOrDiscard(log),
		opts:      opts.withDefaults(),
	}
}

func (s *progressService) routineExists(ctx context.Context, routineID primitive.ObjectID) error {
	if _, err := s.routines.GetByID(ctx, routineID); err != nil {
		return notFound(err, ErrRoutineNotFound)
	}
	return nil
}

func (s *progressService) Start(ctx context.Context, actor Actor, routineID primitive.ObjectID) (*StartResult, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.routineExists(ctx, routineID); err != nil {
		return nil, err
	}

	var result *StartResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if s.opts.ConcurrentSessions != config.SessionsAllow {
			open, err := s.progress.FindOpenSession(ctx, member.ID, routineID)
			switch {
			case err == nil && s.opts.ConcurrentSessions == config.SessionsReuse:
				result = &StartResult{SessionID: open.SessionID, Progress: open, Reused: true}
				return nil
			case err == nil:
				return ErrSessionAlreadyOpen
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}

		session := domain.StartSession(member.ID, routineID, s.opts.Now())
		record := session.Record()
		if _, err := s.progress.Create(ctx, record); err != nil {
			return err
		}
		result = &StartResult{SessionID: session.ID, Progress: record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Reused {
		return result, nil
	}

	s.metrics.SessionStarted()
	s.publish(ctx, events.Event{
		Type:       events.SessionStarted,
		MemberID:   member.ID,
		RoutineID:  routineID,
		SessionID:  result.SessionID,
		OccurredAt: result.Progress.StartedAt,
	})
	return result, nil
}

func (s *progressService) Finish(ctx context.Context, actor Actor, routineID primitive.ObjectID, sessionID string, workoutIDs []primitive.ObjectID) (*FinishResult, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, validationError("sessionId is required")
	}
	if err := s.routineExists(ctx, routineID); err != nil {
		return nil, err
	}

	var result *FinishResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.finishLocked(ctx, member.ID, routineID, sessionID, workoutIDs)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionNotInProgress) {
			s.metrics.SessionFinished(outcomeRejected)
		}
		return nil, err
	}
	s.afterFinish(ctx, member.ID, routineID, sessionID, result)
	return result, nil
}

// finishLocked runs inside a transaction: the routine-level rows move to COMPLETED and
// one workout-level row per distinct workout id is upserted under the same session.
func (s *progressService) finishLocked(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string, workoutIDs []primitive.ObjectID) (*FinishResult, error) {
	now := s.opts.Now()
	session := domain.Session{ID: sessionID, MemberID: memberID, RoutineID: routineID, State: domain.SessionNotStarted}

	record, err := s.progress.FindRoutineLevel(ctx, memberID, routineID, sessionID)
	switch {
	case err == nil:
		if session, err = domain.SessionFromProgress(record); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	finished, err := session.Finish(now)
	if s.opts.StrictSessions {
		if record == nil {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, ErrSessionNotInProgress
		}
	}
	if err != nil {
		// Permissive mode: keep going and write the workout rows anyway.
		finished = session
		finished.ID = sessionID
	}

	ids := dedupeIDs(workoutIDs)
	if len(ids) > 0 {
		found, err := s.workouts.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(found) != len(ids) {
			return nil, ErrWorkoutNotFound
		}
	}

	matched, err := s.progress.CompleteRoutineLevel(ctx, memberID, routineID, sessionID, now)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Progress, 0, len(ids))
	for _, workoutID := range ids {
		row, err := s.progress.UpsertWorkoutLevel(ctx, memberID, routineID, workoutID, sessionID, domain.StatusCompleted, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return &FinishResult{Session: finished, Workouts: rows, Matched: matched}, nil
}

func (s *progressService) afterFinish(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string, result *FinishResult) {
	outcome := outcomeCompleted
	if result.Matched == 0 {
		outcome = outcomeUnknownSession
		s.log.WithFields(logrus.Fields{
			"memberId":  memberID.Hex(),
			"routineId": routineID.Hex(),
			"sessionId": sessionID,
		}).Warn("finish matched no routine-level record")
	}
	s.metrics.SessionFinished(outcome)

	ids := make([]primitive.ObjectID, 0, len(result.Workouts))
	for _, row := range result.Workouts {
		ids = append(ids, *row.WorkoutID)
	}
	s.publish(ctx, events.Event{
		Type:       events.SessionFinished,
		MemberID:   memberID,
		RoutineID:  routineID,
		SessionID:  sessionID,
		WorkoutIDs: ids,
		OccurredAt: s.opts.Now(),
	})
}

func (s *progressService) Complete(ctx context.Context, actor Actor, routineID primitive.ObjectID, workoutIDs []primitive.ObjectID) (*FinishResult, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.routineExists(ctx, routineID); err != nil {
		return nil, err
	}

	var result *FinishResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		session := domain.StartSession(member.ID, routineID, s.opts.Now())
		if _, err := s.progress.Create(ctx, session.Record()); err != nil {
			return err
		}
		var err error
		result, err = s.finishLocked(ctx, member.ID, routineID, session.ID, workoutIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SessionStarted()
	s.afterFinish(ctx, member.ID, routineID, result.Session.ID, result)
	return result, nil
}

func (s *progressService) RecordWorkout(ctx context.Context, actor Actor, in WorkoutProgressInput) (*domain.Progress, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	if !status.Valid() {
		return nil, validationError("unknown status %q", status)
	}
	if err := s.routineExists(ctx, in.RoutineID); err != nil {
		return nil, err
	}
	if _, err := s.workouts.GetByID(ctx, in.WorkoutID); err != nil {
		return nil, notFound(err, ErrWorkoutNotFound)
	}
	return s.progress.UpsertWorkoutLevel(ctx, member.ID, in.RoutineID, in.WorkoutID, in.SessionID, status, s.opts.Now())
}

func (s *progressService) RoutineProgress(ctx context.Context, actor Actor, routineID primitive.ObjectID) ([]domain.Progress, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.progress.ListByMemberRoutine(ctx, member.ID, routineID)
}

func (s *progressService) Analytics(ctx context.Context, actor Actor) ([]domain.AnalyticsEntry, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	records, err := s.progress.ListCompletedByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	return domain.ToAnalytics(records), nil
}

func (s *progressService) MemberProgress(ctx context.Context, actor Actor, memberID primitive.ObjectID) ([]domain.Progress, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleTrainer:
		trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !member.HasTrainer(trainer.ID) {
			return nil, ErrMemberNotAssigned
		}
	default:
		return nil, ErrForbidden
	}
	return s.progress.ListByMember(ctx, member.ID)
}

// publish hands the event to the bus. A failure never fails the request.
func (s *progressService) publish(ctx context.Context, event events.Event) {
	err := s.publisher.Publish(ctx, event)
	s.metrics.EventPublished(event.Type, err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"type":      event.Type,
			"sessionId": event.SessionID,
		}).Warn("event publish failed")
	}
}
