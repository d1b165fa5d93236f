package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// RoutineWorkoutInput is one step of a routine. Steps are sequenced in input order.
type RoutineWorkoutInput struct {
	WorkoutID   primitive.ObjectID `json:"workoutId" binding:"required"`
	Sets        *int               `json:"sets"`
	Reps        *int               `json:"reps"`
	RestSeconds *int               `json:"restSeconds"`
	Notes       string             `json:"notes"`
}

// RoutineInput creates a routine or replaces one wholesale.
type RoutineInput struct {
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	Difficulty  string                `json:"difficulty"`
	Workouts    []RoutineWorkoutInput `json:"workouts"`
}

func (in RoutineInput) apply(r *domain.Routine) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return validationError("routine name is required")
	}
	for i, w := range in.Workouts {
		if w.WorkoutID.IsZero() {
			return validationError("workouts[%d].workoutId is required", i)
		}
		for _, n := range []*int{w.Sets, w.Reps, w.RestSeconds} {
			if n != nil && *n < 0 {
				return validationError("workouts[%d] has a negative value", i)
			}
		}
	}
	r.Name = name
	r.Description = strings.TrimSpace(in.Description)
	r.Difficulty = strings.TrimSpace(in.Difficulty)
	return nil
}

type RoutineService interface {
	Create(ctx context.Context, actor Actor, in RoutineInput) (*domain.RoutineDetails, error)
	List(ctx context.Context) ([]domain.Routine, error)
	Get(ctx context.Context, routineID primitive.ObjectID) (*domain.RoutineDetails, error)
	Update(ctx context.Context, actor Actor, routineID primitive.ObjectID, in RoutineInput) (*domain.RoutineDetails, error)
	Delete(ctx context.Context, actor Actor, routineID primitive.ObjectID) error

	Save(ctx context.Context, actor Actor, routineID primitive.ObjectID) (*domain.SavedRoutine, error)
	Unsave(ctx context.Context, actor Actor, routineID primitive.ObjectID) error
	Saved(ctx context.Context, actor Actor) ([]domain.Routine, error)
}

type routineService struct {
	tx       repository.TxManager
	routines repository.RoutineRepository
	workouts repository.WorkoutRepository
	progress repository.ProgressRepository
	saved    repository.SavedRepository
	members  repository.MemberRepository
	log      logrus.FieldLogger
}

func NewRoutineService(
	tx repository.TxManager,
	routines repository.RoutineRepository,
	workouts repository.WorkoutRepository,
	progress repository.ProgressRepository,
	saved repository.SavedRepository,
	members repository.MemberRepository,
	log logrus.FieldLogger,
) RoutineService {
	return &routineService{
		tx:       tx,
		routines: routines,
		workouts: workouts,
		progress: progress,
		saved:    saved,
		members:  members,
		log:      loggerOrDiscard(log),
	}
}

// Create writes the routine and all of its links in one transaction; a link that
// points at a missing workout rolls the routine back.
func (s *routineService) Create(ctx context.Context, actor Actor, in RoutineInput) (*domain.RoutineDetails, error) {
	routine := &domain.Routine{CreatedBy: actor.UserID}
	if err := in.apply(routine); err != nil {
		return nil, err
	}
	var details *domain.RoutineDetails
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.routines.Create(ctx, routine); err != nil {
			return err
		}
		steps, err := s.link(ctx, routine.ID, in.Workouts)
		if err != nil {
			return err
		}
		details = &domain.RoutineDetails{Routine: *routine, Workouts: steps}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"routineId": routine.ID.Hex(), "workouts": len(in.Workouts)}).Info("routine created")
	return details, nil
}

// link inserts the steps in order with sequence numbers starting at 1.
func (s *routineService) link(ctx context.Context, routineID primitive.ObjectID, steps []RoutineWorkoutInput) ([]domain.RoutineWorkoutDetails, error) {
	out := make([]domain.RoutineWorkoutDetails, 0, len(steps))
	for i, step := range steps {
		workout, err := s.workouts.GetByID(ctx, step.WorkoutID)
		if err != nil {
			return nil, notFound(err, ErrWorkoutNotFound)
		}
		link := &domain.RoutineWorkout{
			RoutineID:   routineID,
			WorkoutID:   step.WorkoutID,
			Sequence:    i + 1,
			Sets:        step.Sets,
			Reps:        step.Reps,
			RestSeconds: step.RestSeconds,
			Notes:       strings.TrimSpace(step.Notes),
		}
		if _, err := s.routines.AddWorkout(ctx, link); err != nil {
			return nil, err
		}
		out = append(out, domain.RoutineWorkoutDetails{RoutineWorkout: *link, Workout: workout})
	}
	return out, nil
}

func (s *routineService) List(ctx context.Context) ([]domain.Routine, error) {
	return s.routines.List(ctx)
}

func (s *routineService) Get(ctx context.Context, routineID primitive.ObjectID) (*domain.RoutineDetails, error) {
	routine, err := s.routines.GetByID(ctx, routineID)
	if err != nil {
		return nil, notFound(err, ErrRoutineNotFound)
	}
	links, err := s.routines.ListWorkouts(ctx, routineID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.WorkoutID)
	}
	workouts, err := s.workouts.GetByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.Workout, len(workouts))
	for i := range workouts {
		byID[workouts[i].ID] = &workouts[i]
	}
	steps := make([]domain.RoutineWorkoutDetails, 0, len(links))
	for _, l := range links {
		steps = append(steps, domain.RoutineWorkoutDetails{RoutineWorkout: l, Workout: byID[l.WorkoutID]})
	}
	return &domain.RoutineDetails{Routine: *routine, Workouts: steps}, nil
}

func (s *routineService) owned(ctx context.Context, actor Actor, routineID primitive.ObjectID) (*domain.Routine, error) {
	routine, err := s.routines.GetByID(ctx, routineID)
	if err != nil {
		return nil, notFound(err, ErrRoutineNotFound)
	}
	if !actor.IsAdmin() && routine.CreatedBy != actor.UserID {
		return nil, ErrForbidden
	}
	return routine, nil
}

// Update replaces the routine's fields and its whole step list.
func (s *routineService) Update(ctx context.Context, actor Actor, routineID primitive.ObjectID, in RoutineInput) (*domain.RoutineDetails, error) {
	var details *domain.RoutineDetails
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		routine, err := s.owned(ctx, actor, routineID)
		if err != nil {
			return err
		}
		if err := in.apply(routine); err != nil {
			return err
		}
		if err := s.routines.Update(ctx, routine); err != nil {
			return notFound(err, ErrRoutineNotFound)
		}
		if err := s.routines.DeleteWorkouts(ctx, routineID); err != nil {
			return err
		}
		steps, err := s.link(ctx, routineID, in.Workouts)
		if err != nil {
			return err
		}
		details = &domain.RoutineDetails{Routine: *routine, Workouts: steps}
		return nil
	})
	return details, err
}

// Delete removes the routine with its links, bookmarks and progress history.
func (s *routineService) Delete(ctx context.Context, actor Actor, routineID primitive.ObjectID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.owned(ctx, actor, routineID); err != nil {
			return err
		}
		if err := s.routines.DeleteWorkouts(ctx, routineID); err != nil {
			return err
		}
		if err := s.saved.DeleteByRoutine(ctx, routineID); err != nil {
			return err
		}
		if err := s.progress.DeleteByRoutine(ctx, routineID); err != nil {
			return err
		}
		return notFound(s.routines.Delete(ctx, routineID), ErrRoutineNotFound)
	})
}

func (s *routineService) Save(ctx context.Context, actor Actor, routineID primitive.ObjectID) (*domain.SavedRoutine, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.routines.GetByID(ctx, routineID); err != nil {
		return nil, notFound(err, ErrRoutineNotFound)
	}
	saved, err := s.saved.SaveRoutine(ctx, member.ID, routineID)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadySaved
	}
	return saved, err
}

func (s *routineService) Unsave(ctx context.Context, actor Actor, routineID primitive.ObjectID) error {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return err
	}
	return notFound(s.saved.UnsaveRoutine(ctx, member.ID, routineID), ErrNotSaved)
}

func (s *routineService) Saved(ctx context.Context, actor Actor) ([]domain.Routine, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	rows, err := s.saved.ListSavedRoutines(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Routine, 0, len(rows))
	for _, row := range rows {
		routine, err := s.routines.GetByID(ctx, row.RoutineID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *routine)
	}
	return out, nil
}
