package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// MemberStats feeds the member dashboard. Calendar buckets use the configured timezone.
type MemberStats struct {
	CompletedSessions int     `json:"completedSessions"`
	CompletedWorkouts int     `json:"completedWorkouts"`
	CurrentStreak     int     `json:"currentStreak"`
	ThisWeek          int     `json:"thisWeek"`
	SavedWorkouts     int     `json:"savedWorkouts"`
	SavedRoutines     int     `json:"savedRoutines"`
	ByWeekday         [7]int  `json:"byWeekday"` // Sunday first
	ByMonth           [12]int `json:"byMonth"`
}

type MemberService interface {
	GetProfile(ctx context.Context, actor Actor) (*domain.MemberDetails, error)
	UpdateProfile(ctx context.Context, actor Actor, in MemberUpdate) (*domain.MemberDetails, error)
	GetTrainer(ctx context.Context, actor Actor) (*domain.TrainerDetails, error)
	Progress(ctx context.Context, actor Actor) ([]domain.Progress, error)
	Workouts(ctx context.Context) ([]domain.Workout, error)
	Routines(ctx context.Context) ([]domain.Routine, error)
	DashboardStats(ctx context.Context, actor Actor) (*MemberStats, error)
}

type memberService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	members  repository.MemberRepository
	trainers repository.TrainerRepository
	workouts repository.WorkoutRepository
	routines repository.RoutineRepository
	progress repository.ProgressRepository
	saved    repository.SavedRepository
	loc      *time.Location
	now      func() time.Time
}

// NewMemberService wires the member self-service endpoints. loc drives streaks and buckets.
func NewMemberService(
	tx repository.TxManager,
	users repository.UserRepository,
	members repository.MemberRepository,
	trainers repository.TrainerRepository,
	workouts repository.WorkoutRepository,
	routines repository.RoutineRepository,
	progress repository.ProgressRepository,
	saved repository.SavedRepository,
	loc *time.Location,
) MemberService {
	if loc == nil {
		loc = time.UTC
	}
	return &memberService{
		tx:       tx,
		users:    users,
		members:  members,
		trainers: trainers,
		workouts: workouts,
		routines: routines,
		progress: progress,
		saved:    saved,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *memberService) GetProfile(ctx context.Context, actor Actor) (*domain.MemberDetails, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &domain.MemberDetails{Member: *member, User: user}, nil
}

func (s *memberService) UpdateProfile(ctx context.Context, actor Actor, in MemberUpdate) (*domain.MemberDetails, error) {
	var details *domain.MemberDetails
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.GetProfile(ctx, actor)
		if err != nil {
			return err
		}
		if err := in.applyProfile(&current.Member); err != nil {
			return err
		}
		if err := updateUser(ctx, s.users, current.User, in.UserUpdate); err != nil {
			return err
		}
		if err := s.members.Update(ctx, &current.Member); err != nil {
			return notFound(err, ErrMemberProfileNotFound)
		}
		details = current
		return nil
	})
	return details, err
}

func (s *memberService) GetTrainer(ctx context.Context, actor Actor) (*domain.TrainerDetails, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if member.TrainerID == nil {
		return nil, ErrNoTrainerAssigned
	}
	trainer, err := s.trainers.GetByID(ctx, *member.TrainerID)
	if err != nil {
		return nil, notFound(err, ErrNoTrainerAssigned)
	}
	user, err := s.users.GetByID(ctx, trainer.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &domain.TrainerDetails{Trainer: *trainer, User: user}, nil
}

func (s *memberService) Progress(ctx context.Context, actor Actor) ([]domain.Progress, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.progress.ListByMember(ctx, member.ID)
}

func (s *memberService) Workouts(ctx context.Context) ([]domain.Workout, error) {
	return s.workouts.List(ctx)
}

func (s *memberService) Routines(ctx context.Context) ([]domain.Routine, error) {
	return s.routines.List(ctx)
}

func (s *memberService) DashboardStats(ctx context.Context, actor Actor) (*MemberStats, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	completed, err := s.progress.ListCompletedByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	var stats MemberStats
	sessions := make([]time.Time, 0, len(completed))
	for _, p := range completed {
		if p.CompletedAt == nil {
			continue
		}
		if p.IsRoutineLevel() {
			stats.CompletedSessions++
			sessions = append(sessions, *p.CompletedAt)
		} else {
			stats.CompletedWorkouts++
		}
	}
	now := s.now()
	stats.CurrentStreak = domain.ComputeStreak(sessions, now, s.loc)
	stats.ThisWeek = domain.CountSince(sessions, domain.StartOfWeek(now, s.loc))
	stats.ByWeekday = domain.WeekdayBuckets(sessions, s.loc)
	stats.ByMonth = domain.MonthBuckets(sessions, s.loc)

	savedWorkouts, err := s.saved.ListSavedWorkouts(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	savedRoutines, err := s.saved.ListSavedRoutines(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	stats.SavedWorkouts = len(savedWorkouts)
	stats.SavedRoutines = len(savedRoutines)
	return &stats, nil
}

// assignedMember loads memberID and checks it belongs to trainerID.
func assignedMember(ctx context.Context, members repository.MemberRepository, trainerID, memberID primitive.ObjectID) (*domain.Member, error) {
	member, err := members.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	if !member.HasTrainer(trainerID) {
		return nil, ErrMemberNotAssigned
	}
	return member, nil
}
