package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// TrainerStats feeds the trainer dashboard.
type TrainerStats struct {
	AssignedMembers   int   `json:"assignedMembers"`
	ActiveThisWeek    int   `json:"activeThisWeek"`
	SessionsCompleted int64 `json:"sessionsCompleted"`
	Chats             int   `json:"chats"`
}

type TrainerService interface {
	GetProfile(ctx context.Context, actor Actor) (*domain.TrainerDetails, error)
	UpdateProfile(ctx context.Context, actor Actor, in TrainerUpdate) (*domain.TrainerDetails, error)
	Members(ctx context.Context, actor Actor) ([]domain.MemberDetails, error)
	// Member returns one assigned member; others yield ErrMemberNotAssigned.
	Member(ctx context.Context, actor Actor, memberID primitive.ObjectID) (*domain.MemberDetails, error)
	MemberProgress(ctx context.Context, actor Actor, memberID primitive.ObjectID) ([]domain.Progress, error)
	DashboardStats(ctx context.Context, actor Actor) (*TrainerStats, error)
}

type trainerService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	trainers repository.TrainerRepository
	members  repository.MemberRepository
	progress repository.ProgressRepository
	chats    repository.ChatRepository
	loc      *time.Location
	now      func() time.Time
}

func NewTrainerService(
	tx repository.TxManager,
	users repository.UserRepository,
	trainers repository.TrainerRepository,
	members repository.MemberRepository,
	progress repository.ProgressRepository,
	chats repository.ChatRepository,
	loc *time.Location,
) TrainerService {
	if loc == nil {
		loc = time.UTC
	}
	return &trainerService{
		tx:       tx,
		users:    users,
		trainers: trainers,
		members:  members,
		progress: progress,
		chats:    chats,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *trainerService) GetProfile(ctx context.Context, actor Actor) (*domain.TrainerDetails, error) {
	trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &domain.TrainerDetails{Trainer: *trainer, User: user}, nil
}

func (s *trainerService) UpdateProfile(ctx context.Context, actor Actor, in TrainerUpdate) (*domain.TrainerDetails, error) {
	var details *domain.TrainerDetails
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.GetProfile(ctx, actor)
		if err != nil {
			return err
		}
		if err := in.applyProfile(&current.Trainer); err != nil {
			return err
		}
		if err := updateUser(ctx, s.users, current.User, in.UserUpdate); err != nil {
			return err
		}
		if err := s.trainers.Update(ctx, &current.Trainer); err != nil {
			return notFound(err, ErrTrainerProfileNotFound)
		}
		details = current
		return nil
	})
	return details, err
}

func (s *trainerService) Members(ctx context.Context, actor Actor) ([]domain.MemberDetails, error) {
	trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByTrainer(ctx, trainer.ID)
	if err != nil {
		return nil, err
	}
	return memberDetails(ctx, s.users, members)
}

func (s *trainerService) Member(ctx context.Context, actor Actor, memberID primitive.ObjectID) (*domain.MemberDetails, error) {
	trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
	if err != nil {
		return nil, err
	}
	member, err := assignedMember(ctx, s.members, trainer.ID, memberID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, member.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &domain.MemberDetails{Member: *member, User: user}, nil
}

func (s *trainerService) MemberProgress(ctx context.Context, actor Actor, memberID primitive.ObjectID) ([]domain.Progress, error) {
	trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := assignedMember(ctx, s.members, trainer.ID, memberID); err != nil {
		return nil, err
	}
	return s.progress.ListByMember(ctx, memberID)
}

func (s *trainerService) DashboardStats(ctx context.Context, actor Actor) (*TrainerStats, error) {
	trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByTrainer(ctx, trainer.ID)
	if err != nil {
		return nil, err
	}
	stats := &TrainerStats{AssignedMembers: len(members)}

	ids := make([]primitive.ObjectID, 0, len(members))
	weekStart := domain.StartOfWeek(s.now(), s.loc)
	for _, m := range members {
		ids = append(ids, m.ID)
		n, err := s.progress.CountCompletedSessionsSince(ctx, []primitive.ObjectID{m.ID}, weekStart)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			stats.ActiveThisWeek++
		}
	}
	if stats.SessionsCompleted, err = s.progress.CountCompletedSessionsSince(ctx, ids, time.Time{}); err != nil {
		return nil, err
	}
	chats, err := s.chats.ListByTrainer(ctx, trainer.ID)
	if err != nil {
		return nil, err
	}
	stats.Chats = len(chats)
	return stats, nil
}
