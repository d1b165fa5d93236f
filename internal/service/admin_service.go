package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// CreateTrainerInput creates a trainer account and profile.
type CreateTrainerInput struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	Phone           string `json:"phone"`
	Specialization  string `json:"specialization"`
	ExperienceYears int    `json:"experienceYears"`
	Bio             string `json:"bio"`
}

// TrainerUpdate changes account and profile fields; nil fields are kept.
type TrainerUpdate struct {
	UserUpdate
	Specialization  *string `json:"specialization"`
	ExperienceYears *int    `json:"experienceYears"`
	Bio             *string `json:"bio"`
}

func (u TrainerUpdate) applyProfile(t *domain.Trainer) error {
	if u.Specialization != nil {
		t.Specialization = strings.TrimSpace(*u.Specialization)
	}
	if u.ExperienceYears != nil {
		if *u.ExperienceYears < 0 {
			return validationError("experienceYears cannot be negative")
		}
		t.ExperienceYears = *u.ExperienceYears
	}
	if u.Bio != nil {
		t.Bio = *u.Bio
	}
	return nil
}

// CreateMemberInput creates a member account and profile.
type CreateMemberInput struct {
	Name           string              `json:"name" binding:"required"`
	Email          string              `json:"email" binding:"required,email"`
	Password       string              `json:"password" binding:"required,min=6"`
	Phone          string              `json:"phone"`
	TrainerID      *primitive.ObjectID `json:"trainerId"`
	Age            int                 `json:"age"`
	Gender         string              `json:"gender"`
	HeightCm       float64             `json:"heightCm"`
	WeightKg       float64             `json:"weightKg"`
	FitnessGoal    string              `json:"fitnessGoal"`
	MembershipType string              `json:"membershipType"`
}

// MemberUpdate changes account and profile fields; nil fields are kept.
type MemberUpdate struct {
	UserUpdate
	Age            *int     `json:"age"`
	Gender         *string  `json:"gender"`
	HeightCm       *float64 `json:"heightCm"`
	WeightKg       *float64 `json:"weightKg"`
	FitnessGoal    *string  `json:"fitnessGoal"`
	MembershipType *string  `json:"membershipType"`
}

func (u MemberUpdate) applyProfile(m *domain.Member) error {
	if u.Age != nil {
		if *u.Age < 0 {
			return validationError("age cannot be negative")
		}
		m.Age = *u.Age
	}
	if u.Gender != nil {
		m.Gender = strings.TrimSpace(*u.Gender)
	}
	if u.HeightCm != nil {
		if *u.HeightCm < 0 {
			return validationError("heightCm cannot be negative")
		}
		m.HeightCm = *u.HeightCm
	}
	if u.WeightKg != nil {
		if *u.WeightKg < 0 {
			return validationError("weightKg cannot be negative")
		}
		m.WeightKg = *u.WeightKg
	}
	if u.FitnessGoal != nil {
		m.FitnessGoal = strings.TrimSpace(*u.FitnessGoal)
	}
	if u.MembershipType != nil {
		m.MembershipType = strings.TrimSpace(*u.MembershipType)
	}
	return nil
}

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalMembers      int64 `json:"totalMembers"`
	TotalTrainers     int64 `json:"totalTrainers"`
	TotalWorkouts     int64 `json:"totalWorkouts"`
	TotalRoutines     int64 `json:"totalRoutines"`
	UnassignedMembers int64 `json:"unassignedMembers"`
	SessionsLast7Days int64 `json:"sessionsLast7Days"`
}

type AdminService interface {
	ListTrainers(ctx context.Context) ([]domain.TrainerDetails, error)
	GetTrainer(ctx context.Context, trainerID primitive.ObjectID) (*domain.TrainerDetails, error)
	CreateTrainer(ctx context.Context, in CreateTrainerInput) (*domain.TrainerDetails, error)
	UpdateTrainer(ctx context.Context, trainerID primitive.ObjectID, in TrainerUpdate) (*domain.TrainerDetails, error)
	DeleteTrainer(ctx context.Context, trainerID primitive.ObjectID) error

	ListMembers(ctx context.Context) ([]domain.MemberDetails, error)
	GetMember(ctx context.Context, memberID primitive.ObjectID) (*domain.MemberDetails, error)
	CreateMember(ctx context.Context, in CreateMemberInput) (*domain.MemberDetails, error)
	UpdateMember(ctx context.Context, memberID primitive.ObjectID, in MemberUpdate) (*domain.MemberDetails, error)
	DeleteMember(ctx context.Context, memberID primitive.ObjectID) error
	// AssignTrainer sets (or with nil, clears) the member's trainer. Last write wins.
	AssignTrainer(ctx context.Context, memberID primitive.ObjectID, trainerID *primitive.ObjectID) (*domain.MemberDetails, error)

	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, in UserUpdate) (*domain.User, error)
	DashboardStats(ctx context.Context) (*AdminStats, error)
}

type adminService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	trainers repository.TrainerRepository
	members  repository.MemberRepository
	workouts repository.WorkoutRepository
	routines repository.RoutineRepository
	progress repository.ProgressRepository
	saved    repository.SavedRepository
	chats    repository.ChatRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewAdminService wires the admin use cases.
func NewAdminService(
	tx repository.TxManager,
	users repository.UserRepository,
	trainers repository.TrainerRepository,
	members repository.MemberRepository,
	workouts repository.WorkoutRepository,
	routines repository.RoutineRepository,
	progress repository.ProgressRepository,
	saved repository.SavedRepository,
	chats repository.ChatRepository,
	log logrus.FieldLogger,
) AdminService {
	return &adminService{
		tx:       tx,
		users:    users,
		trainers: trainers,
		members:  members,
		workouts: workouts,
		routines: routines,
		progress: progress,
		saved:    saved,
		chats:    chats,
		log:      loggerOrDiscard(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// === Trainers ===

func (s *adminService) ListTrainers(ctx context.Context) ([]domain.TrainerDetails, error) {
	trainers, err := s.trainers.List(ctx)
	if err != nil {
		return nil, err
	}
	return trainerDetails(ctx, s.users, trainers)
}

func (s *adminService) GetTrainer(ctx context.Context, trainerID primitive.ObjectID) (*domain.TrainerDetails, error) {
	trainer, err := s.trainers.GetByID(ctx, trainerID)
	if err != nil {
		return nil, notFound(err, ErrTrainerNotFound)
	}
	user, err := s.users.GetByID(ctx, trainer.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &domain.TrainerDetails{Trainer: *trainer, User: user}, nil
}

func (s *adminService) CreateTrainer(ctx context.Context, in CreateTrainerInput) (*domain.TrainerDetails, error) {
	user, err := newAccountUser(in.Name, in.Email, in.Password, in.Phone, domain.RoleTrainer)
	if err != nil {
		return nil, err
	}
	if in.ExperienceYears < 0 {
		return nil, validationError("experienceYears cannot be negative")
	}
	trainer := &domain.Trainer{
		Specialization:  strings.TrimSpace(in.Specialization),
		ExperienceYears: in.ExperienceYears,
		Bio:             in.Bio,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := createUser(ctx, s.users, user); err != nil {
			return err
		}
		trainer.UserID = user.ID
		_, err := s.trainers.Create(ctx, trainer)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain.TrainerDetails{Trainer: *trainer, User: user}, nil
}

func (s *adminService) UpdateTrainer(ctx context.Context, trainerID primitive.ObjectID, in TrainerUpdate) (*domain.TrainerDetails, error) {
	var details *domain.TrainerDetails
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.GetTrainer(ctx, trainerID)
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
			return notFound(err, ErrTrainerNotFound)
		}
		details = current
		return nil
	})
	return details, err
}

// DeleteTrainer unassigns the trainer's members and removes its chats with the account.
func (s *adminService) DeleteTrainer(ctx context.Context, trainerID primitive.ObjectID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		trainer, err := s.trainers.GetByID(ctx, trainerID)
		if err != nil {
			return notFound(err, ErrTrainerNotFound)
		}
		if err := s.members.ClearTrainer(ctx, trainerID); err != nil {
			return err
		}
		chats, err := s.chats.ListByTrainer(ctx, trainerID)
		if err != nil {
			return err
		}
		for _, chat := range chats {
			if _, err := s.chats.DeleteMessages(ctx, chat.ID); err != nil {
				return err
			}
			if err := s.chats.Delete(ctx, chat.ID); err != nil {
				return err
			}
		}
		if err := s.trainers.Delete(ctx, trainerID); err != nil {
			return err
		}
		return s.users.Delete(ctx, trainer.UserID)
	})
}

// === Members ===

func (s *adminService) ListMembers(ctx context.Context) ([]domain.MemberDetails, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, err
	}
	return memberDetails(ctx, s.users, members)
}

func (s *adminService) GetMember(ctx context.Context, memberID primitive.ObjectID) (*domain.MemberDetails, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	user, err := s.users.GetByID(ctx, member.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &domain.MemberDetails{Member: *member, User: user}, nil
}

func (s *adminService) CreateMember(ctx context.Context, in CreateMemberInput) (*domain.MemberDetails, error) {
	user, err := newAccountUser(in.Name, in.Email, in.Password, in.Phone, domain.RoleMember)
	if err != nil {
		return nil, err
	}
	member := &domain.Member{
		Age:            in.Age,
		Gender:         strings.TrimSpace(in.Gender),
		HeightCm:       in.HeightCm,
		WeightKg:       in.WeightKg,
		FitnessGoal:    strings.TrimSpace(in.FitnessGoal),
		MembershipType: strings.TrimSpace(in.MembershipType),
		TrainerID:      in.TrainerID,
	}
	if member.Age < 0 || member.HeightCm < 0 || member.WeightKg < 0 {
		return nil, validationError("age, heightCm and weightKg cannot be negative")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.TrainerID != nil {
			if _, err := s.trainers.GetByID(ctx, *in.TrainerID); err != nil {
				return notFound(err, ErrTrainerNotFound)
			}
		}
		if err := createUser(ctx, s.users, user); err != nil {
			return err
		}
		member.UserID = user.ID
		_, err := s.members.Create(ctx, member)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain.MemberDetails{Member: *member, User: user}, nil
}

func (s *adminService) UpdateMember(ctx context.Context, memberID primitive.ObjectID, in MemberUpdate) (*domain.MemberDetails, error) {
	var details *domain.MemberDetails
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.GetMember(ctx, memberID)
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
			return notFound(err, ErrMemberNotFound)
		}
		details = current
		return nil
	})
	return details, err
}

// DeleteMember removes the member with its progress, bookmarks and chats.
func (s *adminService) DeleteMember(ctx context.Context, memberID primitive.ObjectID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		member, err := s.members.GetByID(ctx, memberID)
		if err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		if err := s.progress.DeleteByMember(ctx, memberID); err != nil {
			return err
		}
		if err := s.saved.DeleteByMember(ctx, memberID); err != nil {
			return err
		}
		if err := s.chats.DeleteByMember(ctx, memberID); err != nil {
			return err
		}
		if err := s.members.Delete(ctx, memberID); err != nil {
			return err
		}
		return s.users.Delete(ctx, member.UserID)
	})
}

func (s *adminService) AssignTrainer(ctx context.Context, memberID primitive.ObjectID, trainerID *primitive.ObjectID) (*domain.MemberDetails, error) {
	if trainerID != nil {
		if _, err := s.trainers.GetByID(ctx, *trainerID); err != nil {
			return nil, notFound(err, ErrTrainerNotFound)
		}
	}
	if err := s.members.SetTrainer(ctx, memberID, trainerID); err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	s.log.WithFields(logrus.Fields{"memberId": memberID.Hex(), "trainerId": trainerID}).Info("trainer assignment changed")
	return s.GetMember(ctx, memberID)
}

// === Admin profile & dashboard ===

func (s *adminService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *adminService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in UserUpdate) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := updateUser(ctx, s.users, user, in); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *adminService) DashboardStats(ctx context.Context) (*AdminStats, error) {
	var (
		stats AdminStats
		err   error
	)
	if stats.TotalMembers, err = s.users.CountByRole(ctx, domain.RoleMember); err != nil {
		return nil, err
	}
	if stats.TotalTrainers, err = s.users.CountByRole(ctx, domain.RoleTrainer); err != nil {
		return nil, err
	}
	if stats.TotalWorkouts, err = s.workouts.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalRoutines, err = s.routines.Count(ctx); err != nil {
		return nil, err
	}
	if stats.UnassignedMembers, err = s.members.CountUnassigned(ctx); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -7)
	if stats.SessionsLast7Days, err = s.progress.CountCompletedSessionsSince(ctx, nil, since); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- helpers ---

func newAccountUser(name, email, password, phone string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name is required")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := hashNewPassword(password)
	if err != nil {
		return nil, err
	}
	return &domain.User{Name: name, Email: email, PasswordHash: hash, Phone: strings.TrimSpace(phone), Role: role}, nil
}

func createUser(ctx context.Context, users repository.UserRepository, user *domain.User) error {
	if _, err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func trainerDetails(ctx context.Context, users repository.UserRepository, trainers []domain.Trainer) ([]domain.TrainerDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(trainers))
	for _, t := range trainers {
		ids = append(ids, t.UserID)
	}
	byID, err := usersByID(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TrainerDetails, 0, len(trainers))
	for _, t := range trainers {
		out = append(out, domain.TrainerDetails{Trainer: t, User: byID[t.UserID]})
	}
	return out, nil
}

func memberDetails(ctx context.Context, users repository.UserRepository, members []domain.Member) ([]domain.MemberDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	byID, err := usersByID(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MemberDetails, 0, len(members))
	for _, m := range members {
		out = append(out, domain.MemberDetails{Member: m, User: byID[m.UserID]})
	}
	return out, nil
}
