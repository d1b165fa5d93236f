package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// --- Error Definitions ---
// Errors shared by several services. The API layer maps each to a status code.
var (
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("access denied")
	ErrFeatureDisabled = errors.New("feature is not enabled")

	ErrUserNotFound           = errors.New("user not found")
	ErrMemberNotFound         = errors.New("member not found")
	ErrTrainerNotFound        = errors.New("trainer not found")
	ErrWorkoutNotFound        = errors.New("workout not found")
	ErrRoutineNotFound        = errors.New("routine not found")
	ErrMemberProfileNotFound  = errors.New("member profile not found for user")
	ErrTrainerProfileNotFound = errors.New("trainer profile not found for user")
	ErrUserAlreadyExists      = errors.New("user with this email already exists")
)

// validationError wraps ErrValidation with a human readable reason.
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Actor is the authenticated caller as carried by the token.
type Actor struct {
	UserID primitive.ObjectID
	Role   domain.Role
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// Metrics is the subset of observability.Metrics the services report to.
type Metrics interface {
	SessionStarted()
	SessionFinished(outcome string)
	MessageSent(path string)
	EventPublished(eventType string, err error)
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()              {}
func (nopMetrics) SessionFinished(string)       {}
func (nopMetrics) MessageSent(string)           {}
func (nopMetrics) EventPublished(string, error) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

func loggerOrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		return l
	}
	return log
}

// notFound maps repository.ErrNotFound to the service-level error.
func notFound(err error, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

func memberByUser(ctx context.Context, members repository.MemberRepository, userID primitive.ObjectID) (*domain.Member, error) {
	member, err := members.GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrMemberProfileNotFound)
	}
	return member, nil
}

func trainerByUser(ctx context.Context, trainers repository.TrainerRepository, userID primitive.ObjectID) (*domain.Trainer, error) {
	trainer, err := trainers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrTrainerProfileNotFound)
	}
	return trainer, nil
}

// validate is the same engine gin's binding tags run on, for callers that bypass HTTP.
var validate = validator.New()

// normalizeEmail lowercases a bare address. Display-name forms are rejected.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validationError("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", validationError("invalid email address")
	}
	return email, nil
}

const minPasswordLength = 6

func hashNewPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", validationError("password must be at least %d characters", minPasswordLength)
	}
	return auth.HashPassword(password)
}

// UserUpdate holds optional account changes; nil fields are left untouched.
type UserUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

func (u UserUpdate) apply(user *domain.User) error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return validationError("name cannot be empty")
		}
		user.Name = name
	}
	if u.Email != nil {
		email, err := normalizeEmail(*u.Email)
		if err != nil {
			return err
		}
		user.Email = email
	}
	if u.Phone != nil {
		user.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Password != nil {
		hash, err := hashNewPassword(*u.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	return nil
}

// updateUser applies u and persists it, mapping a taken email to ErrUserAlreadyExists.
func updateUser(ctx context.Context, users repository.UserRepository, user *domain.User, u UserUpdate) error {
	if err := u.apply(user); err != nil {
		return err
	}
	if err := users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUserAlreadyExists
		}
		return notFound(err, ErrUserNotFound)
	}
	return nil
}

// dedupeIDs keeps the first occurrence of each id.
func dedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func usersByID(ctx context.Context, users repository.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.User, error) {
	list, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]*domain.User, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}
