package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// --- Error Definitions ---
var (
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// RegisterInput is a self-service signup. Role may be member (default) or trainer.
type RegisterInput struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role"`
}

// LoginResult carries the signed token and the authenticated user.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// Account is a user with whichever role profile it owns.
type Account struct {
	User    *domain.User    `json:"user"`
	Trainer *domain.Trainer `json:"trainer,omitempty"`
	Member  *domain.Member  `json:"member,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*Account, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context, userID primitive.ObjectID) (*Account, error)
	// EnsureAdmin creates the bootstrap administrator unless the email is taken.
	EnsureAdmin(ctx context.Context, name, email, password string) (bool, error)
}

// authService implements the AuthService interface.
type authService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	trainers repository.TrainerRepository
	members  repository.MemberRepository
	tokens   *auth.TokenManager
	log      logrus.FieldLogger
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	tx repository.TxManager,
	users repository.UserRepository,
	trainers repository.TrainerRepository,
	members repository.MemberRepository,
	tokens *auth.TokenManager,
	log logrus.FieldLogger,
) AuthService {
	return &authService{
		tx:       tx,
		users:    users,
		trainers: trainers,
		members:  members,
		tokens:   tokens,
		log:      loggerOrDiscard(log),
	}
}

// Register creates the user and its role profile in one transaction.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	// 1. Validate input
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember && role != domain.RoleTrainer {
		return nil, validationError("role must be %q or %q", domain.RoleMember, domain.RoleTrainer)
	}

	// 2. Hash the password
	hash, err := hashNewPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(in.Phone),
	}
	account := &Account{User: user}

	// 3. Persist user + profile atomically; the unique email index settles races.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUserAlreadyExists
			}
			return err
		}
		if role == domain.RoleTrainer {
			account.Trainer = &domain.Trainer{UserID: user.ID}
			_, err := s.trainers.Create(ctx, account.Trainer)
			return err
		}
		account.Member = &domain.Member{UserID: user.ID}
		_, err := s.members.Create(ctx, account.Member)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"userId": user.ID.Hex(), "role": role}).Info("user registered")
	return account, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validationError("email and password cannot be empty")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, ErrAuthenticationFailed
	}

	token, expiresAt, err := s.tokens.Sign(user.ID, user.Role)
	if err != nil {
		s.log.WithError(err).Error("token signing failed")
		return nil, ErrTokenGeneration
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Me(ctx context.Context, userID primitive.ObjectID) (*Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	account := &Account{User: user}
	switch user.Role {
	case domain.RoleTrainer:
		if account.Trainer, err = trainerByUser(ctx, s.trainers, userID); err != nil {
			return nil, err
		}
	case domain.RoleMember:
		if account.Member, err = memberByUser(ctx, s.members, userID); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	hash, err := hashNewPassword(password)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	admin := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleAdmin}
	if _, err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil // another instance won the race
		}
		return false, err
	}
	s.log.WithField("email", email).Info("bootstrap admin created")
	return true, nil
}
