package repository

import (
	"alcyxob/gym-manager/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxManager runs a unit of work atomically. Repositories called with the ctx handed
// to fn take part in the same transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

// TrainerRepository stores trainer profiles.
type TrainerRepository interface {
	Create(ctx context.Context, trainer *domain.Trainer) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Trainer, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Trainer, error)
	List(ctx context.Context) ([]domain.Trainer, error)
	Update(ctx context.Context, trainer *domain.Trainer) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// MemberRepository stores member profiles.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Member, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Member, error)
	List(ctx context.Context) ([]domain.Member, error)
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Member, error)
	Update(ctx context.Context, member *domain.Member) error
	// SetTrainer assigns (or with nil, clears) the member's trainer.
	SetTrainer(ctx context.Context, memberID primitive.ObjectID, trainerID *primitive.ObjectID) error
	ClearTrainer(ctx context.Context, trainerID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountUnassigned(ctx context.Context) (int64, error)
}

// WorkoutRepository defines the interface for interacting with workout data.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Workout, error)
	List(ctx context.Context) ([]domain.Workout, error)
	Update(ctx context.Context, workout *domain.Workout) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// RoutineRepository stores routines and their ordered workout links.
type RoutineRepository interface {
	Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error)
	List(ctx context.Context) ([]domain.Routine, error)
	Update(ctx context.Context, routine *domain.Routine) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)

	AddWorkout(ctx context.Context, link *domain.RoutineWorkout) (primitive.ObjectID, error)
	ListWorkouts(ctx context.Context, routineID primitive.ObjectID) ([]domain.RoutineWorkout, error) // Sorted by sequence
	DeleteWorkouts(ctx context.Context, routineID primitive.ObjectID) error
	// RemoveWorkoutEverywhere drops a workout from every routine that links it.
	RemoveWorkoutEverywhere(ctx context.Context, workoutID primitive.ObjectID) error
}

// ProgressRepository stores session-scoped progress records.
type ProgressRepository interface {
	Create(ctx context.Context, p *domain.Progress) (primitive.ObjectID, error)
	// FindRoutineLevel returns the routine-level record of a session.
	FindRoutineLevel(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string) (*domain.Progress, error)
	// FindOpenSession returns the most recent IN_PROGRESS routine-level record, if any.
	FindOpenSession(ctx context.Context, memberID, routineID primitive.ObjectID) (*domain.Progress, error)
	// CompleteRoutineLevel marks every matching routine-level record COMPLETED and
	// returns how many matched.
	CompleteRoutineLevel(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string, at time.Time) (int64, error)
	// UpsertWorkoutLevel creates or updates the record keyed by
	// (member, routine, workout, session).
	UpsertWorkoutLevel(ctx context.Context, memberID, routineID, workoutID primitive.ObjectID, sessionID string, status domain.ProgressStatus, at time.Time) (*domain.Progress, error)
	// ListByMemberRoutine is ordered by sessionId then createdAt ascending.
	ListByMemberRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) ([]domain.Progress, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Progress, error)
	ListCompletedByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Progress, error)
	// CountCompletedSessionsSince counts COMPLETED routine-level records for the given
	// members (all members when memberIDs is nil) completed at or after since.
	CountCompletedSessionsSince(ctx context.Context, memberIDs []primitive.ObjectID, since time.Time) (int64, error)
	DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error
	DeleteByRoutine(ctx context.Context, routineID primitive.ObjectID) error
}

// SavedRepository stores member bookmarks. Saving an existing pair returns ErrDuplicate;
// unsaving a missing pair returns ErrNotFound.
type SavedRepository interface {
	SaveWorkout(ctx context.Context, memberID, workoutID primitive.ObjectID) (*domain.SavedWorkout, error)
	UnsaveWorkout(ctx context.Context, memberID, workoutID primitive.ObjectID) error
	ListSavedWorkouts(ctx context.Context, memberID primitive.ObjectID) ([]domain.SavedWorkout, error)
	SaveRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) (*domain.SavedRoutine, error)
	UnsaveRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) error
	ListSavedRoutines(ctx context.Context, memberID primitive.ObjectID) ([]domain.SavedRoutine, error)
	DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error
	DeleteByWorkout(ctx context.Context, workoutID primitive.ObjectID) error
	DeleteByRoutine(ctx context.Context, routineID primitive.ObjectID) error
}

// ChatRepository stores chats and their messages.
type ChatRepository interface {
	// GetOrCreate atomically returns the chat for the pair, creating it if absent.
	GetOrCreate(ctx context.Context, memberID, trainerID primitive.ObjectID) (*domain.Chat, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Chat, error)
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Chat, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error

	CreateMessage(ctx context.Context, msg *domain.Message) (primitive.ObjectID, error)
	GetMessage(ctx context.Context, id primitive.ObjectID) (*domain.Message, error)
	// ListMessages is ordered by createdAt ascending.
	ListMessages(ctx context.Context, chatID primitive.ObjectID) ([]domain.Message, error)
	DeleteMessage(ctx context.Context, id primitive.ObjectID) error
	DeleteMessages(ctx context.Context, chatID primitive.ObjectID) (int64, error)
}

// MediaRepository defines the interface for interacting with workout media metadata.
type MediaRepository interface {
	Create(ctx context.Context, media *domain.Media) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Media, error)
	GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (*domain.Media, error) // Latest upload for the workout
	Delete(ctx context.Context, id primitive.ObjectID) error
}
