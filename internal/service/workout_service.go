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
	"alcyxob/gym-manager/internal/storage"
)

var (
	ErrAlreadySaved  = errors.New("item is already saved")
	ErrNotSaved      = errors.New("item is not saved")
	ErrInvalidMedia  = errors.New("object key does not belong to this workout")
	ErrMediaNotFound = errors.New("media not found")
)

// WorkoutInput creates or fully replaces a workout's descriptive fields.
type WorkoutInput struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	MuscleGroup     string `json:"muscleGroup"`
	Difficulty      string `json:"difficulty"`
	DurationMinutes int    `json:"durationMinutes"`
	Sets            int    `json:"sets"`
	Reps            int    `json:"reps"`
	CaloriesBurned  int    `json:"caloriesBurned"`
}

func (in WorkoutInput) apply(w *domain.Workout) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return validationError("workout name is required")
	}
	if in.DurationMinutes < 0 || in.Sets < 0 || in.Reps < 0 || in.CaloriesBurned < 0 {
		return validationError("numeric workout fields cannot be negative")
	}
	w.Name = name
	w.Description = strings.TrimSpace(in.Description)
	w.MuscleGroup = strings.TrimSpace(in.MuscleGroup)
	w.Difficulty = strings.TrimSpace(in.Difficulty)
	w.DurationMinutes = in.DurationMinutes
	w.Sets = in.Sets
	w.Reps = in.Reps
	w.CaloriesBurned = in.CaloriesBurned
	return nil
}

// WorkoutDetails is a workout with a short-lived link to its demo media.
type WorkoutDetails struct {
	domain.Workout
	MediaURL string `json:"mediaUrl,omitempty"`
}

// MediaUploadInput asks for a presigned upload URL.
type MediaUploadInput struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// MediaUpload is where the client PUTs the file before confirming it.
type MediaUpload struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MediaConfirmInput records an uploaded object against the workout.
type MediaConfirmInput struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size"`
}

type WorkoutService interface {
	Create(ctx context.Context, actor Actor, in WorkoutInput) (*domain.Workout, error)
	List(ctx context.Context) ([]domain.Workout, error)
	Get(ctx context.Context, workoutID primitive.ObjectID) (*WorkoutDetails, error)
	// Update and Delete are limited to the creating trainer and admins.
	Update(ctx context.Context, actor Actor, workoutID primitive.ObjectID, in WorkoutInput) (*domain.Workout, error)
	Delete(ctx context.Context, actor Actor, workoutID primitive.ObjectID) error

	Save(ctx context.Context, actor Actor, workoutID primitive.ObjectID) (*domain.SavedWorkout, error)
	Unsave(ctx context.Context, actor Actor, workoutID primitive.ObjectID) error
	Saved(ctx context.Context, actor Actor) ([]domain.Workout, error)

	RequestMediaUpload(ctx context.Context, actor Actor, workoutID primitive.ObjectID, in MediaUploadInput) (*MediaUpload, error)
	ConfirmMedia(ctx context.Context, actor Actor, workoutID primitive.ObjectID, in MediaConfirmInput) (*domain.Media, error)
}

type workoutService struct {
	tx       repository.TxManager
	workouts repository.WorkoutRepository
	routines repository.RoutineRepository
	saved    repository.SavedRepository
	members  repository.MemberRepository
	media    repository.MediaRepository
	storage  storage.FileStorage
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewWorkoutService wires the workout catalogue. files may be nil, which disables media.
func NewWorkoutService(
	tx repository.TxManager,
	workouts repository.WorkoutRepository,
	routines repository.RoutineRepository,
	saved repository.SavedRepository,
	members repository.MemberRepository,
	media repository.MediaRepository,
	files storage.FileStorage,
	log logrus.FieldLogger,
) WorkoutService {
	return &workoutService{
		tx:       tx,
		workouts: workouts,
		routines: routines,
		saved:    saved,
		members:  members,
		media:    media,
		storage:  files,
		log:      loggerOrDiscard(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *workoutService) Create(ctx context.Context, actor Actor, in WorkoutInput) (*domain.Workout, error) {
	workout := &domain.Workout{CreatedBy: actor.UserID}
	if err := in.apply(workout); err != nil {
		return nil, err
	}
	if _, err := s.workouts.Create(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) List(ctx context.Context) ([]domain.Workout, error) {
	return s.workouts.List(ctx)
}

func (s *workoutService) Get(ctx context.Context, workoutID primitive.ObjectID) (*WorkoutDetails, error) {
	workout, err := s.workouts.GetByID(ctx, workoutID)
	if err != nil {
		return nil, notFound(err, ErrWorkoutNotFound)
	}
	details := &WorkoutDetails{Workout: *workout}
	if s.storage == nil || workout.MediaID == nil {
		return details, nil
	}
	media, err := s.media.GetByID(ctx, *workout.MediaID)
	if err != nil {
		s.log.WithError(err).WithField("workoutId", workoutID.Hex()).Warn("workout media lookup failed")
		return details, nil
	}
	url, err := s.storage.PresignDownload(ctx, media.ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.log.WithError(err).WithField("objectKey", media.ObjectKey).Warn("presigning media download failed")
		return details, nil
	}
	details.MediaURL = url
	return details, nil
}

// owned loads the workout and checks the actor may change it.
func (s *workoutService) owned(ctx context.Context, actor Actor, workoutID primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workouts.GetByID(ctx, workoutID)
	if err != nil {
		return nil, notFound(err, ErrWorkoutNotFound)
	}
	if !actor.IsAdmin() && workout.CreatedBy != actor.UserID {
		return nil, ErrForbidden
	}
	return workout, nil
}

func (s *workoutService) Update(ctx context.Context, actor Actor, workoutID primitive.ObjectID, in WorkoutInput) (*domain.Workout, error) {
	workout, err := s.owned(ctx, actor, workoutID)
	if err != nil {
		return nil, err
	}
	if err := in.apply(workout); err != nil {
		return nil, err
	}
	if err := s.workouts.Update(ctx, workout); err != nil {
		return nil, notFound(err, ErrWorkoutNotFound)
	}
	return workout, nil
}

// Delete also unlinks the workout from routines and drops members' bookmarks of it.
func (s *workoutService) Delete(ctx context.Context, actor Actor, workoutID primitive.ObjectID) error {
	workout, err := s.owned(ctx, actor, workoutID)
	if err != nil {
		return err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.routines.RemoveWorkoutEverywhere(ctx, workoutID); err != nil {
			return err
		}
		if err := s.saved.DeleteByWorkout(ctx, workoutID); err != nil {
			return err
		}
		if err := s.workouts.Delete(ctx, workoutID); err != nil {
			return notFound(err, ErrWorkoutNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if workout.MediaID != nil {
		s.dropMedia(ctx, *workout.MediaID)
	}
	return nil
}

func (s *workoutService) Save(ctx context.Context, actor Actor, workoutID primitive.ObjectID) (*domain.SavedWorkout, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.workouts.GetByID(ctx, workoutID); err != nil {
		return nil, notFound(err, ErrWorkoutNotFound)
	}
	saved, err := s.saved.SaveWorkout(ctx, member.ID, workoutID)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadySaved
	}
	return saved, err
}

func (s *workoutService) Unsave(ctx context.Context, actor Actor, workoutID primitive.ObjectID) error {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return err
	}
	return notFound(s.saved.UnsaveWorkout(ctx, member.ID, workoutID), ErrNotSaved)
}

// Saved lists the member's bookmarked workouts, newest bookmark first.
func (s *workoutService) Saved(ctx context.Context, actor Actor) ([]domain.Workout, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	rows, err := s.saved.ListSavedWorkouts(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.WorkoutID)
	}
	found, err := s.workouts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Workout, len(found))
	for _, w := range found {
		byID[w.ID] = w
	}
	out := make([]domain.Workout, 0, len(rows))
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *workoutService) RequestMediaUpload(ctx context.Context, actor Actor, workoutID primitive.ObjectID, in MediaUploadInput) (*MediaUpload, error) {
	if s.storage == nil {
		return nil, ErrFeatureDisabled
	}
	if _, err := s.owned(ctx, actor, workoutID); err != nil {
		return nil, err
	}
	key, err := storage.MediaKey(workoutID, in.FileName, in.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			return nil, validationError("%v", err)
		}
		return nil, err
	}
	expires := storage.DefaultPresignedURLExpiry
	url, err := s.storage.PresignUpload(ctx, key, in.ContentType, expires)
	if err != nil {
		return nil, err
	}
	return &MediaUpload{UploadURL: url, ObjectKey: key, ExpiresAt: s.now().Add(expires)}, nil
}

func (s *workoutService) ConfirmMedia(ctx context.Context, actor Actor, workoutID primitive.ObjectID, in MediaConfirmInput) (*domain.Media, error) {
	if s.storage == nil {
		return nil, ErrFeatureDisabled
	}
	if !storage.OwnsKey(workoutID, in.ObjectKey) {
		return nil, ErrInvalidMedia
	}

	var (
		media    *domain.Media
		previous *primitive.ObjectID
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		workout, err := s.owned(ctx, actor, workoutID)
		if err != nil {
			return err
		}
		media = &domain.Media{
			WorkoutID:   workoutID,
			ObjectKey:   in.ObjectKey,
			FileName:    in.FileName,
			ContentType: in.ContentType,
			Size:        in.Size,
			UploadedBy:  actor.UserID,
		}
		if _, err := s.media.Create(ctx, media); err != nil {
			return err
		}
		previous = workout.MediaID
		workout.MediaID = &media.ID
		return s.workouts.Update(ctx, workout)
	})
	if err != nil {
		return nil, err
	}
	if previous != nil {
		s.dropMedia(ctx, *previous)
	}
	return media, nil
}

// dropMedia removes a media record and its object. Failures only leave garbage behind.
func (s *workoutService) dropMedia(ctx context.Context, mediaID primitive.ObjectID) {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		return
	}
	if err := s.media.Delete(ctx, mediaID); err != nil {
		s.log.WithError(err).WithField("mediaId", mediaID.Hex()).Warn("deleting media record failed")
	}
	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(ctx, media.ObjectKey); err != nil {
		s.log.WithError(err).WithField("objectKey", media.ObjectKey).Warn("deleting media object failed")
	}
}
