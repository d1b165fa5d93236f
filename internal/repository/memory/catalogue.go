package memory

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

type workoutRepo struct{ s *Store }

func (r *workoutRepo) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	if workout.Name == "" || workout.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("workout name and creator are required")
	}
	defer r.s.lock(ctx)()
	workout.ID = primitive.NewObjectID()
	now := r.s.now()
	workout.CreatedAt = now
	workout.UpdatedAt = now
	r.s.workouts[workout.ID] = *workout
	return workout.ID, nil
}

func (r *workoutRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r *workoutRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Workout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	workouts := []domain.Workout{}
	for _, id := range ids {
		if w, ok := r.s.workouts[id]; ok {
			workouts = append(workouts, w)
		}
	}
	return workouts, nil
}

// List returns newest first, like the Mongo implementation.
func (r *workoutRepo) List(_ context.Context) ([]domain.Workout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	workouts := make([]domain.Workout, 0, len(r.s.workouts))
	for _, w := range r.s.workouts {
		workouts = append(workouts, w)
	}
	sort.Slice(workouts, func(i, j int) bool { return idLess(workouts[j].ID, workouts[i].ID) })
	return workouts, nil
}

func (r *workoutRepo) Update(ctx context.Context, workout *domain.Workout) error {
	if workout.Name == "" {
		return errors.New("workout name cannot be empty")
	}
	defer r.s.lock(ctx)()
	existing, ok := r.s.workouts[workout.ID]
	if !ok {
		return repository.ErrNotFound
	}
	workout.UpdatedAt = r.s.now()
	workout.CreatedBy = existing.CreatedBy
	workout.CreatedAt = existing.CreatedAt
	r.s.workouts[workout.ID] = *workout
	return nil
}

func (r *workoutRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.workouts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.workouts, id)
	return nil
}

func (r *workoutRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.workouts)), nil
}

type routineRepo struct{ s *Store }

func (r *routineRepo) Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error) {
	if routine.Name == "" || routine.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("routine requires name and creator")
	}
	defer r.s.lock(ctx)()
	routine.ID = primitive.NewObjectID()
	now := r.s.now()
	routine.CreatedAt = now
	routine.UpdatedAt = now
	r.s.routines[routine.ID] = *routine
	return routine.ID, nil
}

func (r *routineRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	routine, ok := r.s.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &routine, nil
}

func (r *routineRepo) List(_ context.Context) ([]domain.Routine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	routines := make([]domain.Routine, 0, len(r.s.routines))
	for _, routine := range r.s.routines {
		routines = append(routines, routine)
	}
	sort.Slice(routines, func(i, j int) bool { return idLess(routines[j].ID, routines[i].ID) })
	return routines, nil
}

func (r *routineRepo) Update(ctx context.Context, routine *domain.Routine) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.routines[routine.ID]
	if !ok {
		return repository.ErrNotFound
	}
	routine.UpdatedAt = r.s.now()
	existing.Name = routine.Name
	existing.Description = routine.Description
	existing.Difficulty = routine.Difficulty
	existing.UpdatedAt = routine.UpdatedAt
	r.s.routines[routine.ID] = existing
	return nil
}

func (r *routineRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.routines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.routines, id)
	return nil
}

func (r *routineRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.routines)), nil
}

// AddWorkout enforces the unique (routineId, sequence) slot.
func (r *routineRepo) AddWorkout(ctx context.Context, link *domain.RoutineWorkout) (primitive.ObjectID, error) {
	if link.RoutineID == primitive.NilObjectID || link.WorkoutID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("routine workout requires routineId and workoutId")
	}
	defer r.s.lock(ctx)()
	for _, l := range r.s.links {
		if l.RoutineID == link.RoutineID && l.Sequence == link.Sequence {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	link.ID = primitive.NewObjectID()
	r.s.links[link.ID] = *link
	return link.ID, nil
}

func (r *routineRepo) ListWorkouts(_ context.Context, routineID primitive.ObjectID) ([]domain.RoutineWorkout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	links := []domain.RoutineWorkout{}
	for _, l := range r.s.links {
		if l.RoutineID == routineID {
			links = append(links, l)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Sequence < links[j].Sequence })
	return links, nil
}

func (r *routineRepo) DeleteWorkouts(ctx context.Context, routineID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, l := range r.s.links {
		if l.RoutineID == routineID {
			delete(r.s.links, id)
		}
	}
	return nil
}

func (r *routineRepo) RemoveWorkoutEverywhere(ctx context.Context, workoutID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, l := range r.s.links {
		if l.WorkoutID == workoutID {
			delete(r.s.links, id)
		}
	}
	return nil
}

type mediaRepo struct{ s *Store }

func (r *mediaRepo) Create(ctx context.Context, media *domain.Media) (primitive.ObjectID, error) {
	if media.WorkoutID == primitive.NilObjectID || media.ObjectKey == "" {
		return primitive.NilObjectID, errors.New("media requires workoutId and objectKey")
	}
	defer r.s.lock(ctx)()
	for _, m := range r.s.media {
		if m.ObjectKey == media.ObjectKey {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	media.ID = primitive.NewObjectID()
	media.UploadedAt = r.s.now()
	r.s.media[media.ID] = *media
	return media.ID, nil
}

func (r *mediaRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Media, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.media[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *mediaRepo) GetByWorkoutID(_ context.Context, workoutID primitive.ObjectID) (*domain.Media, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.Media
	for _, m := range r.s.media {
		if m.WorkoutID != workoutID {
			continue
		}
		if latest == nil || idLess(latest.ID, m.ID) {
			m := m
			latest = &m
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *mediaRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.media[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.media, id)
	return nil
}
