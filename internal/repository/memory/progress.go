package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

type progressRepo struct{ s *Store }

func sameWorkout(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// findKeyLocked returns the record with the given unique key. Caller holds the lock.
func (r *progressRepo) findKeyLocked(memberID, routineID primitive.ObjectID, workoutID *primitive.ObjectID, sessionID string) (domain.Progress, bool) {
	for _, p := range r.s.progress {
		if p.MemberID == memberID && p.RoutineID == routineID && p.SessionID == sessionID && sameWorkout(p.WorkoutID, workoutID) {
			return p, true
		}
	}
	return domain.Progress{}, false
}

func (r *progressRepo) Create(ctx context.Context, p *domain.Progress) (primitive.ObjectID, error) {
	if p.MemberID == primitive.NilObjectID || p.RoutineID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("progress requires memberId and routineId")
	}
	defer r.s.lock(ctx)()
	if _, exists := r.findKeyLocked(p.MemberID, p.RoutineID, p.WorkoutID, p.SessionID); exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	p.ID = primitive.NewObjectID()
	now := r.s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.StartedAt.IsZero() {
		p.StartedAt = now
	}
	r.s.progress[p.ID] = *p
	return p.ID, nil
}

func (r *progressRepo) FindRoutineLevel(_ context.Context, memberID, routineID primitive.ObjectID, sessionID string) (*domain.Progress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.findKeyLocked(memberID, routineID, nil, sessionID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *progressRepo) FindOpenSession(_ context.Context, memberID, routineID primitive.ObjectID) (*domain.Progress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.Progress
	for _, p := range r.s.progress {
		if p.MemberID != memberID || p.RoutineID != routineID || !p.IsRoutineLevel() || p.Status != domain.StatusInProgress {
			continue
		}
		if latest == nil || latest.CreatedAt.Before(p.CreatedAt) || (latest.CreatedAt.Equal(p.CreatedAt) && idLess(latest.ID, p.ID)) {
			p := p
			latest = &p
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *progressRepo) CompleteRoutineLevel(ctx context.Context, memberID, routineID primitive.ObjectID, sessionID string, at time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var matched int64
	for id, p := range r.s.progress {
		if p.MemberID != memberID || p.RoutineID != routineID || p.SessionID != sessionID || !p.IsRoutineLevel() {
			continue
		}
		completedAt := at
		p.Status = domain.StatusCompleted
		p.CompletedAt = &completedAt
		p.UpdatedAt = at
		r.s.progress[id] = p
		matched++
	}
	return matched, nil
}

func (r *progressRepo) UpsertWorkoutLevel(ctx context.Context, memberID, routineID, workoutID primitive.ObjectID, sessionID string, status domain.ProgressStatus, at time.Time) (*domain.Progress, error) {
	defer r.s.lock(ctx)()
	wid := workoutID
	p, ok := r.findKeyLocked(memberID, routineID, &wid, sessionID)
	if !ok {
		p = domain.Progress{
			ID:        primitive.NewObjectID(),
			MemberID:  memberID,
			RoutineID: routineID,
			WorkoutID: &wid,
			SessionID: sessionID,
			StartedAt: at,
			CreatedAt: at,
		}
	}
	p.Status = status
	p.CompletedAt = nil
	if status == domain.StatusCompleted {
		completedAt := at
		p.CompletedAt = &completedAt
	}
	p.UpdatedAt = at
	r.s.progress[p.ID] = p
	return &p, nil
}

func (r *progressRepo) collect(keep func(domain.Progress) bool, less func(a, b domain.Progress) bool) []domain.Progress {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	records := []domain.Progress{}
	for _, p := range r.s.progress {
		if keep(p) {
			records = append(records, p)
		}
	}
	sort.Slice(records, func(i, j int) bool { return less(records[i], records[j]) })
	return records
}

func byCreated(a, b domain.Progress) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return idLess(a.ID, b.ID)
}

func (r *progressRepo) ListByMemberRoutine(_ context.Context, memberID, routineID primitive.ObjectID) ([]domain.Progress, error) {
	return r.collect(
		func(p domain.Progress) bool { return p.MemberID == memberID && p.RoutineID == routineID },
		func(a, b domain.Progress) bool {
			if a.SessionID != b.SessionID {
				return a.SessionID < b.SessionID
			}
			return byCreated(a, b)
		},
	), nil
}

func (r *progressRepo) ListByMember(_ context.Context, memberID primitive.ObjectID) ([]domain.Progress, error) {
	return r.collect(func(p domain.Progress) bool { return p.MemberID == memberID }, byCreated), nil
}

func (r *progressRepo) ListCompletedByMember(_ context.Context, memberID primitive.ObjectID) ([]domain.Progress, error) {
	return r.collect(
		func(p domain.Progress) bool { return p.MemberID == memberID && p.Status == domain.StatusCompleted },
		func(a, b domain.Progress) bool {
			if a.CompletedAt != nil && b.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt) {
				return a.CompletedAt.Before(*b.CompletedAt)
			}
			return byCreated(a, b)
		},
	), nil
}

func (r *progressRepo) CountCompletedSessionsSince(_ context.Context, memberIDs []primitive.ObjectID, since time.Time) (int64, error) {
	var allowed map[primitive.ObjectID]struct{}
	if memberIDs != nil {
		allowed = make(map[primitive.ObjectID]struct{}, len(memberIDs))
		for _, id := range memberIDs {
			allowed[id] = struct{}{}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.progress {
		if !p.IsRoutineLevel() || p.Status != domain.StatusCompleted || p.CompletedAt == nil || p.CompletedAt.Before(since) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[p.MemberID]; !ok {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (r *progressRepo) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, p := range r.s.progress {
		if p.MemberID == memberID {
			delete(r.s.progress, id)
		}
	}
	return nil
}

func (r *progressRepo) DeleteByRoutine(ctx context.Context, routineID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, p := range r.s.progress {
		if p.RoutineID == routineID {
			delete(r.s.progress, id)
		}
	}
	return nil
}
