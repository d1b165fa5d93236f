package memory

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}
	defer r.s.lock(ctx)()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return user.ID, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := []domain.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = r.s.now()
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Phone = user.Phone
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = user.UpdatedAt
	r.s.users[user.ID] = existing
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type trainerRepo struct{ s *Store }

func (r *trainerRepo) Create(ctx context.Context, trainer *domain.Trainer) (primitive.ObjectID, error) {
	if trainer.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("trainer profile requires userId")
	}
	defer r.s.lock(ctx)()
	for _, t := range r.s.trainers {
		if t.UserID == trainer.UserID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	trainer.ID = primitive.NewObjectID()
	now := r.s.now()
	trainer.CreatedAt = now
	trainer.UpdatedAt = now
	r.s.trainers[trainer.ID] = *trainer
	return trainer.ID, nil
}

func (r *trainerRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Trainer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.trainers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *trainerRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Trainer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.trainers {
		if t.UserID == userID {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *trainerRepo) List(_ context.Context) ([]domain.Trainer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	trainers := make([]domain.Trainer, 0, len(r.s.trainers))
	for _, t := range r.s.trainers {
		trainers = append(trainers, t)
	}
	sort.Slice(trainers, func(i, j int) bool { return idLess(trainers[i].ID, trainers[j].ID) })
	return trainers, nil
}

func (r *trainerRepo) Update(ctx context.Context, trainer *domain.Trainer) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.trainers[trainer.ID]
	if !ok {
		return repository.ErrNotFound
	}
	trainer.UpdatedAt = r.s.now()
	existing.Specialization = trainer.Specialization
	existing.ExperienceYears = trainer.ExperienceYears
	existing.Bio = trainer.Bio
	existing.UpdatedAt = trainer.UpdatedAt
	r.s.trainers[trainer.ID] = existing
	return nil
}

func (r *trainerRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.trainers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.trainers, id)
	return nil
}

type memberRepo struct{ s *Store }

func (r *memberRepo) Create(ctx context.Context, member *domain.Member) (primitive.ObjectID, error) {
	if member.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("member profile requires userId")
	}
	defer r.s.lock(ctx)()
	for _, m := range r.s.members {
		if m.UserID == member.UserID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	member.ID = primitive.NewObjectID()
	now := r.s.now()
	member.CreatedAt = now
	member.UpdatedAt = now
	if member.JoinedAt.IsZero() {
		member.JoinedAt = now
	}
	r.s.members[member.ID] = *member
	return member.ID, nil
}

func (r *memberRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *memberRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.members {
		if m.UserID == userID {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memberRepo) filter(keep func(domain.Member) bool) []domain.Member {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	members := []domain.Member{}
	for _, m := range r.s.members {
		if keep(m) {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return idLess(members[i].ID, members[j].ID) })
	return members
}

func (r *memberRepo) List(_ context.Context) ([]domain.Member, error) {
	return r.filter(func(domain.Member) bool { return true }), nil
}

func (r *memberRepo) ListByTrainer(_ context.Context, trainerID primitive.ObjectID) ([]domain.Member, error) {
	return r.filter(func(m domain.Member) bool { return m.HasTrainer(trainerID) }), nil
}

func (r *memberRepo) Update(ctx context.Context, member *domain.Member) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.members[member.ID]
	if !ok {
		return repository.ErrNotFound
	}
	member.UpdatedAt = r.s.now()
	existing.Age = member.Age
	existing.Gender = member.Gender
	existing.HeightCm = member.HeightCm
	existing.WeightKg = member.WeightKg
	existing.FitnessGoal = member.FitnessGoal
	existing.MembershipType = member.MembershipType
	existing.UpdatedAt = member.UpdatedAt
	r.s.members[member.ID] = existing
	return nil
}

func (r *memberRepo) SetTrainer(ctx context.Context, memberID primitive.ObjectID, trainerID *primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	if trainerID == nil {
		m.TrainerID = nil
	} else {
		id := *trainerID
		m.TrainerID = &id
	}
	m.UpdatedAt = r.s.now()
	r.s.members[memberID] = m
	return nil
}

func (r *memberRepo) ClearTrainer(ctx context.Context, trainerID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, m := range r.s.members {
		if m.HasTrainer(trainerID) {
			m.TrainerID = nil
			m.UpdatedAt = r.s.now()
			r.s.members[id] = m
		}
	}
	return nil
}

func (r *memberRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.members[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.members, id)
	return nil
}

func (r *memberRepo) CountUnassigned(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, m := range r.s.members {
		if m.TrainerID == nil {
			n++
		}
	}
	return n, nil
}

// idLess orders ObjectIDs by creation; they embed a timestamp and a process counter.
func idLess(a, b primitive.ObjectID) bool {
	return a.Hex() < b.Hex()
}
