package memory

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

type savedRepo struct{ s *Store }

func (r *savedRepo) SaveWorkout(ctx context.Context, memberID, workoutID primitive.ObjectID) (*domain.SavedWorkout, error) {
	defer r.s.lock(ctx)()
	for _, sw := range r.s.savedWorkouts {
		if sw.MemberID == memberID && sw.WorkoutID == workoutID {
			return nil, repository.ErrDuplicate
		}
	}
	saved := domain.SavedWorkout{ID: primitive.NewObjectID(), MemberID: memberID, WorkoutID: workoutID, CreatedAt: r.s.now()}
	r.s.savedWorkouts[saved.ID] = saved
	return &saved, nil
}

func (r *savedRepo) UnsaveWorkout(ctx context.Context, memberID, workoutID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, sw := range r.s.savedWorkouts {
		if sw.MemberID == memberID && sw.WorkoutID == workoutID {
			delete(r.s.savedWorkouts, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *savedRepo) ListSavedWorkouts(_ context.Context, memberID primitive.ObjectID) ([]domain.SavedWorkout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	saved := []domain.SavedWorkout{}
	for _, sw := range r.s.savedWorkouts {
		if sw.MemberID == memberID {
			saved = append(saved, sw)
		}
	}
	sort.Slice(saved, func(i, j int) bool { return idLess(saved[j].ID, saved[i].ID) })
	return saved, nil
}

func (r *savedRepo) SaveRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) (*domain.SavedRoutine, error) {
	defer r.s.lock(ctx)()
	for _, sr := range r.s.savedRoutines {
		if sr.MemberID == memberID && sr.RoutineID == routineID {
			return nil, repository.ErrDuplicate
		}
	}
	saved := domain.SavedRoutine{ID: primitive.NewObjectID(), MemberID: memberID, RoutineID: routineID, CreatedAt: r.s.now()}
	r.s.savedRoutines[saved.ID] = saved
	return &saved, nil
}

func (r *savedRepo) UnsaveRoutine(ctx context.Context, memberID, routineID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, sr := range r.s.savedRoutines {
		if sr.MemberID == memberID && sr.RoutineID == routineID {
			delete(r.s.savedRoutines, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *savedRepo) ListSavedRoutines(_ context.Context, memberID primitive.ObjectID) ([]domain.SavedRoutine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	saved := []domain.SavedRoutine{}
	for _, sr := range r.s.savedRoutines {
		if sr.MemberID == memberID {
			saved = append(saved, sr)
		}
	}
	sort.Slice(saved, func(i, j int) bool { return idLess(saved[j].ID, saved[i].ID) })
	return saved, nil
}

func (r *savedRepo) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, sw := range r.s.savedWorkouts {
		if sw.MemberID == memberID {
			delete(r.s.savedWorkouts, id)
		}
	}
	for id, sr := range r.s.savedRoutines {
		if sr.MemberID == memberID {
			delete(r.s.savedRoutines, id)
		}
	}
	return nil
}

func (r *savedRepo) DeleteByWorkout(ctx context.Context, workoutID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, sw := range r.s.savedWorkouts {
		if sw.WorkoutID == workoutID {
			delete(r.s.savedWorkouts, id)
		}
	}
	return nil
}

func (r *savedRepo) DeleteByRoutine(ctx context.Context, routineID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, sr := range r.s.savedRoutines {
		if sr.RoutineID == routineID {
			delete(r.s.savedRoutines, id)
		}
	}
	return nil
}

type chatRepo struct{ s *Store }

// GetOrCreate runs under the write lock, so concurrent callers see one chat per pair.
func (r *chatRepo) GetOrCreate(ctx context.Context, memberID, trainerID primitive.ObjectID) (*domain.Chat, error) {
	defer r.s.lock(ctx)()
	for _, c := range r.s.chats {
		if c.MemberID == memberID && c.TrainerID == trainerID {
			return &c, nil
		}
	}
	chat := domain.Chat{ID: primitive.NewObjectID(), MemberID: memberID, TrainerID: trainerID, CreatedAt: r.s.now()}
	r.s.chats[chat.ID] = chat
	return &chat, nil
}

func (r *chatRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *chatRepo) ListByTrainer(_ context.Context, trainerID primitive.ObjectID) ([]domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	chats := []domain.Chat{}
	for _, c := range r.s.chats {
		if c.TrainerID == trainerID {
			chats = append(chats, c)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return idLess(chats[i].ID, chats[j].ID) })
	return chats, nil
}

func (r *chatRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.chats[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.chats, id)
	return nil
}

func (r *chatRepo) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	for id, c := range r.s.chats {
		if c.MemberID != memberID {
			continue
		}
		for mid, m := range r.s.messages {
			if m.ChatID == id {
				delete(r.s.messages, mid)
			}
		}
		delete(r.s.chats, id)
	}
	return nil
}

func (r *chatRepo) CreateMessage(ctx context.Context, msg *domain.Message) (primitive.ObjectID, error) {
	if msg.ChatID == primitive.NilObjectID || msg.SenderID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("message requires chatId and senderId")
	}
	defer r.s.lock(ctx)()
	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.s.now()
	}
	r.s.messages[msg.ID] = *msg
	return msg.ID, nil
}

func (r *chatRepo) GetMessage(_ context.Context, id primitive.ObjectID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *chatRepo) ListMessages(_ context.Context, chatID primitive.ObjectID) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	messages := []domain.Message{}
	for _, m := range r.s.messages {
		if m.ChatID == chatID {
			messages = append(messages, m)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return idLess(messages[i].ID, messages[j].ID)
	})
	return messages, nil
}

func (r *chatRepo) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.messages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.messages, id)
	return nil
}

func (r *chatRepo) DeleteMessages(ctx context.Context, chatID primitive.ObjectID) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for id, m := range r.s.messages {
		if m.ChatID == chatID {
			delete(r.s.messages, id)
			n++
		}
	}
	return n, nil
}
