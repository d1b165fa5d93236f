// Package memory implements the repository contracts over in-process maps.
// It backs tests and local runs with database.driver=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// Store holds every collection behind one lock, so each repository call is atomic.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	users         map[primitive.ObjectID]domain.User
	trainers      map[primitive.ObjectID]domain.Trainer
	members       map[primitive.ObjectID]domain.Member
	workouts      map[primitive.ObjectID]domain.Workout
	routines      map[primitive.ObjectID]domain.Routine
	links         map[primitive.ObjectID]domain.RoutineWorkout
	progress      map[primitive.ObjectID]domain.Progress
	savedWorkouts map[primitive.ObjectID]domain.SavedWorkout
	savedRoutines map[primitive.ObjectID]domain.SavedRoutine
	chats         map[primitive.ObjectID]domain.Chat
	messages      map[primitive.ObjectID]domain.Message
	media         map[primitive.ObjectID]domain.Media
}

// NewStore returns an empty store using the wall clock.
func NewStore() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		users:         map[primitive.ObjectID]domain.User{},
		trainers:      map[primitive.ObjectID]domain.Trainer{},
		members:       map[primitive.ObjectID]domain.Member{},
		workouts:      map[primitive.ObjectID]domain.Workout{},
		routines:      map[primitive.ObjectID]domain.Routine{},
		links:         map[primitive.ObjectID]domain.RoutineWorkout{},
		progress:      map[primitive.ObjectID]domain.Progress{},
		savedWorkouts: map[primitive.ObjectID]domain.SavedWorkout{},
		savedRoutines: map[primitive.ObjectID]domain.SavedRoutine{},
		chats:         map[primitive.ObjectID]domain.Chat{},
		messages:      map[primitive.ObjectID]domain.Message{},
		media:         map[primitive.ObjectID]domain.Media{},
	}
}

// SetClock overrides the timestamp source. Tests use it to pin createdAt values.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type snapshot struct {
	users         map[primitive.ObjectID]domain.User
	trainers      map[primitive.ObjectID]domain.Trainer
	members       map[primitive.ObjectID]domain.Member
	workouts      map[primitive.ObjectID]domain.Workout
	routines      map[primitive.ObjectID]domain.Routine
	links         map[primitive.ObjectID]domain.RoutineWorkout
	progress      map[primitive.ObjectID]domain.Progress
	savedWorkouts map[primitive.ObjectID]domain.SavedWorkout
	savedRoutines map[primitive.ObjectID]domain.SavedRoutine
	chats         map[primitive.ObjectID]domain.Chat
	messages      map[primitive.ObjectID]domain.Message
	media         map[primitive.ObjectID]domain.Media
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:         copyMap(s.users),
		trainers:      copyMap(s.trainers),
		members:       copyMap(s.members),
		workouts:      copyMap(s.workouts),
		routines:      copyMap(s.routines),
		links:         copyMap(s.links),
		progress:      copyMap(s.progress),
		savedWorkouts: copyMap(s.savedWorkouts),
		savedRoutines: copyMap(s.savedRoutines),
		chats:         copyMap(s.chats),
		messages:      copyMap(s.messages),
		media:         copyMap(s.media),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.trainers = snap.trainers
	s.members = snap.members
	s.workouts = snap.workouts
	s.routines = snap.routines
	s.links = snap.links
	s.progress = snap.progress
	s.savedWorkouts = snap.savedWorkouts
	s.savedRoutines = snap.savedRoutines
	s.chats = snap.chats
	s.messages = snap.messages
	s.media = snap.media
}

type txKey struct{}

// lock takes the write lock for one repository call. Outside a unit of work it
// first waits for any open one, so a rollback only ever discards that unit's writes.
func (s *Store) lock(ctx context.Context) func() {
	inTx := ctx.Value(txKey{}) != nil
	if !inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !inTx {
			s.txMu.Unlock()
		}
	}
}

// txManager serializes units of work and rolls the store back when fn fails.
// Reads outside a unit of work may observe its uncommitted writes.
type txManager struct {
	store *Store
}

// NewTxManager returns a TxManager for the store.
func NewTxManager(store *Store) repository.TxManager {
	return &txManager{store: store}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// Repositories bundles every repository view over one store.
type Repositories struct {
	Users    repository.UserRepository
	Trainers repository.TrainerRepository
	Members  repository.MemberRepository
	Workouts repository.WorkoutRepository
	Routines repository.RoutineRepository
	Progress repository.ProgressRepository
	Saved    repository.SavedRepository
	Chats    repository.ChatRepository
	Media    repository.MediaRepository
	Tx       repository.TxManager
}

// NewRepositories wires all repositories to store.
func NewRepositories(store *Store) Repositories {
	return Repositories{
		Users:    &userRepo{store},
		Trainers: &trainerRepo{store},
		Members:  &memberRepo{store},
		Workouts: &workoutRepo{store},
		Routines: &routineRepo{store},
		Progress: &progressRepo{store},
		Saved:    &savedRepo{store},
		Chats:    &chatRepo{store},
		Media:    &mediaRepo{store},
		Tx:       NewTxManager(store),
	}
}
