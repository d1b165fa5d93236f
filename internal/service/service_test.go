package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/config"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/events"
	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/repository/memory"
)

// fixture wires every service over one in-memory store and a local hub.
type fixture struct {
	store  *memory.Store
	repos  memory.Repositories
	hub    *realtime.Hub
	events *recordingPublisher
	log    *logrus.Logger
	hook   *test.Hook

	auth     AuthService
	admin    AdminService
	members  MemberService
	trainers TrainerService
	workouts WorkoutService
	routines RoutineService
	progress ProgressService
	chat     ChatService

	seq int
}

type fixtureOption func(*ProgressOptions)

func permissive() fixtureOption {
	return func(o *ProgressOptions) { o.StrictSessions = false }
}

func sessions(policy string) fixtureOption {
	return func(o *ProgressOptions) { o.ConcurrentSessions = policy }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	store := memory.NewStore()
	repos := memory.NewRepositories(store)
	hub := realtime.NewHub(log)
	publisher := &recordingPublisher{}

	popts := ProgressOptions{StrictSessions: true, ConcurrentSessions: config.SessionsAllow}
	for _, opt := range opts {
		opt(&popts)
	}

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	f := &fixture{store: store, repos: repos, hub: hub, events: publisher, log: log, hook: hook}
	f.auth = NewAuthService(repos.Tx, repos.Users, repos.Trainers, repos.Members, tokens, log)
	f.admin = NewAdminService(repos.Tx, repos.Users, repos.Trainers, repos.Members, repos.Workouts, repos.Routines, repos.Progress, repos.Saved, repos.Chats, log)
	f.members = NewMemberService(repos.Tx, repos.Users, repos.Members, repos.Trainers, repos.Workouts, repos.Routines, repos.Progress, repos.Saved, time.UTC)
	f.trainers = NewTrainerService(repos.Tx, repos.Users, repos.Trainers, repos.Members, repos.Progress, repos.Chats, time.UTC)
	f.workouts = NewWorkoutService(repos.Tx, repos.Workouts, repos.Routines, repos.Saved, repos.Members, repos.Media, nil, log)
	f.routines = NewRoutineService(repos.Tx, repos.Routines, repos.Workouts, repos.Progress, repos.Saved, repos.Members, log)
	f.progress = NewProgressService(repos.Tx, repos.Progress, repos.Routines, repos.Workouts, repos.Members, repos.Trainers, publisher, nil, log, popts)
	f.chat = NewChatService(repos.Tx, repos.Chats, repos.Members, repos.Trainers, hub, nil, log)
	return f
}

func (f *fixture) email(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d@gym.test", prefix, f.seq)
}

func (f *fixture) newAdmin(t *testing.T) Actor {
	t.Helper()
	email := f.email("admin")
	created, err := f.auth.EnsureAdmin(context.Background(), "Root", email, "secret123")
	require.NoError(t, err)
	require.True(t, created)
	return f.login(t, email, "secret123")
}

func (f *fixture) login(t *testing.T, email, password string) Actor {
	t.Helper()
	res, err := f.auth.Login(context.Background(), email, password)
	require.NoError(t, err)
	return Actor{UserID: res.User.ID, Role: res.User.Role}
}

func (f *fixture) newTrainer(t *testing.T) (Actor, *domain.TrainerDetails) {
	t.Helper()
	trainer, err := f.admin.CreateTrainer(context.Background(), CreateTrainerInput{
		Name:     "Coach",
		Email:    f.email("coach"),
		Password: "secret123",
	})
	require.NoError(t, err)
	return Actor{UserID: trainer.User.ID, Role: domain.RoleTrainer}, trainer
}

func (f *fixture) newMember(t *testing.T, trainer *domain.TrainerDetails) (Actor, *domain.MemberDetails) {
	t.Helper()
	in := CreateMemberInput{Name: "Member", Email: f.email("member"), Password: "secret123"}
	if trainer != nil {
		in.TrainerID = &trainer.ID
	}
	member, err := f.admin.CreateMember(context.Background(), in)
	require.NoError(t, err)
	return Actor{UserID: member.User.ID, Role: domain.RoleMember}, member
}

func (f *fixture) newWorkout(t *testing.T, creator Actor, name string) *domain.Workout {
	t.Helper()
	w, err := f.workouts.Create(context.Background(), creator, WorkoutInput{Name: name})
	require.NoError(t, err)
	return w
}

func (f *fixture) newRoutine(t *testing.T, creator Actor, workouts ...*domain.Workout) *domain.RoutineDetails {
	t.Helper()
	in := RoutineInput{Name: "Routine"}
	for _, w := range workouts {
		in.Workouts = append(in.Workouts, RoutineWorkoutInput{WorkoutID: w.ID})
	}
	r, err := f.routines.Create(context.Background(), creator, in)
	require.NoError(t, err)
	return r
}

// stepClock advances by one second on every call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// recorder is a hub subscriber that keeps every frame.
type recorder struct {
	id     string
	mu     sync.Mutex
	frames []realtime.Envelope
}

func newRecorder() *recorder { return &recorder{id: primitive.NewObjectID().Hex()} }

func (r *recorder) ID() string { return r.id }

func (r *recorder) Send(frame []byte) bool {
	var env realtime.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, env)
	return true
}

func (r *recorder) received() []realtime.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Envelope(nil), r.frames...)
}
