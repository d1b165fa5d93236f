package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/config"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/observability"
	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/repository/memory"
	"alcyxob/gym-manager/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testCookie = "token"

// testServer is the full router over in-memory repositories.
type testServer struct {
	router  *gin.Engine
	hub     *realtime.Hub
	metrics *observability.Metrics
	tokens  *auth.TokenManager

	auth     service.AuthService
	admin    service.AdminService
	workouts service.WorkoutService
	routines service.RoutineService

	seq int
}

type serverOption func(*Deps)

func withRateLimit(rps float64, burst int) serverOption {
	return func(d *Deps) { d.RateLimiter = NewRateLimiter(rps, burst, d.Log) }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	log, _ := test.NewNullLogger()
	repos := memory.NewRepositories(memory.NewStore())
	hub := realtime.NewHub(log)
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("api-test-secret", time.Hour)

	authSvc := service.NewAuthService(repos.Tx, repos.Users, repos.Trainers, repos.Members, tokens, log)
	adminSvc := service.NewAdminService(repos.Tx, repos.Users, repos.Trainers, repos.Members, repos.Workouts, repos.Routines, repos.Progress, repos.Saved, repos.Chats, log)
	workoutSvc := service.NewWorkoutService(repos.Tx, repos.Workouts, repos.Routines, repos.Saved, repos.Members, repos.Media, nil, log)
	routineSvc := service.NewRoutineService(repos.Tx, repos.Routines, repos.Workouts, repos.Progress, repos.Saved, repos.Members, log)
	progressSvc := service.NewProgressService(repos.Tx, repos.Progress, repos.Routines, repos.Workouts, repos.Members, repos.Trainers, nil, metrics, log,
		service.ProgressOptions{StrictSessions: true, ConcurrentSessions: config.SessionsAllow})

	deps := Deps{
		Tokens:          tokens,
		Cookie:          CookieConfig{Name: testCookie},
		AllowedOrigins:  []string{"https://app.gym.test"},
		AuthService:     authSvc,
		AdminService:    adminSvc,
		MemberService:   service.NewMemberService(repos.Tx, repos.Users, repos.Members, repos.Trainers, repos.Workouts, repos.Routines, repos.Progress, repos.Saved, time.UTC),
		TrainerService:  service.NewTrainerService(repos.Tx, repos.Users, repos.Trainers, repos.Members, repos.Progress, repos.Chats, time.UTC),
		WorkoutService:  workoutSvc,
		RoutineService:  routineSvc,
		ProgressService: progressSvc,
		ChatService:     service.NewChatService(repos.Tx, repos.Chats, repos.Members, repos.Trainers, hub, metrics, log),
		Hub:             hub,
		Metrics:         metrics,
		Log:             log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testServer{
		router:   NewRouter(deps),
		hub:      hub,
		metrics:  metrics,
		tokens:   tokens,
		auth:     authSvc,
		admin:    adminSvc,
		workouts: workoutSvc,
		routines: routineSvc,
	}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func decodeData(t *testing.T, resp response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst), string(resp.Data))
}

func (s *testServer) email(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d@gym.test", prefix, s.seq)
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var result struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &result)
	require.NotEmpty(t, result.Token)
	return result.Token
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	email := s.email("admin")
	_, err := s.auth.EnsureAdmin(context.Background(), "Root", email, "secret123")
	require.NoError(t, err)
	return s.login(t, email)
}

type account struct {
	token string
	actor service.Actor
}

func (s *testServer) newTrainer(t *testing.T) (account, *domain.TrainerDetails) {
	t.Helper()
	trainer, err := s.admin.CreateTrainer(context.Background(), service.CreateTrainerInput{
		Name: "Coach", Email: s.email("coach"), Password: "secret123",
	})
	require.NoError(t, err)
	return account{
		token: s.login(t, trainer.User.Email),
		actor: service.Actor{UserID: trainer.User.ID, Role: domain.RoleTrainer},
	}, trainer
}

func (s *testServer) newMember(t *testing.T, trainer *domain.TrainerDetails) (account, *domain.MemberDetails) {
	t.Helper()
	in := service.CreateMemberInput{Name: "Member", Email: s.email("member"), Password: "secret123"}
	if trainer != nil {
		in.TrainerID = &trainer.ID
	}
	member, err := s.admin.CreateMember(context.Background(), in)
	require.NoError(t, err)
	return account{
		token: s.login(t, member.User.Email),
		actor: service.Actor{UserID: member.User.ID, Role: domain.RoleMember},
	}, member
}

func (s *testServer) newWorkout(t *testing.T, creator service.Actor, name string) *domain.Workout {
	t.Helper()
	w, err := s.workouts.Create(context.Background(), creator, service.WorkoutInput{Name: name})
	require.NoError(t, err)
	return w
}

// recorder is a hub subscriber that keeps every frame.
type recorder struct {
	mu     sync.Mutex
	frames []realtime.Envelope
}

func (r *recorder) ID() string { return fmt.Sprintf("recorder-%p", r) }

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
