package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/service"
)

func TestPing(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
}

func TestAdminManagesTrainersAndMembers(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	rec, resp := s.do(t, http.MethodPost, "/admin/trainers", admin, service.CreateTrainerInput{
		Name: "Coach", Email: "coach@gym.test", Password: "secret123", Specialization: "Strength",
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var trainer domain.TrainerDetails
	decodeData(t, resp, &trainer)
	assert.Equal(t, "Strength", trainer.Specialization)

	rec, resp = s.do(t, http.MethodPost, "/admin/members", admin, service.CreateMemberInput{
		Name: "Ana", Email: "ana@gym.test", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var member domain.MemberDetails
	decodeData(t, resp, &member)
	assert.Nil(t, member.TrainerID)

	rec, resp = s.do(t, http.MethodPut, "/admin/members/"+member.ID.Hex()+"/assign-trainer", admin,
		AssignTrainerRequest{TrainerID: trainer.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var assigned domain.MemberDetails
	decodeData(t, resp, &assigned)
	require.NotNil(t, assigned.TrainerID)
	assert.Equal(t, trainer.ID, *assigned.TrainerID)

	rec, _ = s.do(t, http.MethodGet, "/admin/dashboard/stats", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/admin/trainers/"+trainer.ID.Hex(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/admin/members/"+member.ID.Hex(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after domain.MemberDetails
	decodeData(t, resp, &after)
	assert.Nil(t, after.TrainerID, "deleting a trainer unassigns its members")

	rec, _ = s.do(t, http.MethodGet, "/admin/trainers/"+trainer.ID.Hex(), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	rec, resp := s.do(t, http.MethodGet, "/admin/members/not-an-id", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid id", resp.Error)
}

func TestSaveWorkoutRoundTrip(t *testing.T) {
	s := newTestServer(t)
	trainer, profile := s.newTrainer(t)
	member, _ := s.newMember(t, profile)
	w := s.newWorkout(t, trainer.actor, "Deadlift")
	path := "/workout/" + w.ID.Hex() + "/save"

	rec, resp := s.do(t, http.MethodPost, path, member.token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)

	rec, _ = s.do(t, http.MethodPost, path, member.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/workout/saved/me", member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved []domain.Workout
	decodeData(t, resp, &saved)
	require.Len(t, saved, 1)
	assert.Equal(t, w.ID, saved[0].ID)

	rec, _ = s.do(t, http.MethodDelete, path, member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, path, member.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/workout/saved/me", member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved = nil
	decodeData(t, resp, &saved)
	assert.Empty(t, saved)

	rec, _ = s.do(t, http.MethodPost, "/workout/"+primitive.NewObjectID().Hex()+"/save", member.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMediaDisabledAnswers503(t *testing.T) {
	s := newTestServer(t)
	trainer, _ := s.newTrainer(t)
	w := s.newWorkout(t, trainer.actor, "Clean")

	rec, _ := s.do(t, http.MethodPost, "/workout/"+w.ID.Hex()+"/media/upload-url", trainer.token,
		service.MediaUploadInput{FileName: "clean.mp4", ContentType: "video/mp4"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutineCreateAndGetInOrder(t *testing.T) {
	s := newTestServer(t)
	trainer, _ := s.newTrainer(t)
	w1 := s.newWorkout(t, trainer.actor, "W1")
	w2 := s.newWorkout(t, trainer.actor, "W2")

	rec, resp := s.do(t, http.MethodPost, "/routine", trainer.token, service.RoutineInput{
		Name: "Push",
		Workouts: []service.RoutineWorkoutInput{
			{WorkoutID: w2.ID}, {WorkoutID: w1.ID},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var created domain.RoutineDetails
	decodeData(t, resp, &created)

	rec, resp = s.do(t, http.MethodGet, "/routine/"+created.ID.Hex(), trainer.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RoutineDetails
	decodeData(t, resp, &got)
	require.Len(t, got.Workouts, 2)
	assert.Equal(t, w2.ID, got.Workouts[0].WorkoutID)
	assert.Equal(t, w1.ID, got.Workouts[1].WorkoutID)

	rec, _ = s.do(t, http.MethodPost, "/routine", trainer.token, service.RoutineInput{
		Name:     "Broken",
		Workouts: []service.RoutineWorkoutInput{{WorkoutID: w1.ID}, {WorkoutID: primitive.NewObjectID()}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/routine", trainer.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Routine
	decodeData(t, resp, &all)
	assert.Len(t, all, 1, "a failed link rolls the routine back")
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	trainer, profile := s.newTrainer(t)
	member, _ := s.newMember(t, profile)
	w1 := s.newWorkout(t, trainer.actor, "W1")
	w2 := s.newWorkout(t, trainer.actor, "W2")
	w3 := s.newWorkout(t, trainer.actor, "W3")
	routine, err := s.routines.Create(context.Background(), trainer.actor, service.RoutineInput{
		Name: "Full body",
		Workouts: []service.RoutineWorkoutInput{
			{WorkoutID: w1.ID}, {WorkoutID: w2.ID}, {WorkoutID: w3.ID},
		},
	})
	require.NoError(t, err)
	base := "/progress/" + routine.ID.Hex()

	rec, resp := s.do(t, http.MethodPost, base+"/start", member.token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var started service.StartResult
	decodeData(t, resp, &started)
	require.NotEmpty(t, started.SessionID)

	finish := FinishRequest{SessionID: started.SessionID, WorkoutIDs: []string{w1.ID.Hex(), w3.ID.Hex()}}
	rec, resp = s.do(t, http.MethodPost, base+"/finish", member.token, finish)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var finished service.FinishResult
	decodeData(t, resp, &finished)
	assert.Len(t, finished.Workouts, 2)
	assert.EqualValues(t, 1, finished.Matched)

	rec, _ = s.do(t, http.MethodPost, base+"/finish", member.token, finish)
	assert.Equal(t, http.StatusConflict, rec.Code, "finishing twice is rejected")

	rec, _ = s.do(t, http.MethodPost, base+"/finish", member.token, FinishRequest{SessionID: "no-such-session"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/finish", member.token, FinishRequest{SessionID: started.SessionID, WorkoutIDs: []string{"bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, http.MethodGet, base, member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []domain.Progress
	decodeData(t, resp, &records)
	assert.Len(t, records, 3)

	rec, resp = s.do(t, http.MethodGet, "/progress", member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analytics []domain.AnalyticsEntry
	decodeData(t, resp, &analytics)
	assert.Len(t, analytics, 3)

	rec, _ = s.do(t, http.MethodGet, "/progress/member/"+member.actor.UserID.Hex(), trainer.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "the path takes a member profile id, not a user id")
}

func TestRoutineCompleteOverHTTP(t *testing.T) {
	s := newTestServer(t)
	trainer, _ := s.newTrainer(t)
	member, memberProfile := s.newMember(t, nil)
	w := s.newWorkout(t, trainer.actor, "Row")
	routine, err := s.routines.Create(context.Background(), trainer.actor, service.RoutineInput{
		Name: "Pull", Workouts: []service.RoutineWorkoutInput{{WorkoutID: w.ID}},
	})
	require.NoError(t, err)

	rec, resp := s.do(t, http.MethodPost, "/routine/"+routine.ID.Hex()+"/complete", member.token,
		CompleteRoutineRequest{WorkoutIDs: []string{w.ID.Hex()}})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var result service.FinishResult
	decodeData(t, resp, &result)
	assert.Equal(t, domain.SessionFinished, result.Session.State)
	assert.Len(t, result.Workouts, 1)

	// Without a body the routine is completed with no workout rows.
	rec, resp = s.do(t, http.MethodPost, "/routine/"+routine.ID.Hex()+"/complete", member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	rec, _ = s.do(t, http.MethodGet, "/progress/member/"+memberProfile.ID.Hex(), trainer.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "member is not assigned to this trainer")
}

func TestChatHTTPSendBroadcastsToSubscribers(t *testing.T) {
	s := newTestServer(t)
	trainer, profile := s.newTrainer(t)
	member, memberProfile := s.newMember(t, profile)

	rec, resp := s.do(t, http.MethodGet, "/chat/member/me", member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var chat domain.ChatWithMessages
	decodeData(t, resp, &chat)
	assert.Empty(t, chat.Messages)

	listener := &recorder{}
	s.hub.Subscribe(chat.ID.Hex(), listener)

	rec, resp = s.do(t, http.MethodPost, "/chat/trainer/"+memberProfile.ID.Hex()+"/send", trainer.token,
		SendMessageRequest{Content: "Warm up first"})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)

	frames := listener.received()
	require.Len(t, frames, 1)
	assert.Equal(t, realtime.EventNewMessage, frames[0].Event)
	assert.Contains(t, string(frames[0].Data), "Warm up first")

	rec, _ = s.do(t, http.MethodPost, "/chat/member/me/send", member.token, SendMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, http.MethodDelete, "/chat/"+chat.ID.Hex(), member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var replacement domain.Chat
	decodeData(t, resp, &replacement)
	assert.NotEqual(t, chat.ID, replacement.ID)

	frames = listener.received()
	require.Len(t, frames, 2)
	assert.Equal(t, realtime.EventChatReset, frames[1].Event)
	assert.Equal(t, 1, s.hub.Subscribers(replacement.ID.Hex()), "subscribers follow the replacement chat")

	rec, resp = s.do(t, http.MethodGet, "/chat/member/me", member.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, resp, &chat)
	assert.Equal(t, replacement.ID, chat.ID)
	assert.Empty(t, chat.Messages)
}

func TestChatRequiresAssignment(t *testing.T) {
	s := newTestServer(t)
	trainer, _ := s.newTrainer(t)
	member, memberProfile := s.newMember(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/chat/member/me", member.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/chat/trainer/"+memberProfile.ID.Hex(), trainer.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
