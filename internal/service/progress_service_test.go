package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/config"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/events"
)

type progressSetup struct {
	*fixture
	trainer    Actor
	member     Actor
	w1, w2, w3 *domain.Workout
	routine    *domain.RoutineDetails
}

func newProgressSetup(t *testing.T, opts ...fixtureOption) *progressSetup {
	f := newFixture(t, opts...)
	trainer, profile := f.newTrainer(t)
	member, _ := f.newMember(t, profile)
	s := &progressSetup{fixture: f, trainer: trainer, member: member}
	s.w1 = f.newWorkout(t, trainer, "Squat")
	s.w2 = f.newWorkout(t, trainer, "Bench")
	s.w3 = f.newWorkout(t, trainer, "Row")
	s.routine = f.newRoutine(t, trainer, s.w1, s.w2, s.w3)
	return s
}

func workoutIDs(rows []domain.Progress) map[primitive.ObjectID]domain.Progress {
	out := map[primitive.ObjectID]domain.Progress{}
	for _, row := range rows {
		if row.WorkoutID != nil {
			out[*row.WorkoutID] = row
		}
	}
	return out
}

func routineLevel(rows []domain.Progress) []domain.Progress {
	var out []domain.Progress
	for _, row := range rows {
		if row.IsRoutineLevel() {
			out = append(out, row)
		}
	}
	return out
}

func TestStartThenFinishRecordsCompletedWorkouts(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	started, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	require.NotEmpty(t, started.SessionID)
	assert.Equal(t, domain.StatusInProgress, started.Progress.Status)
	assert.Nil(t, started.Progress.WorkoutID)

	finished, err := s.progress.Finish(ctx, s.member, s.routine.ID, started.SessionID, []primitive.ObjectID{s.w1.ID, s.w3.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFinished, finished.Session.State)
	assert.Equal(t, int64(1), finished.Matched)
	assert.Len(t, finished.Workouts, 2)

	rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, started.SessionID, row.SessionID)
		assert.Equal(t, domain.StatusCompleted, row.Status)
		assert.NotNil(t, row.CompletedAt)
	}
	require.Len(t, routineLevel(rows), 1)
	byWorkout := workoutIDs(rows)
	assert.Contains(t, byWorkout, s.w1.ID)
	assert.Contains(t, byWorkout, s.w3.ID)
	assert.NotContains(t, byWorkout, s.w2.ID)

	assert.Equal(t, []string{events.SessionStarted, events.SessionFinished}, s.events.types())
	assert.ElementsMatch(t, []primitive.ObjectID{s.w1.ID, s.w3.ID}, s.events.events[1].WorkoutIDs)
}

func TestFinishTwiceLeavesSameRows(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t, permissive())

	started, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	completed := []primitive.ObjectID{s.w1.ID, s.w3.ID, s.w1.ID}

	first, err := s.progress.Finish(ctx, s.member, s.routine.ID, started.SessionID, completed)
	require.NoError(t, err)
	assert.Len(t, first.Workouts, 2, "duplicate ids are written once")
	before, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)

	_, err = s.progress.Finish(ctx, s.member, s.routine.ID, started.SessionID, completed)
	require.NoError(t, err)
	after, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, domain.StatusCompleted, after[i].Status)
	}
}

func TestStrictFinishRejectsFinishedSession(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	started, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	_, err = s.progress.Finish(ctx, s.member, s.routine.ID, started.SessionID, []primitive.ObjectID{s.w1.ID})
	require.NoError(t, err)

	_, err = s.progress.Finish(ctx, s.member, s.routine.ID, started.SessionID, []primitive.ObjectID{s.w2.ID})
	require.ErrorIs(t, err, ErrSessionNotInProgress)

	rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	assert.NotContains(t, workoutIDs(rows), s.w2.ID)
}

func TestStaleSessionFinish(t *testing.T) {
	ctx := context.Background()

	t.Run("permissive writes orphaned workout rows", func(t *testing.T) {
		s := newProgressSetup(t, permissive())
		res, err := s.progress.Finish(ctx, s.member, s.routine.ID, "bogus-id", []primitive.ObjectID{s.w2.ID})
		require.NoError(t, err)
		assert.Zero(t, res.Matched)

		rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].WorkoutID)
		assert.Equal(t, s.w2.ID, *rows[0].WorkoutID)
		assert.Equal(t, "bogus-id", rows[0].SessionID)
		assert.Equal(t, domain.StatusCompleted, rows[0].Status)

		require.NotNil(t, s.hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, s.hook.LastEntry().Level)
	})

	t.Run("strict rejects the unknown session", func(t *testing.T) {
		s := newProgressSetup(t)
		_, err := s.progress.Finish(ctx, s.member, s.routine.ID, "bogus-id", []primitive.ObjectID{s.w2.ID})
		require.ErrorIs(t, err, ErrSessionNotFound)

		rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestRoutineLevelRecordIsUniquePerSession(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	a, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	b, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID, "allow policy opens independent sessions")

	_, err = s.progress.Finish(ctx, s.member, s.routine.ID, a.SessionID, []primitive.ObjectID{s.w1.ID})
	require.NoError(t, err)

	rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	perSession := map[string]int{}
	for _, row := range routineLevel(rows) {
		perSession[row.SessionID]++
	}
	assert.Equal(t, map[string]int{a.SessionID: 1, b.SessionID: 1}, perSession)
}

func TestConcurrentSessionPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("reuse returns the open session", func(t *testing.T) {
		s := newProgressSetup(t, sessions(config.SessionsReuse))
		first, err := s.progress.Start(ctx, s.member, s.routine.ID)
		require.NoError(t, err)
		second, err := s.progress.Start(ctx, s.member, s.routine.ID)
		require.NoError(t, err)

		assert.Equal(t, first.SessionID, second.SessionID)
		assert.True(t, second.Reused)
		assert.Equal(t, []string{events.SessionStarted}, s.events.types())
	})

	t.Run("reject refuses a second open session", func(t *testing.T) {
		s := newProgressSetup(t, sessions(config.SessionsReject))
		first, err := s.progress.Start(ctx, s.member, s.routine.ID)
		require.NoError(t, err)

		_, err = s.progress.Start(ctx, s.member, s.routine.ID)
		require.ErrorIs(t, err, ErrSessionAlreadyOpen)

		_, err = s.progress.Finish(ctx, s.member, s.routine.ID, first.SessionID, nil)
		require.NoError(t, err)
		next, err := s.progress.Start(ctx, s.member, s.routine.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.SessionID, next.SessionID)
	})
}

func TestCompleteRunsOneShotSession(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	res, err := s.progress.Complete(ctx, s.member, s.routine.ID, []primitive.ObjectID{s.w1.ID, s.w2.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFinished, res.Session.State)
	assert.Len(t, res.Workouts, 2)

	rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	levels := routineLevel(rows)
	require.Len(t, levels, 1)
	assert.Equal(t, domain.StatusCompleted, levels[0].Status)
	assert.Equal(t, res.Session.ID, levels[0].SessionID)
}

func TestCompleteRollsBackOnUnknownWorkout(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	_, err := s.progress.Complete(ctx, s.member, s.routine.ID, []primitive.ObjectID{s.w1.ID, primitive.NewObjectID()})
	require.ErrorIs(t, err, ErrWorkoutNotFound)

	rows, err := s.progress.RoutineProgress(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStartRequiresMemberAndRoutine(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	_, err := s.progress.Start(ctx, s.trainer, s.routine.ID)
	assert.ErrorIs(t, err, ErrMemberProfileNotFound)

	_, err = s.progress.Start(ctx, s.member, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrRoutineNotFound)
}

func TestPublishFailureDoesNotFailFinish(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)
	s.events.err = errors.New("broker down")

	started, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	_, err = s.progress.Finish(ctx, s.member, s.routine.ID, started.SessionID, nil)
	require.NoError(t, err)
	assert.Len(t, s.events.types(), 2)
}

func TestRecordWorkoutOutsideSession(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	in := WorkoutProgressInput{RoutineID: s.routine.ID, WorkoutID: s.w1.ID, Status: domain.StatusInProgress}
	first, err := s.progress.RecordWorkout(ctx, s.member, in)
	require.NoError(t, err)
	assert.Nil(t, first.CompletedAt)

	in.Status = ""
	second, err := s.progress.RecordWorkout(ctx, s.member, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same key is updated in place")
	assert.Equal(t, domain.StatusCompleted, second.Status)
	assert.Empty(t, second.SessionID)

	in.Status = "DONE"
	_, err = s.progress.RecordWorkout(ctx, s.member, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnalyticsProjectsCompletedRows(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)

	_, err := s.progress.Start(ctx, s.member, s.routine.ID)
	require.NoError(t, err)
	_, err = s.progress.Complete(ctx, s.member, s.routine.ID, []primitive.ObjectID{s.w1.ID})
	require.NoError(t, err)

	entries, err := s.progress.Analytics(ctx, s.member)
	require.NoError(t, err)
	require.Len(t, entries, 2, "routine-level and workout-level completions; the open session is excluded")
	for _, e := range entries {
		assert.Equal(t, s.routine.ID, e.RoutineID)
		assert.Equal(t, domain.StatusCompleted, e.Status)
		assert.NotNil(t, e.CompletedAt)
	}
}

func TestMemberProgressVisibility(t *testing.T) {
	ctx := context.Background()
	s := newProgressSetup(t)
	_, err := s.progress.Complete(ctx, s.member, s.routine.ID, nil)
	require.NoError(t, err)

	profile, err := s.members.GetProfile(ctx, s.member)
	require.NoError(t, err)

	rows, err := s.progress.MemberProgress(ctx, s.trainer, profile.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	other, _ := s.newTrainer(t)
	_, err = s.progress.MemberProgress(ctx, other, profile.ID)
	assert.ErrorIs(t, err, ErrMemberNotAssigned)

	admin := s.newAdmin(t)
	rows, err = s.progress.MemberProgress(ctx, admin, profile.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = s.progress.MemberProgress(ctx, s.member, profile.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
