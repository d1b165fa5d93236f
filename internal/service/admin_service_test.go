package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCreateTrainerAndMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	trainer, err := f.admin.CreateTrainer(ctx, CreateTrainerInput{
		Name: "Sam", Email: " Sam@Gym.Test ", Password: "secret123", Specialization: "Strength", ExperienceYears: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "sam@gym.test", trainer.User.Email)
	assert.Equal(t, domain.RoleTrainer, trainer.User.Role)
	assert.Equal(t, trainer.User.ID, trainer.UserID)

	_, err = f.admin.CreateTrainer(ctx, CreateTrainerInput{Name: "Dup", Email: "sam@gym.test", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = f.admin.CreateMember(ctx, CreateMemberInput{Name: "Bad", Email: "not-an-email", Password: "secret123"})
	assert.ErrorIs(t, err, ErrValidation)

	missing := primitive.NewObjectID()
	_, err = f.admin.CreateMember(ctx, CreateMemberInput{Name: "Kim", Email: "kim@gym.test", Password: "secret123", TrainerID: &missing})
	assert.ErrorIs(t, err, ErrTrainerNotFound)
	n, err := f.repos.Users.CountByRole(ctx, domain.RoleMember)
	require.NoError(t, err)
	assert.Zero(t, n, "failed member creation leaves no user behind")

	member, err := f.admin.CreateMember(ctx, CreateMemberInput{Name: "Kim", Email: "kim@gym.test", Password: "secret123", TrainerID: &trainer.ID, Age: 30})
	require.NoError(t, err)
	assert.True(t, member.HasTrainer(trainer.ID))

	members, err := f.admin.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NotNil(t, members[0].User)
	assert.Equal(t, "Kim", members[0].User.Name)
}

func TestUpdateMemberChangesUserAndProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, member := f.newMember(t, nil)
	_, taken := f.newMember(t, nil)

	age := 41
	updated, err := f.admin.UpdateMember(ctx, member.ID, MemberUpdate{
		UserUpdate: UserUpdate{Name: strPtr("Renamed")},
		Age:        &age,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.User.Name)
	assert.Equal(t, 41, updated.Age)

	_, err = f.admin.UpdateMember(ctx, member.ID, MemberUpdate{UserUpdate: UserUpdate{Email: strPtr(taken.User.Email)}})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	got, err := f.admin.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.User.Email, got.User.Email)
}

func TestAssignTrainerLastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, first := f.newTrainer(t)
	_, second := f.newTrainer(t)
	_, member := f.newMember(t, nil)

	got, err := f.admin.AssignTrainer(ctx, member.ID, &first.ID)
	require.NoError(t, err)
	assert.True(t, got.HasTrainer(first.ID))

	got, err = f.admin.AssignTrainer(ctx, member.ID, &second.ID)
	require.NoError(t, err)
	assert.True(t, got.HasTrainer(second.ID))

	got, err = f.admin.AssignTrainer(ctx, member.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.TrainerID)

	missing := primitive.NewObjectID()
	_, err = f.admin.AssignTrainer(ctx, member.ID, &missing)
	assert.ErrorIs(t, err, ErrTrainerNotFound)
	_, err = f.admin.AssignTrainer(ctx, primitive.NewObjectID(), &first.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestDeleteTrainerUnassignsMembersAndDropsChats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, trainer := f.newTrainer(t)
	memberActor, member := f.newMember(t, trainer)
	_, err := f.chat.SendAsMember(ctx, memberActor, "hi coach", PathHTTP)
	require.NoError(t, err)

	require.NoError(t, f.admin.DeleteTrainer(ctx, trainer.ID))

	got, err := f.admin.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TrainerID)
	chats, err := f.repos.Chats.ListByTrainer(ctx, trainer.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
	_, err = f.repos.Users.GetByID(ctx, trainer.User.ID)
	assert.Error(t, err)

	assert.ErrorIs(t, f.admin.DeleteTrainer(ctx, trainer.ID), ErrTrainerNotFound)
}

func TestDeleteMemberRemovesOwnedData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	trainerActor, trainer := f.newTrainer(t)
	memberActor, member := f.newMember(t, trainer)
	w := f.newWorkout(t, trainerActor, "Squat")
	routine := f.newRoutine(t, trainerActor, w)

	_, err := f.workouts.Save(ctx, memberActor, w.ID)
	require.NoError(t, err)
	_, err = f.progress.Complete(ctx, memberActor, routine.ID, []primitive.ObjectID{w.ID})
	require.NoError(t, err)
	_, err = f.chat.SendAsMember(ctx, memberActor, "bye", PathHTTP)
	require.NoError(t, err)

	require.NoError(t, f.admin.DeleteMember(ctx, member.ID))

	rows, err := f.repos.Progress.ListByMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	saved, err := f.repos.Saved.ListSavedWorkouts(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)
	chats, err := f.repos.Chats.ListByTrainer(ctx, trainer.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
	_, err = f.admin.GetMember(ctx, member.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestAdminDashboardStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	trainerActor, trainer := f.newTrainer(t)
	memberActor, _ := f.newMember(t, trainer)
	f.newMember(t, nil)
	w := f.newWorkout(t, trainerActor, "Row")
	routine := f.newRoutine(t, trainerActor, w)
	_, err := f.progress.Complete(ctx, memberActor, routine.ID, nil)
	require.NoError(t, err)

	stats, err := f.admin.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &AdminStats{
		TotalMembers:      2,
		TotalTrainers:     1,
		TotalWorkouts:     1,
		TotalRoutines:     1,
		UnassignedMembers: 1,
		SessionsLast7Days: 1,
	}, stats)
}

func TestAdminProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.newAdmin(t)

	updated, err := f.admin.UpdateProfile(ctx, admin.UserID, UserUpdate{Phone: strPtr(" 555-0100 ")})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)

	_, err = f.admin.UpdateProfile(ctx, admin.UserID, UserUpdate{Password: strPtr("123")})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.admin.GetProfile(ctx, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}
