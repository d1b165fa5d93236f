//go:build integration

package mongo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/repository"
)

// setupDatabase starts a single-node replica set so transactions are available.
func setupDatabase(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()
	ctx := context.Background()

	container, err := mongocontainer.Run(ctx, "mongo:7", mongocontainer.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := ConnectDB(uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = DisconnectDB(client) })

	db := client.Database("gym_integration")
	log, _ := test.NewNullLogger()
	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	require.NoError(t, EnsureIndexes(indexCtx, db, log))
	return client, db
}

func TestUserEmailIsUnique(t *testing.T) {
	_, db := setupDatabase(t)
	ctx := context.Background()
	users := NewMongoUserRepository(db)

	_, err := users.Create(ctx, &domain.User{Name: "Ana", Email: "ana@gym.test", PasswordHash: "x", Role: domain.RoleMember})
	require.NoError(t, err)
	_, err = users.Create(ctx, &domain.User{Name: "Ana 2", Email: "ana@gym.test", PasswordHash: "y", Role: domain.RoleMember})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := users.GetByEmail(ctx, "ana@gym.test")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	_, err = users.GetByEmail(ctx, "nobody@gym.test")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChatGetOrCreateIsOnePerPair(t *testing.T) {
	_, db := setupDatabase(t)
	ctx := context.Background()
	chats := NewMongoChatRepository(db)
	memberID, trainerID := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat, err := chats.GetOrCreate(ctx, memberID, trainerID)
			if assert.NoError(t, err) {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	first := time.Now().UTC()
	for i, content := range []string{"hi", "hello"} {
		_, err := chats.CreateMessage(ctx, &domain.Message{
			ChatID: ids[0], SenderID: memberID, SenderRole: domain.RoleMember,
			Content: content, CreatedAt: first.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	messages, err := chats.ListMessages(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "hello", messages[1].Content)
}

func TestRoutineLevelProgressIsUniquePerSession(t *testing.T) {
	_, db := setupDatabase(t)
	ctx := context.Background()
	progress := NewMongoProgressRepository(db)
	memberID, routineID := primitive.NewObjectID(), primitive.NewObjectID()

	_, err := progress.Create(ctx, &domain.Progress{MemberID: memberID, RoutineID: routineID, SessionID: "s1", Status: domain.StatusInProgress})
	require.NoError(t, err)
	_, err = progress.Create(ctx, &domain.Progress{MemberID: memberID, RoutineID: routineID, SessionID: "s1", Status: domain.StatusInProgress})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	open, err := progress.FindOpenSession(ctx, memberID, routineID)
	require.NoError(t, err)
	assert.Equal(t, "s1", open.SessionID)

	workoutID := primitive.NewObjectID()
	at := time.Now().UTC()
	for i := 0; i < 2; i++ {
		_, err = progress.UpsertWorkoutLevel(ctx, memberID, routineID, workoutID, "s1", domain.StatusCompleted, at)
		require.NoError(t, err)
	}
	n, err := progress.CompleteRoutineLevel(ctx, memberID, routineID, "s1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	records, err := progress.ListByMemberRoutine(ctx, memberID, routineID)
	require.NoError(t, err)
	assert.Len(t, records, 2, "one routine-level and one workout-level record")
}

func TestTxManagerRollsBack(t *testing.T) {
	client, db := setupDatabase(t)
	ctx := context.Background()
	tx := NewTxManager(client, true)
	routines := NewMongoRoutineRepository(db)
	boom := errors.New("boom")

	var routineID primitive.ObjectID
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		routineID, err = routines.Create(ctx, &domain.Routine{Name: "Push Day", CreatedBy: primitive.NewObjectID()})
		if err != nil {
			return err
		}
		if _, err := routines.AddWorkout(ctx, &domain.RoutineWorkout{RoutineID: routineID, WorkoutID: primitive.NewObjectID(), Sequence: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = routines.GetByID(ctx, routineID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	links, err := routines.ListWorkouts(ctx, routineID)
	require.NoError(t, err)
	assert.Empty(t, links)

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		routineID, err = routines.Create(ctx, &domain.Routine{Name: "Pull Day", CreatedBy: primitive.NewObjectID()})
		return err
	})
	require.NoError(t, err)
	got, err := routines.GetByID(ctx, routineID)
	require.NoError(t, err)
	assert.Equal(t, "Pull Day", got.Name)
}
