package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"alcyxob/gym-manager/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// txManager implements repository.TxManager with MongoDB sessions.
// Transactions need a replica set; with enabled=false the unit of work runs without one.
type txManager struct {
	client  *mongo.Client
	enabled bool
}

// NewTxManager creates a TxManager backed by client sessions.
func NewTxManager(client *mongo.Client, enabled bool) repository.TxManager {
	return &txManager{client: client, enabled: enabled}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.enabled {
		return fn(ctx)
	}
	// Already inside a transaction: join it.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Collection names
const (
	userCollectionName           = "users"
	trainerCollectionName        = "trainers"
	memberCollectionName         = "members"
	workoutCollectionName        = "workouts"
	routineCollectionName        = "routines"
	routineWorkoutCollectionName = "routine_workouts"
	progressCollectionName       = "progress"
	savedWorkoutCollectionName   = "saved_workouts"
	savedRoutineCollectionName   = "saved_routines"
	chatCollectionName           = "chats"
	messageCollectionName        = "messages"
	mediaCollectionName          = "media"
)

// EnsureIndexes creates every index the repositories rely on. The unique ones carry
// data invariants (one chat per pair, one routine-level progress row per session, ...),
// so failures are returned rather than only logged.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log logrus.FieldLogger) error {
	ensure := []struct {
		collection string
		fn         func(context.Context, *mongo.Collection) error
	}{
		{userCollectionName, EnsureUserIndexes},
		{trainerCollectionName, EnsureTrainerIndexes},
		{memberCollectionName, EnsureMemberIndexes},
		{workoutCollectionName, EnsureWorkoutIndexes},
		{routineCollectionName, EnsureRoutineIndexes},
		{routineWorkoutCollectionName, EnsureRoutineWorkoutIndexes},
		{progressCollectionName, EnsureProgressIndexes},
		{savedWorkoutCollectionName, EnsureSavedWorkoutIndexes},
		{savedRoutineCollectionName, EnsureSavedRoutineIndexes},
		{chatCollectionName, EnsureChatIndexes},
		{messageCollectionName, EnsureMessageIndexes},
		{mediaCollectionName, EnsureMediaIndexes},
	}

	var errs []error
	for _, e := range ensure {
		if err := e.fn(ctx, db.Collection(e.collection)); err != nil {
			log.WithError(err).WithField("collection", e.collection).Error("failed to create indexes")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// decodeAll drains a cursor into out and closes it.
func decodeAll(ctx context.Context, cursor *mongo.Cursor, out interface{}) error {
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return err
	}
	return cursor.Err()
}

// mapWriteError converts driver errors into repository errors.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// findOneErr maps mongo.ErrNoDocuments to repository.ErrNotFound.
func findOneErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

var byCreatedAtAsc = bson.D{{Key: "createdAt", Value: 1}}
