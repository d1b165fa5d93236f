package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/config"
)

func TestMediaKey(t *testing.T) {
	workout := primitive.NewObjectID()

	key, err := MediaKey(workout, "squat.MP4", "video/mp4")
	require.NoError(t, err)
	assert.True(t, OwnsKey(workout, key))
	assert.True(t, strings.HasSuffix(key, ".mp4"))

	other, err := MediaKey(workout, "squat.mp4", "video/mp4")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	assert.False(t, OwnsKey(primitive.NewObjectID(), key))

	_, err = MediaKey(workout, "notes.txt", "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestPresignAgainstCustomEndpoint(t *testing.T) {
	log, _ := test.NewNullLogger()
	store, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		BucketName:      "media",
	}, log)
	require.NoError(t, err)

	url, err := store.PresignUpload(context.Background(), "workouts/x/y.mp4", "video/mp4", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/media/workouts/x/y.mp4"), url)

	url, err = store.PresignDownload(context.Background(), "workouts/x/y.mp4", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Expires=900")
}
