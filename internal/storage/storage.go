// Package storage keeps workout demo media in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPresignedURLExpiry applies when a caller passes a zero TTL.
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrUnsupportedContentType = errors.New("unsupported media content type")

// FileStorage hands out short-lived links so clients move media bytes directly to and
// from the bucket; the API never proxies file content.
type FileStorage interface {
	// PresignUpload returns a PUT link bound to key and contentType.
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

var allowedMediaTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// MediaKey builds a unique object key for a workout demo file:
// workouts/<workoutId>/<uuid><ext>.
func MediaKey(workoutID primitive.ObjectID, fileName, contentType string) (string, error) {
	ext, ok := allowedMediaTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	if e := strings.ToLower(path.Ext(fileName)); e != "" && len(e) <= 6 {
		ext = e
	}
	return path.Join("workouts", workoutID.Hex(), uuid.NewString()+ext), nil
}

// OwnsKey reports whether objectKey was issued for the workout by MediaKey.
func OwnsKey(workoutID primitive.ObjectID, objectKey string) bool {
	return strings.HasPrefix(objectKey, "workouts/"+workoutID.Hex()+"/")
}
