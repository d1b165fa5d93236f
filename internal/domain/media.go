package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media stores metadata about a demo file attached to a Workout.
// The actual file resides in S3.
type Media struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutID   primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	ObjectKey   string             `bson:"objectKey" json:"-"` // Key in the bucket - internal use
	FileName    string             `bson:"fileName" json:"fileName"`
	ContentType string             `bson:"contentType" json:"contentType"` // e.g. "video/mp4"
	Size        int64              `bson:"size" json:"size"`
	UploadedBy  primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
