package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/service"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, code int, data interface{}) {
	c.JSON(code, envelope{Success: true, Data: data})
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, envelope{Success: false, Error: message})
}

var statusByError = []struct {
	code int
	errs []error
}{
	{http.StatusNotFound, []error{
		service.ErrUserNotFound, service.ErrMemberNotFound, service.ErrTrainerNotFound,
		service.ErrWorkoutNotFound, service.ErrRoutineNotFound,
		service.ErrMemberProfileNotFound, service.ErrTrainerProfileNotFound,
		service.ErrSessionNotFound, service.ErrChatNotFound, service.ErrMessageNotFound,
		service.ErrNotSaved, service.ErrNoTrainerAssigned, service.ErrMediaNotFound,
	}},
	{http.StatusBadRequest, []error{service.ErrValidation, service.ErrInvalidMedia}},
	{http.StatusUnauthorized, []error{service.ErrAuthenticationFailed}},
	{http.StatusForbidden, []error{service.ErrForbidden, service.ErrChatAccessDenied, service.ErrMemberNotAssigned}},
	{http.StatusConflict, []error{
		service.ErrUserAlreadyExists, service.ErrAlreadySaved,
		service.ErrSessionAlreadyOpen, service.ErrSessionNotInProgress,
	}},
	{http.StatusServiceUnavailable, []error{service.ErrFeatureDisabled}},
}

// statusFor maps a service error to the HTTP status it is reported with.
func statusFor(err error) int {
	for _, entry := range statusByError {
		for _, target := range entry.errs {
			if errors.Is(err, target) {
				return entry.code
			}
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Unexpected errors are logged and hidden.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).WithField("route", c.FullPath()).Error("request failed")
		abortWithError(c, code, "internal server error")
		return
	}
	abortWithError(c, code, err.Error())
}

// objectIDParam parses a path parameter, answering 400 when it is not an ObjectID.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// parseObjectIDs converts hex ids, rejecting the first malformed one.
func parseObjectIDs(c *gin.Context, field string, raw []string) ([]primitive.ObjectID, bool) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, hex := range raw {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid "+field+": "+hex)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
