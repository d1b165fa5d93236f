package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// ProgressHandler serves routine sessions and progress reads.
type ProgressHandler struct {
	progressService service.ProgressService
	log             logrus.FieldLogger
}

func NewProgressHandler(progressService service.ProgressService, log logrus.FieldLogger) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, log: log}
}

// FinishRequest closes a session and marks the listed workouts done.
type FinishRequest struct {
	SessionID  string   `json:"sessionId" binding:"required"`
	WorkoutIDs []string `json:"workoutIds"`
}

// Start godoc
// @Summary Start a routine session
// @Tags Progress
// @Security BearerAuth
// @Success 201 {object} service.StartResult
// @Failure 409 {object} envelope "A session is already open (reject policy)"
// @Router /progress/{routineId}/start [post]
func (h *ProgressHandler) Start(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	result, err := h.progressService.Start(c.Request.Context(), actor, routineID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	code := http.StatusCreated
	if result.Reused {
		code = http.StatusOK
	}
	respondOK(c, code, result)
}

// Finish godoc
// @Summary Finish a routine session
// @Tags Progress
// @Param body body FinishRequest true "Session and completed workouts"
// @Success 200 {object} service.FinishResult
// @Failure 404 {object} envelope "Unknown session"
// @Failure 409 {object} envelope "Session already finished"
// @Router /progress/{routineId}/finish [post]
func (h *ProgressHandler) Finish(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	var req FinishRequest
	if !bindJSON(c, &req) {
		return
	}
	workoutIDs, ok := parseObjectIDs(c, "workoutIds", req.WorkoutIDs)
	if !ok {
		return
	}
	result, err := h.progressService.Finish(c.Request.Context(), actor, routineID, req.SessionID, workoutIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// RoutineProgress godoc
// @Summary The member's records for one routine, grouped by session
// @Tags Progress
// @Router /progress/{routineId} [get]
func (h *ProgressHandler) RoutineProgress(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	records, err := h.progressService.RoutineProgress(c.Request.Context(), actor, routineID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, records)
}

// Analytics godoc
// @Summary Completed records projected for charts
// @Tags Progress
// @Success 200 {array} domain.AnalyticsEntry
// @Router /progress [get]
func (h *ProgressHandler) Analytics(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	entries, err := h.progressService.Analytics(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, entries)
}

// MemberProgress godoc
// @Summary A member's records, for their trainer or an admin
// @Tags Progress
// @Router /progress/member/{memberId} [get]
func (h *ProgressHandler) MemberProgress(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	memberID, ok := objectIDParam(c, "memberId")
	if !ok {
		return
	}
	records, err := h.progressService.MemberProgress(c.Request.Context(), actor, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, records)
}
