package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// WorkoutHandler serves the workout catalogue, saved workouts, media and
// workout-level progress.
type WorkoutHandler struct {
	workoutService  service.WorkoutService
	progressService service.ProgressService
	log             logrus.FieldLogger
}

func NewWorkoutHandler(workoutService service.WorkoutService, progressService service.ProgressService, log logrus.FieldLogger) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService, progressService: progressService, log: log}
}

// Create godoc
// @Summary Create a workout
// @Tags Workouts
// @Security BearerAuth
// @Param workout body service.WorkoutInput true "Workout"
// @Success 201 {object} domain.Workout
// @Router /workout [post]
func (h *WorkoutHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.WorkoutInput
	if !bindJSON(c, &req) {
		return
	}
	workout, err := h.workoutService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, workout)
}

// List godoc
// @Summary List workouts
// @Tags Workouts
// @Router /workout [get]
func (h *WorkoutHandler) List(c *gin.Context) {
	workouts, err := h.workoutService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, workouts)
}

// Get godoc
// @Summary Get a workout with its media link
// @Tags Workouts
// @Success 200 {object} service.WorkoutDetails
// @Router /workout/{id} [get]
func (h *WorkoutHandler) Get(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	workout, err := h.workoutService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, workout)
}

// Update godoc
// @Summary Replace a workout's fields
// @Tags Workouts
// @Router /workout/{id} [put]
func (h *WorkoutHandler) Update(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req service.WorkoutInput
	if !bindJSON(c, &req) {
		return
	}
	workout, err := h.workoutService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, workout)
}

// Delete godoc
// @Summary Delete a workout and unlink it everywhere
// @Tags Workouts
// @Router /workout/{id} [delete]
func (h *WorkoutHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.workoutService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "workout deleted"})
}

// Save godoc
// @Summary Save a workout to the member's list
// @Tags Workouts
// @Failure 409 {object} envelope "Already saved"
// @Router /workout/{id}/save [post]
func (h *WorkoutHandler) Save(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	saved, err := h.workoutService.Save(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, saved)
}

// Unsave godoc
// @Summary Remove a workout from the member's list
// @Tags Workouts
// @Failure 404 {object} envelope "Not saved"
// @Router /workout/{id}/save [delete]
func (h *WorkoutHandler) Unsave(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.workoutService.Unsave(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "workout removed from saved"})
}

// Saved godoc
// @Summary The member's saved workouts
// @Tags Workouts
// @Router /workout/saved/me [get]
func (h *WorkoutHandler) Saved(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	workouts, err := h.workoutService.Saved(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, workouts)
}

// RecordProgress godoc
// @Summary Record one workout outside of a timed session
// @Tags Workouts
// @Param progress body service.WorkoutProgressInput true "Progress"
// @Router /workout/progress [post]
func (h *WorkoutHandler) RecordProgress(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.WorkoutProgressInput
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.progressService.RecordWorkout(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, record)
}

// RoutineProgress godoc
// @Summary The member's records for one routine
// @Tags Workouts
// @Router /workout/progress/{routineId} [get]
func (h *WorkoutHandler) RoutineProgress(c *gin.Context) {
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

// RequestMediaUpload godoc
// @Summary Presigned URL for uploading the workout's demo media
// @Tags Workouts
// @Param body body service.MediaUploadInput true "File"
// @Success 200 {object} service.MediaUpload
// @Failure 503 {object} envelope "Media storage disabled"
// @Router /workout/{id}/media/upload-url [post]
func (h *WorkoutHandler) RequestMediaUpload(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req service.MediaUploadInput
	if !bindJSON(c, &req) {
		return
	}
	upload, err := h.workoutService.RequestMediaUpload(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, upload)
}

// ConfirmMedia godoc
// @Summary Attach an uploaded object to the workout
// @Tags Workouts
// @Param body body service.MediaConfirmInput true "Uploaded object"
// @Success 201 {object} domain.Media
// @Router /workout/{id}/media [post]
func (h *WorkoutHandler) ConfirmMedia(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req service.MediaConfirmInput
	if !bindJSON(c, &req) {
		return
	}
	media, err := h.workoutService.ConfirmMedia(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, media)
}
