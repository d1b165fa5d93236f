package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// RoutineHandler serves routines and their one-shot completion.
type RoutineHandler struct {
	routineService  service.RoutineService
	progressService service.ProgressService
	log             logrus.FieldLogger
}

func NewRoutineHandler(routineService service.RoutineService, progressService service.ProgressService, log logrus.FieldLogger) *RoutineHandler {
	return &RoutineHandler{routineService: routineService, progressService: progressService, log: log}
}

// CompleteRoutineRequest lists the workouts done in a one-shot session.
type CompleteRoutineRequest struct {
	WorkoutIDs []string `json:"workoutIds"`
}

// Create godoc
// @Summary Create a routine with its ordered workouts
// @Tags Routines
// @Security BearerAuth
// @Param routine body service.RoutineInput true "Routine"
// @Success 201 {object} domain.RoutineDetails
// @Router /routine [post]
func (h *RoutineHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.RoutineInput
	if !bindJSON(c, &req) {
		return
	}
	routine, err := h.routineService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, routine)
}

// List godoc
// @Summary List routines
// @Tags Routines
// @Router /routine [get]
func (h *RoutineHandler) List(c *gin.Context) {
	routines, err := h.routineService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, routines)
}

// Get godoc
// @Summary Get a routine with its workouts in sequence
// @Tags Routines
// @Router /routine/{id} [get]
func (h *RoutineHandler) Get(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	routine, err := h.routineService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, routine)
}

// Update godoc
// @Summary Replace a routine and its workout links
// @Tags Routines
// @Router /routine/{id} [put]
func (h *RoutineHandler) Update(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req service.RoutineInput
	if !bindJSON(c, &req) {
		return
	}
	routine, err := h.routineService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, routine)
}

// Delete godoc
// @Summary Delete a routine with its links, saves and progress
// @Tags Routines
// @Router /routine/{id} [delete]
func (h *RoutineHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.routineService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "routine deleted"})
}

// Save godoc
// @Summary Save a routine to the member's list
// @Tags Routines
// @Router /routine/{id}/save [post]
func (h *RoutineHandler) Save(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	saved, err := h.routineService.Save(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, saved)
}

// Unsave godoc
// @Summary Remove a routine from the member's list
// @Tags Routines
// @Router /routine/{id}/save [delete]
func (h *RoutineHandler) Unsave(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.routineService.Unsave(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "routine removed from saved"})
}

// Saved godoc
// @Summary The member's saved routines
// @Tags Routines
// @Router /routine/saved/me [get]
func (h *RoutineHandler) Saved(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	routines, err := h.routineService.Saved(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, routines)
}

// Complete godoc
// @Summary Start and finish a session in one call
// @Tags Routines
// @Param body body CompleteRoutineRequest false "Workouts done"
// @Success 200 {object} service.FinishResult
// @Router /routine/{id}/complete [post]
func (h *RoutineHandler) Complete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req CompleteRoutineRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	workoutIDs, ok := parseObjectIDs(c, "workoutIds", req.WorkoutIDs)
	if !ok {
		return
	}
	result, err := h.progressService.Complete(c.Request.Context(), actor, id, workoutIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
