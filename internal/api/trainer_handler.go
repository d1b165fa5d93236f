package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// TrainerHandler serves the trainer's own area and read access to assigned members.
type TrainerHandler struct {
	trainerService service.TrainerService
	log            logrus.FieldLogger
}

func NewTrainerHandler(trainerService service.TrainerService, log logrus.FieldLogger) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService, log: log}
}

// GetProfile godoc
// @Summary The trainer's profile with its user record
// @Tags Trainer
// @Security BearerAuth
// @Router /trainer/profile [get]
func (h *TrainerHandler) GetProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	profile, err := h.trainerService.GetProfile(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the trainer's own profile
// @Tags Trainer
// @Router /trainer/profile [put]
func (h *TrainerHandler) UpdateProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.TrainerUpdate
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.trainerService.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// Members godoc
// @Summary Members assigned to the trainer
// @Tags Trainer
// @Router /trainer/members [get]
func (h *TrainerHandler) Members(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	members, err := h.trainerService.Members(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, members)
}

// Member godoc
// @Summary One assigned member
// @Tags Trainer
// @Failure 403 {object} envelope "Member is not assigned to this trainer"
// @Router /trainer/members/{id} [get]
func (h *TrainerHandler) Member(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	memberID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	member, err := h.trainerService.Member(c.Request.Context(), actor, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, member)
}

// MemberProgress godoc
// @Summary Progress records of one assigned member
// @Tags Trainer
// @Router /trainer/members/{id}/progress [get]
func (h *TrainerHandler) MemberProgress(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	memberID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	records, err := h.trainerService.MemberProgress(c.Request.Context(), actor, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, records)
}

// DashboardStats godoc
// @Summary Counters over the trainer's members
// @Tags Trainer
// @Success 200 {object} service.TrainerStats
// @Router /trainer/dashboard-stats [get]
func (h *TrainerHandler) DashboardStats(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	stats, err := h.trainerService.DashboardStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
