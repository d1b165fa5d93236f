package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// MemberHandler serves the member's own area.
type MemberHandler struct {
	memberService service.MemberService
	log           logrus.FieldLogger
}

func NewMemberHandler(memberService service.MemberService, log logrus.FieldLogger) *MemberHandler {
	return &MemberHandler{memberService: memberService, log: log}
}

// GetProfile godoc
// @Summary The member's profile with its user record
// @Tags Member
// @Security BearerAuth
// @Success 200 {object} domain.MemberDetails
// @Router /member/profile [get]
func (h *MemberHandler) GetProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	profile, err := h.memberService.GetProfile(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the member's own profile
// @Tags Member
// @Param profile body service.MemberUpdate true "Fields to change"
// @Router /member/profile [put]
func (h *MemberHandler) UpdateProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.MemberUpdate
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.memberService.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// GetTrainer godoc
// @Summary The member's assigned trainer
// @Tags Member
// @Failure 404 {object} envelope "No trainer assigned"
// @Router /member/trainer [get]
func (h *MemberHandler) GetTrainer(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	trainer, err := h.memberService.GetTrainer(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, trainer)
}

// Progress godoc
// @Summary Every progress record of the member
// @Tags Member
// @Router /member/progress [get]
func (h *MemberHandler) Progress(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	records, err := h.memberService.Progress(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, records)
}

// Workouts godoc
// @Summary Workout catalogue
// @Tags Member
// @Router /member/workouts [get]
func (h *MemberHandler) Workouts(c *gin.Context) {
	workouts, err := h.memberService.Workouts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, workouts)
}

// Routines godoc
// @Summary Routine catalogue
// @Tags Member
// @Router /member/routines [get]
func (h *MemberHandler) Routines(c *gin.Context) {
	routines, err := h.memberService.Routines(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, routines)
}

// DashboardStats godoc
// @Summary Streak, weekly and monthly training counters
// @Tags Member
// @Success 200 {object} service.MemberStats
// @Router /member/dashboard-stats [get]
func (h *MemberHandler) DashboardStats(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	stats, err := h.memberService.DashboardStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
