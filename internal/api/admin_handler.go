package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/service"
)

// AdminHandler serves the /admin routes.
type AdminHandler struct {
	adminService service.AdminService
	log          logrus.FieldLogger
}

func NewAdminHandler(adminService service.AdminService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{adminService: adminService, log: log}
}

// AssignTrainerRequest sets the member's trainer; an empty trainerId unassigns.
type AssignTrainerRequest struct {
	TrainerID string `json:"trainerId"`
}

// ListTrainers godoc
// @Summary List trainers with their user records
// @Tags Admin
// @Security BearerAuth
// @Success 200 {array} domain.TrainerDetails
// @Router /admin/trainers [get]
func (h *AdminHandler) ListTrainers(c *gin.Context) {
	trainers, err := h.adminService.ListTrainers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, trainers)
}

// GetTrainer godoc
// @Summary Get one trainer
// @Tags Admin
// @Param id path string true "Trainer profile ID"
// @Router /admin/trainers/{id} [get]
func (h *AdminHandler) GetTrainer(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	trainer, err := h.adminService.GetTrainer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, trainer)
}

// CreateTrainer godoc
// @Summary Create a trainer account and profile
// @Tags Admin
// @Param trainer body service.CreateTrainerInput true "Trainer"
// @Success 201 {object} domain.TrainerDetails
// @Failure 409 {object} envelope "Email already exists"
// @Router /admin/trainers [post]
func (h *AdminHandler) CreateTrainer(c *gin.Context) {
	var req service.CreateTrainerInput
	if !bindJSON(c, &req) {
		return
	}
	trainer, err := h.adminService.CreateTrainer(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, trainer)
}

// UpdateTrainer godoc
// @Summary Update a trainer; omitted fields are kept
// @Tags Admin
// @Router /admin/trainers/{id} [put]
func (h *AdminHandler) UpdateTrainer(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req service.TrainerUpdate
	if !bindJSON(c, &req) {
		return
	}
	trainer, err := h.adminService.UpdateTrainer(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, trainer)
}

// DeleteTrainer godoc
// @Summary Delete a trainer; its members become unassigned
// @Tags Admin
// @Router /admin/trainers/{id} [delete]
func (h *AdminHandler) DeleteTrainer(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.DeleteTrainer(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "trainer deleted"})
}

// ListMembers godoc
// @Summary List members with their user records
// @Tags Admin
// @Router /admin/members [get]
func (h *AdminHandler) ListMembers(c *gin.Context) {
	members, err := h.adminService.ListMembers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, members)
}

// GetMember godoc
// @Summary Get one member
// @Tags Admin
// @Router /admin/members/{id} [get]
func (h *AdminHandler) GetMember(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	member, err := h.adminService.GetMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, member)
}

// CreateMember godoc
// @Summary Create a member account and profile
// @Tags Admin
// @Router /admin/members [post]
func (h *AdminHandler) CreateMember(c *gin.Context) {
	var req service.CreateMemberInput
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.adminService.CreateMember(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, member)
}

// UpdateMember godoc
// @Summary Update a member; omitted fields are kept
// @Tags Admin
// @Router /admin/members/{id} [put]
func (h *AdminHandler) UpdateMember(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req service.MemberUpdate
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.adminService.UpdateMember(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, member)
}

// DeleteMember godoc
// @Summary Delete a member with its progress, saved items and chats
// @Tags Admin
// @Router /admin/members/{id} [delete]
func (h *AdminHandler) DeleteMember(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.DeleteMember(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "member deleted"})
}

// AssignTrainer godoc
// @Summary Assign a trainer to a member (last write wins)
// @Tags Admin
// @Param body body AssignTrainerRequest true "Trainer profile ID"
// @Router /admin/members/{id}/assign-trainer [put]
func (h *AdminHandler) AssignTrainer(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req AssignTrainerRequest
	if !bindJSON(c, &req) {
		return
	}
	var trainerID *primitive.ObjectID
	if req.TrainerID != "" {
		parsed, err := primitive.ObjectIDFromHex(req.TrainerID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid trainerId")
			return
		}
		trainerID = &parsed
	}
	member, err := h.adminService.AssignTrainer(c.Request.Context(), id, trainerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, member)
}

// GetProfile godoc
// @Summary The admin's own account
// @Tags Admin
// @Router /admin/profile [get]
func (h *AdminHandler) GetProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	user, err := h.adminService.GetProfile(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update the admin's own account
// @Tags Admin
// @Router /admin/profile [put]
func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.UserUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.adminService.UpdateProfile(c.Request.Context(), actor.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// DashboardStats godoc
// @Summary Gym-wide counters
// @Tags Admin
// @Success 200 {object} service.AdminStats
// @Router /admin/dashboard/stats [get]
func (h *AdminHandler) DashboardStats(c *gin.Context) {
	stats, err := h.adminService.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
