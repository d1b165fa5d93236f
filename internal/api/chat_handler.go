package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/service"
)

// ChatHandler serves the HTTP side of member/trainer chat.
type ChatHandler struct {
	chatService service.ChatService
	log         logrus.FieldLogger
}

func NewChatHandler(chatService service.ChatService, log logrus.FieldLogger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: log}
}

// SendMessageRequest is the body of both send endpoints.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MemberChat godoc
// @Summary The member's chat with their trainer, created on first use
// @Tags Chat
// @Security BearerAuth
// @Success 200 {object} domain.ChatWithMessages
// @Failure 404 {object} envelope "No trainer assigned"
// @Router /chat/member/me [get]
func (h *ChatHandler) MemberChat(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	chat, err := h.chatService.ForMember(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, chat)
}

// MemberSend godoc
// @Summary Send a message to the member's trainer
// @Tags Chat
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} domain.Message
// @Router /chat/member/me/send [post]
func (h *ChatHandler) MemberSend(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	message, err := h.chatService.SendAsMember(c.Request.Context(), actor, req.Content, service.PathHTTP)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, message)
}

// TrainerChat godoc
// @Summary The trainer's chat with one assigned member
// @Tags Chat
// @Failure 403 {object} envelope "Member is not assigned to this trainer"
// @Router /chat/trainer/{memberId} [get]
func (h *ChatHandler) TrainerChat(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	memberID, ok := objectIDParam(c, "memberId")
	if !ok {
		return
	}
	chat, err := h.chatService.ForTrainer(c.Request.Context(), actor, memberID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, chat)
}

// TrainerSend godoc
// @Summary Send a message to an assigned member
// @Tags Chat
// @Param body body SendMessageRequest true "Message"
// @Router /chat/trainer/{memberId}/send [post]
func (h *ChatHandler) TrainerSend(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	memberID, ok := objectIDParam(c, "memberId")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	message, err := h.chatService.SendAsTrainer(c.Request.Context(), actor, memberID, req.Content, service.PathHTTP)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, message)
}

// DeleteChat godoc
// @Summary Wipe a chat; returns the empty replacement
// @Tags Chat
// @Success 200 {object} domain.Chat
// @Router /chat/{chatId} [delete]
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	chatID, ok := objectIDParam(c, "chatId")
	if !ok {
		return
	}
	chat, err := h.chatService.DeleteChat(c.Request.Context(), actor, chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, chat)
}

// DeleteMessage godoc
// @Summary Remove one message (trainer only)
// @Tags Chat
// @Router /chat/messages/{messageId} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	messageID, ok := objectIDParam(c, "messageId")
	if !ok {
		return
	}
	if err := h.chatService.DeleteMessage(c.Request.Context(), actor, messageID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "message deleted"})
}
