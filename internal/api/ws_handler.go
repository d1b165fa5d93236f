package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/service"
)

// WSHandler upgrades authenticated requests to the chat event channel.
type WSHandler struct {
	chatService service.ChatService
	hub         *realtime.Hub
	upgrader    websocket.Upgrader
	log         logrus.FieldLogger
}

func NewWSHandler(chatService service.ChatService, hub *realtime.Hub, allowedOrigins []string, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		chatService: chatService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Serve godoc
// @Summary Websocket for chat events (joinChat, sendMessage, leaveChat)
// @Tags Chat
// @Security BearerAuth
// @Router /chat/ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(conn, h.hub, actor.UserID, actor.Role, h.log)
	h.log.WithFields(logrus.Fields{"conn": client.ID(), "userId": actor.UserID.Hex()}).Debug("websocket connected")
	client.Serve(c.Request.Context(), h.handle)
}

// handle dispatches one inbound frame. The sender is always the authenticated user.
func (h *WSHandler) handle(ctx context.Context, client *realtime.Client, env realtime.Envelope) {
	actor := service.Actor{UserID: client.UserID, Role: client.Role}

	switch env.Event {
	case realtime.EventJoinChat:
		var payload realtime.JoinChatPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			client.SendError("invalid joinChat payload")
			return
		}
		memberID, err1 := primitive.ObjectIDFromHex(payload.MemberID)
		trainerID, err2 := primitive.ObjectIDFromHex(payload.TrainerID)
		if err1 != nil || err2 != nil {
			client.SendError("memberId and trainerId must be valid ids")
			return
		}
		chat, err := h.chatService.Join(ctx, actor, memberID, trainerID)
		if err != nil {
			h.sendError(client, err)
			return
		}
		// Subscribe before reading history: a message sent in between shows up in
		// the history, as newMessage, or both. Clients dedupe by message id.
		h.hub.Subscribe(chat.ID.Hex(), client)
		history, err := h.chatService.History(ctx, chat)
		if err != nil {
			h.hub.Unsubscribe(chat.ID.Hex(), client)
			h.sendError(client, err)
			return
		}
		if err := h.hub.Deliver(client, realtime.EventChatHistory, history); err != nil {
			h.log.WithError(err).Warn("encoding chat history failed")
		}

	case realtime.EventSendMessage:
		var payload realtime.SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			client.SendError("invalid sendMessage payload")
			return
		}
		chatID, err := primitive.ObjectIDFromHex(payload.ChatID)
		if err != nil {
			client.SendError("chatId must be a valid id")
			return
		}
		// Send persists and broadcasts newMessage to the group, the sender included.
		if _, err := h.chatService.Send(ctx, actor, chatID, payload.Content, service.PathWS); err != nil {
			h.sendError(client, err)
		}

	case realtime.EventLeaveChat:
		var payload realtime.LeaveChatPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.ChatID == "" {
			client.SendError("invalid leaveChat payload")
			return
		}
		h.hub.Unsubscribe(payload.ChatID, client)

	default:
		client.SendError("unknown event " + env.Event)
	}
}

// sendError reports err to the offending connection; internal failures stay generic.
func (h *WSHandler) sendError(client *realtime.Client, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.log.WithError(err).WithField("conn", client.ID()).Error("websocket event failed")
		client.SendError("internal server error")
		return
	}
	client.SendError(err.Error())
}
