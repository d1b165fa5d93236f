// Package realtime fans chat events out to websocket connections.
package realtime

import "encoding/json"

// Inbound events sent by clients.
const (
	EventJoinChat    = "joinChat"
	EventLeaveChat   = "leaveChat"
	EventSendMessage = "sendMessage"
)

// Outbound events.
const (
	EventChatHistory    = "chatHistory"
	EventNewMessage     = "newMessage"
	EventMessageDeleted = "messageDeleted"
	EventChatReset      = "chatReset"
	EventError          = "error"
)

// Envelope is the JSON frame exchanged in both directions: {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinChatPayload asks for the chat between a member and a trainer (profile ids).
type JoinChatPayload struct {
	MemberID  string `json:"memberId"`
	TrainerID string `json:"trainerId"`
}

// SendMessagePayload carries a new message. Any senderId a client adds is ignored.
type SendMessagePayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// LeaveChatPayload drops a subscription.
type LeaveChatPayload struct {
	ChatID string `json:"chatId"`
}

// ErrorPayload is sent only to the connection that caused the error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode renders one outbound frame.
func Encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
