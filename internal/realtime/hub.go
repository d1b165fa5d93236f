package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Subscriber is one live connection. Send must not block.
type Subscriber interface {
	ID() string
	Send(frame []byte) bool
}

// RelayMessage is what instances exchange through a Relay. MoveTo, when set, moves the
// local subscribers of ChatID to that chat after delivering Frame.
type RelayMessage struct {
	ChatID string `json:"chatId"`
	Frame  []byte `json:"frame"`
	MoveTo string `json:"moveTo,omitempty"`
}

// Relay shares broadcasts between API instances.
type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	Run(ctx context.Context, deliver func(RelayMessage)) error
	Close() error
}

// Hub is the registry of broadcast groups keyed by chat id. Subscription state lives
// in this process only; clients re-announce with joinChat after a reconnect.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}
	joined map[Subscriber]map[string]struct{}

	relay    Relay
	log      logrus.FieldLogger
	onChange func(subscribers int)
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithRelay routes every broadcast through r so other instances see it.
func WithRelay(r Relay) HubOption {
	return func(h *Hub) { h.relay = r }
}

// WithSubscriberGauge reports the number of subscribed connections after each change.
func WithSubscriberGauge(fn func(int)) HubOption {
	return func(h *Hub) { h.onChange = fn }
}

// NewHub creates an empty hub.
func NewHub(log logrus.FieldLogger, opts ...HubOption) *Hub {
	h := &Hub{
		groups: make(map[string]map[Subscriber]struct{}),
		joined: make(map[Subscriber]map[string]struct{}),
		log:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run consumes the relay until ctx is done. Without a relay it returns immediately.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		return nil
	}
	return h.relay.Run(ctx, h.apply)
}

// Subscribe adds sub to the chat's group.
func (h *Hub) Subscribe(chatID string, sub Subscriber) {
	h.mu.Lock()
	group, ok := h.groups[chatID]
	if !ok {
		group = make(map[Subscriber]struct{})
		h.groups[chatID] = group
	}
	group[sub] = struct{}{}
	chats, ok := h.joined[sub]
	if !ok {
		chats = make(map[string]struct{})
		h.joined[sub] = chats
	}
	chats[chatID] = struct{}{}
	n := len(h.joined)
	h.mu.Unlock()
	h.changed(n)
}

// Unsubscribe removes sub from one group.
func (h *Hub) Unsubscribe(chatID string, sub Subscriber) {
	h.mu.Lock()
	h.removeLocked(chatID, sub)
	n := len(h.joined)
	h.mu.Unlock()
	h.changed(n)
}

// UnsubscribeAll removes sub from every group, e.g. on disconnect.
func (h *Hub) UnsubscribeAll(sub Subscriber) {
	h.mu.Lock()
	for chatID := range h.joined[sub] {
		h.removeLocked(chatID, sub)
	}
	n := len(h.joined)
	h.mu.Unlock()
	h.changed(n)
}

func (h *Hub) removeLocked(chatID string, sub Subscriber) {
	if group, ok := h.groups[chatID]; ok {
		delete(group, sub)
		if len(group) == 0 {
			delete(h.groups, chatID)
		}
	}
	if chats, ok := h.joined[sub]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(h.joined, sub)
		}
	}
}

// Subscribers returns the number of local subscribers of a chat.
func (h *Hub) Subscribers(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[chatID])
}

// Publish sends event to every subscriber of chatID.
func (h *Hub) Publish(ctx context.Context, chatID, event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, RelayMessage{ChatID: chatID, Frame: frame})
}

// Reset tells the old chat's subscribers about the replacement and moves them to it.
func (h *Hub) Reset(ctx context.Context, oldChatID, newChatID string, payload interface{}) error {
	frame, err := Encode(EventChatReset, payload)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, RelayMessage{ChatID: oldChatID, Frame: frame, MoveTo: newChatID})
}

// Deliver sends an event to one subscriber only.
func (h *Hub) Deliver(sub Subscriber, event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	if !sub.Send(frame) {
		h.log.WithField("subscriber", sub.ID()).Warn("dropped frame for slow subscriber")
	}
	return nil
}

// Move transfers every subscriber of from to to.
func (h *Hub) Move(from, to string) {
	if from == to {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[from]
	if !ok {
		return
	}
	delete(h.groups, from)
	target, ok := h.groups[to]
	if !ok {
		target = make(map[Subscriber]struct{}, len(group))
		h.groups[to] = target
	}
	for sub := range group {
		target[sub] = struct{}{}
		chats := h.joined[sub]
		delete(chats, from)
		chats[to] = struct{}{}
	}
}

func (h *Hub) dispatch(ctx context.Context, msg RelayMessage) error {
	if h.relay != nil {
		return h.relay.Publish(ctx, msg)
	}
	h.apply(msg)
	return nil
}

// apply delivers a message to local subscribers.
func (h *Hub) apply(msg RelayMessage) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.groups[msg.ChatID]))
	for sub := range h.groups[msg.ChatID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if !sub.Send(msg.Frame) {
			h.log.WithFields(logrus.Fields{"subscriber": sub.ID(), "chatId": msg.ChatID}).Warn("dropped frame for slow subscriber")
		}
	}
	if msg.MoveTo != "" {
		h.Move(msg.ChatID, msg.MoveTo)
	}
}

func (h *Hub) changed(n int) {
	if h.onChange != nil {
		h.onChange(n)
	}
}
