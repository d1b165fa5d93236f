package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func (s *fakeSub) ID() string { return s.id }

func (s *fakeSub) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *fakeSub) events(t *testing.T) []Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

func newTestHub(opts ...HubOption) *Hub {
	log, _ := test.NewNullLogger()
	return NewHub(log, opts...)
}

func TestPublishReachesOnlyGroupMembers(t *testing.T) {
	hub := newTestHub()
	a, b, other := &fakeSub{id: "a"}, &fakeSub{id: "b"}, &fakeSub{id: "c"}
	hub.Subscribe("chat-1", a)
	hub.Subscribe("chat-1", b)
	hub.Subscribe("chat-2", other)

	require.NoError(t, hub.Publish(context.Background(), "chat-1", EventNewMessage, map[string]string{"content": "hi"}))

	require.Len(t, a.events(t), 1)
	require.Len(t, b.events(t), 1)
	assert.Empty(t, other.events(t))
	assert.Equal(t, EventNewMessage, a.events(t)[0].Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(a.events(t)[0].Data))
}

func TestUnsubscribeAll(t *testing.T) {
	var gauge int
	hub := newTestHub(WithSubscriberGauge(func(n int) { gauge = n }))
	a := &fakeSub{id: "a"}
	hub.Subscribe("chat-1", a)
	hub.Subscribe("chat-2", a)
	assert.Equal(t, 1, gauge)

	hub.UnsubscribeAll(a)
	assert.Equal(t, 0, hub.Subscribers("chat-1"))
	assert.Equal(t, 0, hub.Subscribers("chat-2"))
	assert.Equal(t, 0, gauge)
}

func TestResetMovesSubscribers(t *testing.T) {
	hub := newTestHub()
	a := &fakeSub{id: "a"}
	hub.Subscribe("old", a)

	require.NoError(t, hub.Reset(context.Background(), "old", "new", map[string]string{"oldChatId": "old"}))

	evts := a.events(t)
	require.Len(t, evts, 1)
	assert.Equal(t, EventChatReset, evts[0].Event)
	assert.Equal(t, 0, hub.Subscribers("old"))
	assert.Equal(t, 1, hub.Subscribers("new"))

	require.NoError(t, hub.Publish(context.Background(), "new", EventNewMessage, "x"))
	assert.Len(t, a.events(t), 2)

	hub.UnsubscribeAll(a)
	assert.Equal(t, 0, hub.Subscribers("new"))
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	log, hook := test.NewNullLogger()
	hub := NewHub(log)
	slow, fast := &fakeSub{id: "slow", full: true}, &fakeSub{id: "fast"}
	hub.Subscribe("chat", slow)
	hub.Subscribe("chat", fast)

	require.NoError(t, hub.Publish(context.Background(), "chat", EventNewMessage, "x"))
	assert.Len(t, fast.events(t), 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestDeliverTargetsOneSubscriber(t *testing.T) {
	hub := newTestHub()
	a, b := &fakeSub{id: "a"}, &fakeSub{id: "b"}
	hub.Subscribe("chat", a)
	hub.Subscribe("chat", b)

	require.NoError(t, hub.Deliver(a, EventChatHistory, []string{}))
	assert.Len(t, a.events(t), 1)
	assert.Empty(t, b.events(t))
}

// loopbackRelay connects hubs in-process the way Redis does across instances.
type loopbackRelay struct {
	mu    sync.Mutex
	peers []func(RelayMessage)
}

func (l *loopbackRelay) Publish(_ context.Context, msg RelayMessage) error {
	l.mu.Lock()
	peers := append([]func(RelayMessage){}, l.peers...)
	l.mu.Unlock()
	for _, deliver := range peers {
		deliver(msg)
	}
	return nil
}

func (l *loopbackRelay) Run(_ context.Context, deliver func(RelayMessage)) error {
	l.mu.Lock()
	l.peers = append(l.peers, deliver)
	l.mu.Unlock()
	return nil
}

func (l *loopbackRelay) Close() error { return nil }

func TestRelayFansOutAcrossHubs(t *testing.T) {
	relay := &loopbackRelay{}
	h1 := newTestHub(WithRelay(relay))
	h2 := newTestHub(WithRelay(relay))
	require.NoError(t, h1.Run(context.Background()))
	require.NoError(t, h2.Run(context.Background()))

	a, b := &fakeSub{id: "a"}, &fakeSub{id: "b"}
	h1.Subscribe("chat", a)
	h2.Subscribe("chat", b)

	require.NoError(t, h1.Reset(context.Background(), "chat", "chat-2", "reset"))
	assert.Len(t, a.events(t), 1)
	assert.Len(t, b.events(t), 1)
	assert.Equal(t, 1, h2.Subscribers("chat-2"))
}
