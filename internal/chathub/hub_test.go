package chathub_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopalong/core/internal/chathub"
	"hopalong/core/internal/models"
)

// mockSubscriber is an in-memory Subscriber that records frames.
type mockSubscriber struct {
	id   string
	mu   sync.Mutex
	got  []models.Frame
	full bool
}

func newMockSubscriber(id string) *mockSubscriber {
	return &mockSubscriber{id: id}
}

func (m *mockSubscriber) ID() string { return m.id }

func (m *mockSubscriber) TrySend(f models.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return false
	}
	m.got = append(m.got, f)
	return true
}

func (m *mockSubscriber) Close() {}

func (m *mockSubscriber) frames() []models.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Frame(nil), m.got...)
}

func (m *mockSubscriber) framesOf(frameType string) []models.Frame {
	var out []models.Frame
	for _, f := range m.frames() {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

func acceptAll(token string) (string, error) { return token, nil }

func startHub(t *testing.T) *chathub.Hub {
	t.Helper()
	hub := chathub.NewHub(acceptAll, nil)
	go hub.Run()
	return hub
}

func subscribe(hub *chathub.Hub, sub chathub.Subscriber, channel string) {
	hub.RegisterCh <- sub
	hub.SubscribeCh <- chathub.ChannelRequest{Subscriber: sub, Channel: channel}
}

func TestHub_SubscribeAck(t *testing.T) {
	hub := startHub(t)
	client := newMockSubscriber("user_A")

	subscribe(hub, client, "chat:ride:r1")
	time.Sleep(50 * time.Millisecond)

	acks := client.framesOf(models.FrameSubscribed)
	require.Len(t, acks, 1)
	assert.Equal(t, "chat:ride:r1", acks[0].Channel)
}

func TestHub_BroadcastReachesChannelSubscribers(t *testing.T) {
	hub := startHub(t)
	clientA := newMockSubscriber("user_A")
	clientB := newMockSubscriber("user_B")
	other := newMockSubscriber("user_C")

	subscribe(hub, clientA, "chat:ride:r1")
	subscribe(hub, clientB, "chat:ride:r1")
	subscribe(hub, other, "chat:ride:r2")
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.Broadcast("chat:ride:r1", map[string]string{"content": "hello"}))
	time.Sleep(50 * time.Millisecond)

	for _, c := range []*mockSubscriber{clientA, clientB} {
		pubs := c.framesOf(models.FramePublication)
		require.Len(t, pubs, 1, "subscriber %s", c.ID())
		assert.Equal(t, "chat:ride:r1", pubs[0].Channel)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(pubs[0].Data, &payload))
		assert.Equal(t, "hello", payload["content"])
	}
	assert.Empty(t, other.framesOf(models.FramePublication))
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub(t)
	client := newMockSubscriber("user_A")

	subscribe(hub, client, "chat:ride:r1")
	hub.UnsubscribeCh <- chathub.ChannelRequest{Subscriber: client, Channel: "chat:ride:r1"}
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.Broadcast("chat:ride:r1", map[string]string{"content": "hello"}))
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, client.framesOf(models.FramePublication))
}

func TestHub_UnregisterRemovesAllSubscriptions(t *testing.T) {
	hub := startHub(t)
	client := newMockSubscriber("user_A")

	subscribe(hub, client, "chat:ride:r1")
	hub.SubscribeCh <- chathub.ChannelRequest{Subscriber: client, Channel: "chat:ride:r2"}
	hub.UnregisterCh <- client
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.Broadcast("chat:ride:r1", map[string]string{"content": "one"}))
	require.NoError(t, hub.Broadcast("chat:ride:r2", map[string]string{"content": "two"}))
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, client.framesOf(models.FramePublication))
}

func TestHub_SlowSubscriberIsEvicted(t *testing.T) {
	hub := startHub(t)
	slow := newMockSubscriber("user_slow")
	slow.full = true
	healthy := newMockSubscriber("user_ok")

	subscribe(hub, slow, "chat:ride:r1")
	subscribe(hub, healthy, "chat:ride:r1")
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.Broadcast("chat:ride:r1", map[string]string{"content": "one"}))
	time.Sleep(50 * time.Millisecond)

	// The slow client was dropped; later publications still flow.
	require.NoError(t, hub.Broadcast("chat:ride:r1", map[string]string{"content": "two"}))
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, healthy.framesOf(models.FramePublication), 2)
}
