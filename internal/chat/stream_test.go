package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopalong/core/internal/api"
	"hopalong/core/internal/chat"
	"hopalong/core/internal/models"
	"hopalong/core/internal/realtime"
)

type fakeAPI struct {
	mu           sync.Mutex
	history      []models.ChatMessage
	sent         []string
	subscribeErr error
	historyErr   error
	sendErr      error
	sendBlock    chan struct{}

	// onPrevious runs inside ChatPrevious, before the history is returned.
	onPrevious func()
}

func (f *fakeAPI) ChatSubscribe(ctx context.Context, rideID string) (api.ChatCredentials, error) {
	if f.subscribeErr != nil {
		return api.ChatCredentials{}, f.subscribeErr
	}
	return api.ChatCredentials{Token: "broker-token", Channel: "chat:ride:" + rideID}, nil
}

func (f *fakeAPI) ChatPrevious(ctx context.Context, rideID string, limit, offset int) ([]models.ChatMessage, error) {
	if f.onPrevious != nil {
		f.onPrevious()
	}
	return f.history, f.historyErr
}

func (f *fakeAPI) ChatSend(ctx context.Context, rideID, content string) error {
	if f.sendBlock != nil {
		<-f.sendBlock
	}
	f.mu.Lock()
	f.sent = append(f.sent, content)
	f.mu.Unlock()
	return f.sendErr
}

func (f *fakeAPI) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeRealtime struct {
	mu        sync.Mutex
	openErr   error
	channel   string
	onMessage func([]byte)
	closed    bool
}

func (f *fakeRealtime) Open(ctx context.Context, brokerURL, token string) (*realtime.Conn, error) {
	return nil, f.openErr
}

func (f *fakeRealtime) Subscribe(channel string, onMessage func([]byte)) (*realtime.Subscription, error) {
	f.mu.Lock()
	f.channel = channel
	f.onMessage = onMessage
	f.mu.Unlock()
	return nil, nil
}

func (f *fakeRealtime) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// publish delivers a message through the captured subscription callback.
func (f *fakeRealtime) publish(t *testing.T, msg models.ChatMessage) {
	t.Helper()
	f.mu.Lock()
	cb := f.onMessage
	f.mu.Unlock()
	require.NotNil(t, cb, "no subscription captured")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	cb(data)
}

func message(id, content string, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:       id,
		Content:  content,
		SenderID: "user-1",
		RideID:   "r1",
		SentAt:   at,
		Sender:   models.ChatSender{ID: "user-1", FirstName: "Olena"},
	}
}

func contentsOf(msgs []models.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestStream_HistoryThenLiveOrder(t *testing.T) {
	now := time.Now()
	backend := &fakeAPI{history: []models.ChatMessage{
		message("m1", "first", now.Add(-2*time.Minute)),
		message("m2", "second", now.Add(-time.Minute)),
	}}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)

	seeded, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, contentsOf(seeded))
	assert.Equal(t, "chat:ride:r1", rt.channel)

	rt.publish(t, message("m3", "third", now))
	rt.publish(t, message("m4", "fourth", now))
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, contentsOf(s.Messages()))
}

func TestStream_EarlyPublicationsBufferedUntilSeeded(t *testing.T) {
	now := time.Now()
	rt := &fakeRealtime{}
	backend := &fakeAPI{history: []models.ChatMessage{
		message("m1", "first", now.Add(-time.Minute)),
	}}
	// A publication lands after subscribe but before history returns.
	backend.onPrevious = func() {
		rt.publish(t, message("m2", "live-early", now))
	}
	s := chat.NewStream(backend, rt, "ws://broker", nil)

	seeded, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "live-early"}, contentsOf(seeded))
}

func TestStream_DuplicateIDsDropped(t *testing.T) {
	now := time.Now()
	backend := &fakeAPI{history: []models.ChatMessage{
		message("m1", "first", now.Add(-time.Minute)),
	}}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)

	_, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)

	// The same message id arrives live, e.g. history already contained it.
	rt.publish(t, message("m1", "first", now.Add(-time.Minute)))
	rt.publish(t, message("m2", "second", now))
	rt.publish(t, message("m2", "second", now))

	assert.Equal(t, []string{"first", "second"}, contentsOf(s.Messages()))
}

func TestStream_OnUpdateReceivesFullSequence(t *testing.T) {
	backend := &fakeAPI{}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)

	var mu sync.Mutex
	var snapshots [][]string
	s.OnUpdate(func(msgs []models.ChatMessage) {
		mu.Lock()
		snapshots = append(snapshots, contentsOf(msgs))
		mu.Unlock()
	})

	_, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)

	rt.publish(t, message("m1", "one", time.Now()))
	rt.publish(t, message("m2", "two", time.Now()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 2)
	assert.Equal(t, []string{"one"}, snapshots[0])
	assert.Equal(t, []string{"one", "two"}, snapshots[1])
}

func TestStream_SendRejectsEmptyContent(t *testing.T) {
	backend := &fakeAPI{}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)
	_, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Send(context.Background(), ""), chat.ErrEmptyMessage)
	assert.ErrorIs(t, s.Send(context.Background(), "   \n\t"), chat.ErrEmptyMessage)
	assert.Empty(t, backend.sentMessages())
}

func TestStream_SendBeforeInitialize(t *testing.T) {
	s := chat.NewStream(&fakeAPI{}, &fakeRealtime{}, "ws://broker", nil)
	assert.ErrorIs(t, s.Send(context.Background(), "hello"), chat.ErrSendUnavailable)
	assert.False(t, s.CanSend())
}

func TestStream_SendWhileSendInFlight(t *testing.T) {
	backend := &fakeAPI{sendBlock: make(chan struct{})}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)
	_, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Send(context.Background(), "slow message"))
	}()

	require.Eventually(t, func() bool {
		return !s.CanSend()
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Send(context.Background(), "second"), chat.ErrSendUnavailable)

	close(backend.sendBlock)
	<-done
	assert.True(t, s.CanSend())
	assert.Equal(t, []string{"slow message"}, backend.sentMessages())
}

func TestStream_NoLocalEchoOnSend(t *testing.T) {
	backend := &fakeAPI{}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)
	_, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), "hello"))
	assert.Empty(t, s.Messages())

	// The message appears once it returns through the subscription.
	rt.publish(t, message("m1", "hello", time.Now()))
	assert.Equal(t, []string{"hello"}, contentsOf(s.Messages()))
}

func TestStream_InitializeFailureDisablesSending(t *testing.T) {
	backend := &fakeAPI{historyErr: errors.New("history unavailable")}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)

	_, err := s.Initialize(context.Background(), "r1")
	require.Error(t, err)
	assert.False(t, s.CanSend())
	assert.ErrorIs(t, s.Send(context.Background(), "hello"), chat.ErrSendUnavailable)
}

func TestStream_SubscribeFailureSurfaces(t *testing.T) {
	backend := &fakeAPI{subscribeErr: errors.New("ride not found")}
	s := chat.NewStream(backend, &fakeRealtime{}, "ws://broker", nil)

	_, err := s.Initialize(context.Background(), "r1")
	assert.ErrorContains(t, err, "ride not found")
}

func TestStream_CloseTearsDownRealtime(t *testing.T) {
	rt := &fakeRealtime{}
	s := chat.NewStream(&fakeAPI{}, rt, "ws://broker", nil)
	s.Close()
	assert.True(t, rt.closed)
}

func TestStream_ReinitializeResetsSequence(t *testing.T) {
	now := time.Now()
	backend := &fakeAPI{history: []models.ChatMessage{
		message("m1", "first", now.Add(-time.Minute)),
	}}
	rt := &fakeRealtime{}
	s := chat.NewStream(backend, rt, "ws://broker", nil)

	_, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)
	rt.publish(t, message("m2", "second", now))

	seeded, err := s.Initialize(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, contentsOf(seeded))

	// Ids seen before the reset deliver again afterwards.
	rt.publish(t, message("m2", "second", now))
	assert.Equal(t, []string{"first", "second"}, contentsOf(s.Messages()))
}
