// Package chat merges a ride channel's message history with its live
// publications into one ordered, de-duplicated sequence.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"hopalong/core/internal/api"
	"hopalong/core/internal/models"
	"hopalong/core/internal/realtime"
)

var (
	// ErrEmptyMessage rejects sends whose content is empty or whitespace
	// before any network activity.
	ErrEmptyMessage = errors.New("chat: message content is empty")

	// ErrSendUnavailable means sending is currently disabled: a prior
	// send is in flight, history is still loading, or the stream failed.
	ErrSendUnavailable = errors.New("chat: sending is unavailable")
)

// DefaultPageSize bounds the historical fetch when the caller does not
// override it.
const DefaultPageSize = 50

// API is the slice of the backend client the stream needs.
type API interface {
	ChatSubscribe(ctx context.Context, rideID string) (api.ChatCredentials, error)
	ChatPrevious(ctx context.Context, rideID string, limit, offset int) ([]models.ChatMessage, error)
	ChatSend(ctx context.Context, rideID, content string) error
}

// Realtime is the slice of the channel manager the stream needs.
type Realtime interface {
	Open(ctx context.Context, brokerURL, token string) (*realtime.Conn, error)
	Subscribe(channel string, onMessage func([]byte)) (*realtime.Subscription, error)
	Close()
}

// Stream is the chat message sequence for one ride. History seeds it once,
// in full; live publications append at the tail in arrival order. Live
// events are assumed to arrive after the historical snapshot and in
// chronological order; no gap-filling is attempted beyond dropping
// duplicate ids. Sent messages are not echoed locally; they appear only
// when they return through the live subscription.
type Stream struct {
	api       API
	rt        Realtime
	brokerURL string
	log       *slog.Logger

	// PageSize and Offset bound the historical fetch. Zero PageSize
	// falls back to DefaultPageSize.
	PageSize int
	Offset   int

	mu       sync.Mutex
	rideID   string
	messages []models.ChatMessage
	seen     map[string]bool
	pending  []models.ChatMessage
	seeded   bool
	loading  bool
	sending  bool
	failed   bool
	onUpdate func([]models.ChatMessage)
}

func NewStream(backend API, rt Realtime, brokerURL string, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		api:       backend,
		rt:        rt,
		brokerURL: brokerURL,
		log:       logger,
		PageSize:  DefaultPageSize,
		seen:      make(map[string]bool),
	}
}

// OnUpdate registers a callback invoked with the full ordered sequence
// whenever a live message is appended.
func (s *Stream) OnUpdate(fn func([]models.ChatMessage)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Initialize obtains broker credentials for the ride, opens the realtime
// connection, subscribes to the ride's channel and then loads the bounded
// history window. It returns the seeded sequence in chronological order.
// Publications that arrive before the history lands are buffered and
// appended after the seed.
func (s *Stream) Initialize(ctx context.Context, rideID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	s.rideID = rideID
	s.messages = nil
	s.pending = nil
	s.seen = make(map[string]bool)
	s.seeded = false
	s.failed = false
	s.loading = true
	pageSize := s.PageSize
	offset := s.Offset
	s.mu.Unlock()
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	creds, err := s.api.ChatSubscribe(ctx, rideID)
	if err != nil {
		return nil, s.fail(err)
	}
	if _, err := s.rt.Open(ctx, s.brokerURL, creds.Token); err != nil {
		return nil, s.fail(err)
	}
	if _, err := s.rt.Subscribe(creds.Channel, s.handlePublication); err != nil {
		return nil, s.fail(err)
	}

	history, err := s.api.ChatPrevious(ctx, rideID, pageSize, offset)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	for _, msg := range history {
		s.appendLocked(msg)
	}
	for _, msg := range s.pending {
		s.appendLocked(msg)
	}
	s.pending = nil
	s.seeded = true
	s.loading = false
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	return snapshot, nil
}

// Send posts a message to the ride's channel. Empty or whitespace content
// never reaches the endpoint. Sending is disabled while a prior send is in
// flight, while history is loading, and after a stream failure.
func (s *Stream) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending || s.loading || s.failed || !s.seeded {
		s.mu.Unlock()
		return ErrSendUnavailable
	}
	s.sending = true
	rideID := s.rideID
	s.mu.Unlock()

	err := s.api.ChatSend(ctx, rideID, content)

	s.mu.Lock()
	s.sending = false
	s.mu.Unlock()
	// The sent message is not inserted locally; it arrives through the
	// live subscription like everyone else's.
	return err
}

// CanSend reports whether Send would currently be accepted.
func (s *Stream) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded && !s.sending && !s.loading && !s.failed
}

// Messages returns a copy of the current ordered sequence.
func (s *Stream) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close tears down the realtime connection and its subscriptions.
func (s *Stream) Close() {
	s.rt.Close()
}

func (s *Stream) handlePublication(data []byte) {
	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("dropping undecodable chat publication", "error", err)
		return
	}

	s.mu.Lock()
	if !s.seeded {
		s.pending = append(s.pending, msg)
		s.mu.Unlock()
		return
	}
	if !s.appendLocked(msg) {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// appendLocked appends msg at the tail unless its id was already seen.
func (s *Stream) appendLocked(msg models.ChatMessage) bool {
	if msg.ID != "" {
		if s.seen[msg.ID] {
			return false
		}
		s.seen[msg.ID] = true
	}
	s.messages = append(s.messages, msg)
	return true
}

func (s *Stream) snapshotLocked() []models.ChatMessage {
	return append([]models.ChatMessage(nil), s.messages...)
}

func (s *Stream) fail(err error) error {
	s.mu.Lock()
	s.failed = true
	s.loading = false
	s.mu.Unlock()
	s.log.Warn("chat stream failed", "error", err)
	return err
}
