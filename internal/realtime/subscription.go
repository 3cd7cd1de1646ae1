package realtime

import "sync/atomic"

// Subscription is the handle for one channel subscription. A deactivated
// subscription (replaced by a resubscribe, or explicitly unsubscribed)
// never delivers another publication.
type Subscription struct {
	channel   string
	onMessage func([]byte)
	conn      *Conn
	inactive  atomic.Bool
}

// Channel returns the subscribed channel name.
func (s *Subscription) Channel() string {
	return s.channel
}

// Unsubscribe deactivates the subscription and tells the broker to stop
// delivering the channel. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.inactive.Swap(true) {
		return
	}
	s.conn.unsubscribe(s)
}

func (s *Subscription) deactivate() {
	s.inactive.Store(true)
}

func (s *Subscription) deliver(data []byte) {
	if s.inactive.Load() {
		return
	}
	s.onMessage(data)
}
