package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// Session is one connected viewer. Its outbound queue is bounded; when it is
// full the oldest queued message is dropped so publishers never block.
// -----------------------------------------------------------------------------

type Session struct {
	ID          string
	ConnectedAt time.Time

	mu      sync.Mutex
	queue   chan models.MBroadcastMessage
	closed  bool
	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	logger  *logger.Logger
	metrics *metrics.Collector
}

// -----------------------------------------------------------------------------

func newSession(id string, connectedAt time.Time, queueSize int, log *logger.Logger, m *metrics.Collector) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:          id,
		ConnectedAt: connectedAt,
		queue:       make(chan models.MBroadcastMessage, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      log,
		metrics:     m,
	}
}

// -----------------------------------------------------------------------------

// Enqueue never blocks. It reports false once the session is closed.
func (s *Session) Enqueue(msg models.MBroadcastMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- msg:
		return true
	default:
	}

	// Full: evict the oldest. Only Enqueue writes, so there is room afterwards.
	select {
	case old := <-s.queue:
		total := s.dropped.Add(1)
		s.metrics.Dropped()
		if s.logger != nil {
			s.logger.Warning("%v (oldest %s #%d)", helpers.NewBackpressureError(s.ID, total), old.Topic, old.Sequence)
		}
	default:
	}

	select {
	case s.queue <- msg:
	default:
	}
	return true
}

// -----------------------------------------------------------------------------

// Outbound is drained by the session's delivery task. It is never closed;
// select on Done to stop.
func (s *Session) Outbound() <-chan models.MBroadcastMessage {
	return s.queue
}

// Done is closed when the session is unregistered.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled with the session.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Dropped counts messages evicted from the queue.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// Closed reports whether the session has been unregistered.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}
