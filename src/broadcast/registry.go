package broadcast

import (
	"sort"
	"sync"

	"market-pulse/src/helpers"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"

	"github.com/google/uuid"
	"github.com/juju/clock"
)

// -----------------------------------------------------------------------------
// Registry owns every connected Session and its subscriptions. It is the only
// writer of the topic to session mapping the Broadcaster reads at publish time.
// -----------------------------------------------------------------------------

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	subs     map[string]map[string]struct{} // sessionID -> topics
	topics   map[string]map[string]*Session // topic -> sessionID -> session

	queueSize int
	clock     clock.Clock
	Logger    *logger.Logger
	metrics   *metrics.Collector
}

// -----------------------------------------------------------------------------

func NewRegistry(queueSize int, clk clock.Clock, m *metrics.Collector) *Registry {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		subs:      make(map[string]map[string]struct{}),
		topics:    make(map[string]map[string]*Session),
		queueSize: queueSize,
		clock:     clk,
		Logger:    logger.NewLogger(nil, "SessionRegistry"),
		metrics:   m,
	}
}

// -----------------------------------------------------------------------------

// Register creates a session with no subscriptions.
func (r *Registry) Register() *Session {
	s := newSession(uuid.NewString(), r.clock.Now(), r.queueSize, r.Logger.Named("session"), r.metrics)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.subs[s.ID] = make(map[string]struct{})
	r.mu.Unlock()

	r.metrics.SessionOpened()
	r.Logger.Debug("Session %s registered", s.ID)
	return s
}

// Get looks a session up by id.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// -----------------------------------------------------------------------------

func (r *Registry) Subscribe(sessionID, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return helpers.ErrUnknownSession
	}
	r.subs[sessionID][topic] = struct{}{}
	if r.topics[topic] == nil {
		r.topics[topic] = make(map[string]*Session)
	}
	r.topics[topic][sessionID] = s
	return nil
}

func (r *Registry) Unsubscribe(sessionID, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return helpers.ErrUnknownSession
	}
	r.removeLocked(sessionID, topic)
	return nil
}

func (r *Registry) removeLocked(sessionID, topic string) {
	delete(r.subs[sessionID], topic)
	if members, ok := r.topics[topic]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.topics, topic)
		}
	}
}

// -----------------------------------------------------------------------------

// Unregister releases every subscription and cancels the session's delivery.
// It is safe to call concurrently with Publish and more than once.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	for topic := range r.subs[sessionID] {
		r.removeLocked(sessionID, topic)
	}
	delete(r.subs, sessionID)
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	s.close()
	r.metrics.SessionClosed()
	r.Logger.Debug("Session %s unregistered (%d dropped)", sessionID, s.Dropped())
}

// -----------------------------------------------------------------------------

// Subscriptions returns the session's topics, sorted. Unknown sessions have none.
func (r *Registry) Subscriptions(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.subs[sessionID]))
	for topic := range r.subs[sessionID] {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Subscribers is a point-in-time copy of a topic's sessions.
func (r *Registry) Subscribers(topic string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.topics[topic]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// UnregisterAll closes every session, used on shutdown.
func (r *Registry) UnregisterAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}
