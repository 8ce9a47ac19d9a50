package broadcast

import (
	"sync"

	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/models"

	"github.com/juju/clock"
)

// -----------------------------------------------------------------------------
// Broadcaster fans topic messages out to subscribed sessions. It owns only the
// per-topic sequence counters; message content is not retained after delivery.
// -----------------------------------------------------------------------------

type Broadcaster struct {
	registry *Registry
	topics   sync.Map // topic -> *topicState
	clock    clock.Clock
	Logger   *logger.Logger
	metrics  *metrics.Collector
}

type topicState struct {
	mu  sync.Mutex
	seq uint64
}

// -----------------------------------------------------------------------------

func NewBroadcaster(registry *Registry, clk clock.Clock, m *metrics.Collector) *Broadcaster {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Broadcaster{
		registry: registry,
		clock:    clk,
		Logger:   logger.NewLogger(nil, "Broadcaster"),
		metrics:  m,
	}
}

func (b *Broadcaster) state(topic string) *topicState {
	if v, ok := b.topics.Load(topic); ok {
		return v.(*topicState)
	}
	v, _ := b.topics.LoadOrStore(topic, &topicState{})
	return v.(*topicState)
}

// -----------------------------------------------------------------------------

// Publish assigns the topic's next sequence and enqueues the message to every
// session subscribed at this instant. It never blocks on a session. The topic
// lock is held across delivery so every session sees one topic in order.
func (b *Broadcaster) Publish(topic string, payload interface{}) models.MBroadcastMessage {
	return b.PublishFunc(topic, func() interface{} { return payload })
}

// PublishFunc is Publish with the payload built under the topic lock, so a
// higher sequence never carries older state than a lower one.
func (b *Broadcaster) PublishFunc(topic string, build func() interface{}) models.MBroadcastMessage {
	st := b.state(topic)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.seq++
	msg := models.MBroadcastMessage{
		Topic:       topic,
		Sequence:    st.seq,
		Payload:     build(),
		PublishedAt: b.clock.Now(),
	}

	delivered := 0
	for _, s := range b.registry.Subscribers(topic) {
		if s.Enqueue(msg) {
			delivered++
		}
	}
	b.metrics.Published(topic)
	b.Logger.Debug("Published %s #%d to %d session(s)", topic, msg.Sequence, delivered)
	return msg
}

// Sequence is the last sequence assigned on topic, 0 if none.
func (b *Broadcaster) Sequence(topic string) uint64 {
	st := b.state(topic)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.seq
}

// -----------------------------------------------------------------------------

// Resync sends the current state of topic to one session. It carries the
// topic's current sequence so the receiver can realign its gap detection.
func (b *Broadcaster) Resync(s *Session, topic string, payload interface{}) models.MBroadcastMessage {
	st := b.state(topic)
	st.mu.Lock()
	defer st.mu.Unlock()

	msg := models.MBroadcastMessage{
		Topic:       topic,
		Sequence:    st.seq,
		Payload:     payload,
		PublishedAt: b.clock.Now(),
		Resync:      true,
	}
	s.Enqueue(msg)
	return msg
}

// Reply sends an unsequenced direct message, such as a command error or a
// chart status, to one session.
func (b *Broadcaster) Reply(s *Session, topic string, payload interface{}) {
	s.Enqueue(models.MBroadcastMessage{
		Topic:       topic,
		Payload:     payload,
		PublishedAt: b.clock.Now(),
	})
}
