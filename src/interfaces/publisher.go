package interfaces

import "market-pulse/src/models"

// -----------------------------------------------------------------------------
// IPublisher is the fan-out side consumed by the pipeline.
// -----------------------------------------------------------------------------

type IPublisher interface {

	// Publish assigns the topic's next sequence and delivers to subscribers.
	Publish(topic string, payload interface{}) models.MBroadcastMessage

	// PublishFunc evaluates build while holding the topic's sequence, for
	// payloads read from shared state.
	PublishFunc(topic string, build func() interface{}) models.MBroadcastMessage
}
