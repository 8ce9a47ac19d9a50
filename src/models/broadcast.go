package models

import "time"

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

const (
	TopicDataUpdate = "data_update"
	TopicNewsUpdate = "news_update"
	TopicError      = "error"

	// Direct replies to one session, never fanned out.
	TopicChartStatus = "chart_status"

	InstrumentTopicPrefix = "instrument:"
)

// InstrumentTopic is the subscription key for one selected instrument.
func InstrumentTopic(instrumentID string) string {
	return InstrumentTopicPrefix + instrumentID
}

// DefaultTopics are subscribed on connect.
var DefaultTopics = []string{TopicDataUpdate, TopicNewsUpdate, TopicError}

// -----------------------------------------------------------------------------

// MBroadcastMessage is what a session's outbound queue carries.
// Sequence is strictly increasing per topic, starting at 1. Resync replies
// carry the topic's current sequence without advancing it.
type MBroadcastMessage struct {
	Topic       string      `json:"topic"`
	Sequence    uint64      `json:"sequence"`
	Payload     interface{} `json:"payload"`
	PublishedAt time.Time   `json:"published_at"`
	Resync      bool        `json:"resync,omitempty"`
}

// -----------------------------------------------------------------------------
// Payload shapes for the push channel
// -----------------------------------------------------------------------------

type MDataUpdate struct {
	Stocks  QuotesPayload  `json:"stocks"`
	Weather WeatherPayload `json:"weather"`
}

type MErrorEvent struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

type MInstrumentUpdate struct {
	InstrumentID string    `json:"instrument_id"`
	Value        float64   `json:"value"`
	ObservedAt   time.Time `json:"observed_at"`
}
