package models

// -----------------------------------------------------------------------------
// Client-originated control messages on the push channel
// -----------------------------------------------------------------------------

const (
	CommandRequestNewsUpdate = "request_news_update"
	CommandSelectInstrument  = "select_instrument"
	CommandSubscribe         = "subscribe"
	CommandUnsubscribe       = "unsubscribe"
	CommandResync            = "resync"
)

type MClientCommand struct {
	Type       string `json:"type"`
	Instrument string `json:"instrument,omitempty"`
	Topic      string `json:"topic,omitempty"`
}

type MChartStatus struct {
	InstrumentID string     `json:"instrument_id"`
	State        ChartState `json:"state"`
}
