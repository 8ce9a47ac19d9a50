package models

import "time"

// MHistoryPoint is one observation of an instrument, kept for charting.
type MHistoryPoint struct {
	InstrumentID string    `json:"instrument_id"`
	Value        float64   `json:"value"`
	ObservedAt   time.Time `json:"observed_at"`
}
