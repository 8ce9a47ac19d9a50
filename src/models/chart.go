package models

// -----------------------------------------------------------------------------
// Chart query shapes
// -----------------------------------------------------------------------------

type ChartState string

const (
	ChartReady    ChartState = "ready"
	ChartPending  ChartState = "pending"
	ChartNotFound ChartState = "not_found"
)

type MChartRequest struct {
	InstrumentID string `json:"instrument_id"`
	// Window is an optional Go duration ("1m", "5m") for candle aggregation.
	Window string `json:"window,omitempty"`
}

type MChartPoint struct {
	MHistoryPoint
	Label string `json:"time"`
}

type MCandle struct {
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	StartTime int64   `json:"start_time"`
	EndTime   int64   `json:"end_time"`
	Points    int     `json:"data_points"`
}

type MRenderHints struct {
	Title     string  `json:"title"`
	ChartType string  `json:"chart_type"`
	XField    string  `json:"x_field"`
	YField    string  `json:"y_field"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	First     float64 `json:"first"`
	Last      float64 `json:"last"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Trend     string  `json:"trend"`
	Color     string  `json:"color"`
}

type MChartResponse struct {
	InstrumentID string        `json:"instrument_id"`
	State        ChartState    `json:"state"`
	Series       []MChartPoint `json:"series"`
	Candles      []MCandle     `json:"candles,omitempty"`
	RenderHints  *MRenderHints `json:"render_hints,omitempty"`
}
