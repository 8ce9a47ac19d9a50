package chart

import (
	"fmt"
	"time"

	"market-pulse/src/analysis"
	"market-pulse/src/analysis/core"
	"market-pulse/src/helpers"
	"market-pulse/src/models"

	"github.com/shopspring/decimal"
)

const (
	labelLayout = "15:04:05"

	colorUp   = "#16a34a"
	colorDown = "#dc2626"
	colorFlat = "#6b7280"
)

// HistoryReader is the read side of the aggregation cache.
type HistoryReader interface {
	History(instrumentID string) ([]models.MHistoryPoint, bool)
	IsTracked(instrumentID string) bool
}

// -----------------------------------------------------------------------------
// Service renders chart payloads from the history ring. It holds no state of
// its own and never writes to the cache: the same ring contents always yield
// the same response.
// -----------------------------------------------------------------------------

type Service struct {
	history HistoryReader
}

func NewService(history HistoryReader) *Service {
	return &Service{history: history}
}

// -----------------------------------------------------------------------------

// RenderChart returns NotFound for an instrument that has never been tracked,
// and a pending response for a tracked one whose ring is still empty.
func (s *Service) RenderChart(req models.MChartRequest) (models.MChartResponse, error) {
	var window time.Duration
	if req.Window != "" {
		d, err := time.ParseDuration(req.Window)
		if err != nil || d < time.Second {
			return models.MChartResponse{}, fmt.Errorf("%w: window %q", helpers.ErrInvalidRequest, req.Window)
		}
		window = d
	}

	points, ok := s.history.History(req.InstrumentID)
	if !ok {
		if s.history.IsTracked(req.InstrumentID) {
			return models.MChartResponse{
				InstrumentID: req.InstrumentID,
				State:        models.ChartPending,
				Series:       []models.MChartPoint{},
			}, nil
		}
		return models.MChartResponse{}, helpers.NewNotFoundError("instrument " + req.InstrumentID)
	}

	series := make([]models.MChartPoint, len(points))
	values := make([]float64, len(points))
	stamps := make([]int64, len(points))
	for i, p := range points {
		series[i] = models.MChartPoint{MHistoryPoint: p, Label: p.ObservedAt.UTC().Format(labelLayout)}
		values[i] = p.Value
		stamps[i] = p.ObservedAt.Unix()
	}

	resp := models.MChartResponse{
		InstrumentID: req.InstrumentID,
		State:        models.ChartReady,
		Series:       series,
		RenderHints:  renderHints(req.InstrumentID, values),
	}
	if window > 0 {
		resp.Candles = candles(stamps, values, int64(window/time.Second))
		resp.RenderHints.ChartType = "candlestick"
	}
	return resp, nil
}

// -----------------------------------------------------------------------------

func renderHints(instrumentID string, values []float64) *models.MRenderHints {
	lo, hi := core.CalculateMinMax(values)
	mean, std := core.CalculateMeanStd(values)
	first, last := values[0], values[len(values)-1]

	change := decimal.NewFromFloat(last).Sub(decimal.NewFromFloat(first)).Round(2)
	pct := decimal.NewFromFloat(core.CalculateChangePercent(last, first) * 100).Round(2)

	trend, color := "flat", colorFlat
	switch change.Sign() {
	case 1:
		trend, color = "up", colorUp
	case -1:
		trend, color = "down", colorDown
	}

	return &models.MRenderHints{
		Title:     instrumentID + " Price History",
		ChartType: "line",
		XField:    "time",
		YField:    "price",
		Min:       lo,
		Max:       hi,
		First:     first,
		Last:      last,
		Change:    change.InexactFloat64(),
		ChangePct: pct.InexactFloat64(),
		Mean:      decimal.NewFromFloat(mean).Round(4).InexactFloat64(),
		StdDev:    decimal.NewFromFloat(std).Round(4).InexactFloat64(),
		Trend:     trend,
		Color:     color,
	}
}

// candles aggregates values into OHLC bars over aligned windows.
func candles(stamps []int64, values []float64, windowSeconds int64) []models.MCandle {
	windows := analysis.ResampleIndices(stamps, windowSeconds)
	out := make([]models.MCandle, 0, len(windows))
	for i, prices := range analysis.ResampleData(stamps, values, windowSeconds) {
		ohlc := core.ComputeOHLC(prices)
		out = append(out, models.MCandle{
			Open:      ohlc.Open,
			High:      ohlc.High,
			Low:       ohlc.Low,
			Close:     ohlc.Close,
			StartTime: windows[i].StartTime,
			EndTime:   windows[i].EndTime,
			Points:    len(prices),
		})
	}
	return out
}
