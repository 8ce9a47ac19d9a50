package core

// -----------------------------------------------------------------------------

// OHLC summarises a run of prices.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// ComputeOHLC calculates open/high/low/close from prices in time order.
func ComputeOHLC(prices []float64) OHLC {
	if len(prices) == 0 {
		return OHLC{}
	}
	low, high := CalculateMinMax(prices)
	return OHLC{
		Open:  prices[0],
		High:  high,
		Low:   low,
		Close: prices[len(prices)-1],
	}
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates fractional change (0.01 == 1%).
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}
