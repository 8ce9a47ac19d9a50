package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/utils"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s"

type YahooFinanceSource struct {
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger
	MarketHours  *utils.MarketHours

	BaseURL string // format string with one %s for the symbol
	symbols atomic.Value
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager) *YahooFinanceSource {
	s := &YahooFinanceSource{
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       logger.NewLogger(nil, "YahooFinanceSource-"+sourceCfg.Name),
		MarketHours:  utils.NewMarketHours(sourceCfg.Symbols, logger.NewLogger(nil, "MarketHours-"+sourceCfg.Name)),
		BaseURL:      yahooChartURL,
	}
	if sourceCfg.URL != "" {
		s.BaseURL = sourceCfg.URL
	}
	s.symbols.Store(sourceCfg.Symbols)
	return s
}

func (s *YahooFinanceSource) ID() string              { return s.SourceConfig.Name }
func (s *YahooFinanceSource) Kind() models.SourceKind { return models.KindStocks }

// -----------------------------------------------------------------------------

// Active skips scheduled ticks while every tracked exchange is closed, when
// the source is configured for market hours only.
func (s *YahooFinanceSource) Active(now time.Time) bool {
	if !s.SourceConfig.MarketHoursOnly {
		return true
	}
	return s.MarketHours.Active(now)
}

// UpdateSymbols swaps the tracked symbol list.
func (s *YahooFinanceSource) UpdateSymbols(symbols []string) {
	s.symbols.Store(symbols)
	s.MarketHours.SetSymbols(symbols)
	s.Logger.Info("Updated symbol list. New count: %d", len(symbols))
}

func (s *YahooFinanceSource) getSymbols() []string {
	return s.symbols.Load().([]string)
}

// -----------------------------------------------------------------------------

// Fetch queries every symbol concurrently. A partial result is returned as
// long as one symbol succeeded; the cache carries the others forward.
func (s *YahooFinanceSource) Fetch(ctx context.Context) (models.Payload, error) {
	symbols := s.getSymbols()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}

	results := make(models.QuotesPayload)
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)

	limit := s.SourceConfig.Concurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			quote, err := s.fetchSymbol(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Warning("Error fetching symbol %s: %v", sym, err)
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[sym] = quote
		}(symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && len(results) == 0 {
		return nil, err
	}
	if len(results) == 0 {
		if firstErr == nil {
			firstErr = fmt.Errorf("no quotes returned")
		}
		return nil, fmt.Errorf("all %d symbols failed: %w", len(symbols), firstErr)
	}

	s.Logger.Debug("Fetched %d/%d symbols", len(results), len(symbols))
	return results, nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) fetchSymbol(ctx context.Context, symbol string) (models.MQuote, error) {
	params := map[string]string{
		"interval":       "1m",
		"range":          "1d",
		"includePrePost": "false",
	}

	body, err := s.Network.Get(ctx, fmt.Sprintf(s.BaseURL, symbol), params)
	if err != nil {
		return models.MQuote{}, fmt.Errorf("network error for %s: %w", symbol, err)
	}
	return ParseChartResponse(s.ID(), symbol, body)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"` // Use pointers to handle null
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// ParseChartResponse reduces a chart response to the latest close and its
// change against the previous valid close (or the previous session close).
func ParseChartResponse(sourceID, symbol string, data []byte) (models.MQuote, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.MQuote{}, helpers.NewParseError(sourceID, fmt.Errorf("%s: %w", symbol, err))
	}

	if resp.Chart.Error != nil {
		return models.MQuote{}, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return models.MQuote{}, helpers.NewParseError(sourceID, fmt.Errorf("no result in response for %s", symbol))
	}

	result := resp.Chart.Result[0]
	meta := result.Meta

	type point struct {
		ts    int64
		close float64
	}
	var points []point
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		if len(closes) != len(result.Timestamp) {
			return models.MQuote{}, helpers.NewParseError(sourceID, fmt.Errorf("data alignment error for %s", symbol))
		}
		for i, ts := range result.Timestamp {
			if closes[i] == nil || *closes[i] <= 0 {
				continue
			}
			points = append(points, point{ts: ts, close: *closes[i]})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ts < points[j].ts })

	var price, prev float64
	switch {
	case len(points) >= 2:
		price, prev = points[len(points)-1].close, points[len(points)-2].close
	case len(points) == 1:
		price, prev = points[0].close, meta.ChartPreviousClose
	case meta.RegularMarketPrice > 0:
		price, prev = meta.RegularMarketPrice, meta.ChartPreviousClose
	default:
		return models.MQuote{}, helpers.NewParseError(sourceID, fmt.Errorf("no valid price for %s", symbol))
	}

	change := 0.0
	if prev > 0 {
		change = price - prev
	}
	return models.MQuote{Price: price, Change: change}, nil
}
