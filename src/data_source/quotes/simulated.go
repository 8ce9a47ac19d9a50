package quotes

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"market-pulse/src/logger"
	"market-pulse/src/models"

	"github.com/shopspring/decimal"
)

// SimulatedSource produces a random walk of at most one percent per tick,
// starting each symbol somewhere between 100 and 1000.
type SimulatedSource struct {
	SourceConfig models.MSourceConfig
	Logger       *logger.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]decimal.Decimal
}

// -----------------------------------------------------------------------------

func NewSimulatedSource(sourceCfg models.MSourceConfig) *SimulatedSource {
	seed := sourceCfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &SimulatedSource{
		SourceConfig: sourceCfg,
		Logger:       logger.NewLogger(nil, "SimulatedQuotes-"+sourceCfg.Name),
		rng:          rand.New(rand.NewSource(seed)),
		prices:       make(map[string]decimal.Decimal, len(sourceCfg.Symbols)),
	}
	for _, sym := range sourceCfg.Symbols {
		start := 100 + s.rng.Float64()*900
		s.prices[sym] = decimal.NewFromFloat(start).Round(2)
	}
	return s
}

func (s *SimulatedSource) ID() string              { return s.SourceConfig.Name }
func (s *SimulatedSource) Kind() models.SourceKind { return models.KindStocks }

// -----------------------------------------------------------------------------

func (s *SimulatedSource) Fetch(ctx context.Context) (models.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(models.QuotesPayload, len(s.prices))
	for _, sym := range s.SourceConfig.Symbols {
		old := s.prices[sym]
		step := decimal.NewFromFloat(1 + (s.rng.Float64()*2-1)*0.01)
		price := old.Mul(step).Round(2)
		if price.LessThanOrEqual(decimal.Zero) {
			price = decimal.New(1, -2)
		}
		s.prices[sym] = price
		out[sym] = models.MQuote{
			Price:  price.InexactFloat64(),
			Change: price.Sub(old).InexactFloat64(),
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// UpdateSymbols swaps the symbol list. Known symbols keep walking from their
// last price, new ones get a fresh start price.
func (s *SimulatedSource) UpdateSymbols(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		if p, ok := s.prices[sym]; ok {
			prices[sym] = p
			continue
		}
		prices[sym] = decimal.NewFromFloat(100 + s.rng.Float64()*900).Round(2)
	}
	s.prices = prices
	s.SourceConfig.Symbols = append([]string(nil), symbols...)
	s.Logger.Info("Updated symbol list. New count: %d", len(symbols))
}
