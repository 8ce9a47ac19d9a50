package utils

import (
	"sync"
	"time"

	"market-pulse/src/logger"
)

// MarketHours gates quote fetches on whether any tracked exchange is open.
type MarketHours struct {
	Calendars map[string]*TradingCalendar // keyed by MIC
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketHours(symbols []string, l *logger.Logger) *MarketHours {
	mh := &MarketHours{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	mh.SetSymbols(symbols)
	return mh
}

// -----------------------------------------------------------------------------

// SetSymbols replaces the tracked exchanges with those of symbols.
func (mh *MarketHours) SetSymbols(symbols []string) {
	cals := make(map[string]*TradingCalendar)
	for _, symbol := range symbols {
		mic := MICForSymbol(symbol)
		if _, ok := cals[mic]; ok {
			continue
		}
		cals[mic] = GetCalendar(symbol)
	}

	mh.mu.Lock()
	mh.Calendars = cals
	mh.mu.Unlock()

	if mh.Logger != nil {
		mh.Logger.Info("Mapped %d symbols to %d exchange calendars", len(symbols), len(cals))
	}
}

// -----------------------------------------------------------------------------

// Active reports whether any tracked market is open at now.
func (mh *MarketHours) Active(now time.Time) bool {
	mh.mu.RLock()
	defer mh.mu.RUnlock()

	for _, cal := range mh.Calendars {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
