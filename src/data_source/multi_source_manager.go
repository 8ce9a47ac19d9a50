package datasource

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"market-pulse/src/data_source/news"
	"market-pulse/src/data_source/quotes"
	"market-pulse/src/data_source/weather"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	"github.com/juju/clock"
)

// Entry is one configured source: its adapter plus the refresh interval.
type Entry struct {
	Adapter  interfaces.ISourceAdapter
	Interval time.Duration
	Config   models.MSourceConfig
}

// MultiSourceManager owns the adapters built from configuration.
type MultiSourceManager struct {
	Sources map[string]Entry
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(log *logger.Logger) *MultiSourceManager {
	return &MultiSourceManager{
		Sources: make(map[string]Entry),
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// BuildFromConfig instantiates one adapter per configured source.
func BuildFromConfig(cfg *models.MConfig, netMgr interfaces.INetworkManager, clk clock.Clock, log *logger.Logger) (*MultiSourceManager, error) {
	m := NewMultiSourceManager(log)
	for _, sc := range cfg.Sources {
		adapter, err := NewAdapter(sc, netMgr, clk)
		if err != nil {
			return nil, err
		}
		if err := m.AddSource(adapter, sc); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewAdapter picks the implementation for a source's kind and provider.
func NewAdapter(sc models.MSourceConfig, netMgr interfaces.INetworkManager, clk clock.Clock) (interfaces.ISourceAdapter, error) {
	switch models.SourceKind(sc.Kind) {
	case models.KindStocks:
		switch sc.Provider {
		case "simulated":
			return quotes.NewSimulatedSource(sc), nil
		case "yahoo":
			return quotes.NewYahooFinanceSource(sc, netMgr), nil
		}
	case models.KindWeather:
		switch sc.Provider {
		case "simulated":
			return weather.NewSimulatedSource(sc), nil
		case "openweathermap":
			return weather.NewOpenWeatherMapSource(sc, netMgr), nil
		}
	case models.KindNews:
		if sc.Provider == "rss" {
			return news.NewRSSSource(sc, netMgr, clk), nil
		}
	}
	return nil, fmt.Errorf("source %s: unsupported provider %q for kind %q", sc.Name, sc.Provider, sc.Kind)
}

// -----------------------------------------------------------------------------

// AddSource registers an adapter under its id.
func (m *MultiSourceManager) AddSource(adapter interfaces.ISourceAdapter, sc models.MSourceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := adapter.ID()
	if _, exists := m.Sources[id]; exists {
		return fmt.Errorf("source %s already exists", id)
	}

	m.Sources[id] = Entry{
		Adapter:  adapter,
		Interval: time.Duration(sc.IntervalSeconds) * time.Second,
		Config:   sc,
	}
	m.Logger.Info("Added source: %s (%s/%s every %ds)", id, sc.Kind, sc.Provider, sc.IntervalSeconds)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by id
func (m *MultiSourceManager) GetSource(id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.Sources[id]
	if !exists {
		return Entry{}, fmt.Errorf("source %s not found", id)
	}
	return entry, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns every entry ordered by id
func (m *MultiSourceManager) GetAllSources() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]Entry, 0, len(m.Sources))
	for _, e := range m.Sources {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Adapter.ID() < list[j].Adapter.ID() })
	return list
}

// Instruments lists every symbol configured on stocks sources.
func (m *MultiSourceManager) Instruments() []string {
	var out []string
	for _, e := range m.GetAllSources() {
		if e.Adapter.Kind() == models.KindStocks {
			out = append(out, e.Config.Symbols...)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// UpdateSymbols changes a running source's symbol list. Only adapters that
// implement ISymbolUpdater support it.
func (m *MultiSourceManager) UpdateSymbols(id string, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.Sources[id]
	if !exists {
		return fmt.Errorf("source %s not found", id)
	}
	updater, ok := entry.Adapter.(interfaces.ISymbolUpdater)
	if !ok {
		return fmt.Errorf("source %s does not support symbol updates", id)
	}

	updater.UpdateSymbols(symbols)
	entry.Config.Symbols = append([]string(nil), symbols...)
	m.Sources[id] = entry
	m.Logger.Info("Source %s now tracks %d symbol(s)", id, len(symbols))
	return nil
}
