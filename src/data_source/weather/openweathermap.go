package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherMapSource reads current conditions per city in metric units.
type OpenWeatherMapSource struct {
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger
	BaseURL      string
}

// -----------------------------------------------------------------------------

func NewOpenWeatherMapSource(sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager) *OpenWeatherMapSource {
	s := &OpenWeatherMapSource{
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       logger.NewLogger(nil, "OpenWeatherMap-"+sourceCfg.Name),
		BaseURL:      openWeatherURL,
	}
	if sourceCfg.URL != "" {
		s.BaseURL = sourceCfg.URL
	}
	return s
}

func (s *OpenWeatherMapSource) ID() string              { return s.SourceConfig.Name }
func (s *OpenWeatherMapSource) Kind() models.SourceKind { return models.KindWeather }

// -----------------------------------------------------------------------------

// Fetch queries every city. Cities that fail are left out of the payload.
func (s *OpenWeatherMapSource) Fetch(ctx context.Context) (models.Payload, error) {
	cities := s.SourceConfig.Symbols
	if s.SourceConfig.APIKey == "" {
		return nil, fmt.Errorf("openweathermap api key not configured")
	}

	results := make(models.WeatherPayload, len(cities))
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

	for _, city := range cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			report, err := s.fetchCity(ctx, city)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Warning("Error fetching weather for %s: %v", city, err)
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[city] = report
		}(city)
	}
	wg.Wait()

	if len(results) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("no cities configured")
		}
		return nil, firstErr
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (s *OpenWeatherMapSource) fetchCity(ctx context.Context, city string) (models.MWeather, error) {
	params := map[string]string{
		"q":     city,
		"appid": s.SourceConfig.APIKey,
		"units": "metric",
	}
	body, err := s.Network.Get(ctx, s.BaseURL, params)
	if err != nil {
		return models.MWeather{}, err
	}
	return ParseCurrentWeather(s.ID(), city, body)
}

// -----------------------------------------------------------------------------

type currentWeatherResponse struct {
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// ParseCurrentWeather decodes one /data/2.5/weather response.
func ParseCurrentWeather(sourceID, city string, data []byte) (models.MWeather, error) {
	var resp currentWeatherResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.MWeather{}, helpers.NewParseError(sourceID, fmt.Errorf("%s: %w", city, err))
	}
	if resp.Main == nil || len(resp.Weather) == 0 {
		return models.MWeather{}, helpers.NewParseError(sourceID, fmt.Errorf("%s: missing main or weather block", city))
	}
	return models.MWeather{
		Description: resp.Weather[0].Description,
		Icon:        resp.Weather[0].Icon,
		Temperature: resp.Main.Temp,
		Humidity:    resp.Main.Humidity,
	}, nil
}
