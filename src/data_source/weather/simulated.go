package weather

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"market-pulse/src/models"
)

var simulatedConditions = []struct {
	description string
	icon        string
}{
	{"clear sky", "01d"},
	{"few clouds", "02d"},
	{"scattered clouds", "03d"},
	{"light rain", "10d"},
	{"mist", "50d"},
}

// SimulatedSource drifts temperature and humidity for offline runs.
type SimulatedSource struct {
	SourceConfig models.MSourceConfig

	mu      sync.Mutex
	rng     *rand.Rand
	reports map[string]models.MWeather
}

func NewSimulatedSource(sourceCfg models.MSourceConfig) *SimulatedSource {
	seed := sourceCfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &SimulatedSource{
		SourceConfig: sourceCfg,
		rng:          rand.New(rand.NewSource(seed)),
		reports:      make(map[string]models.MWeather, len(sourceCfg.Symbols)),
	}
	for _, city := range sourceCfg.Symbols {
		cond := simulatedConditions[s.rng.Intn(len(simulatedConditions))]
		s.reports[city] = models.MWeather{
			Description: cond.description,
			Icon:        cond.icon,
			Temperature: round1(5 + s.rng.Float64()*25),
			Humidity:    math.Round(30 + s.rng.Float64()*60),
		}
	}
	return s
}

func (s *SimulatedSource) ID() string              { return s.SourceConfig.Name }
func (s *SimulatedSource) Kind() models.SourceKind { return models.KindWeather }

func (s *SimulatedSource) Fetch(ctx context.Context) (models.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(models.WeatherPayload, len(s.reports))
	for city, w := range s.reports {
		w.Temperature = round1(w.Temperature + (s.rng.Float64()*2 - 1))
		w.Humidity = math.Max(0, math.Min(100, math.Round(w.Humidity+(s.rng.Float64()*6-3))))
		if s.rng.Intn(10) == 0 {
			cond := simulatedConditions[s.rng.Intn(len(simulatedConditions))]
			w.Description, w.Icon = cond.description, cond.icon
		}
		s.reports[city] = w
		out[city] = w
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
