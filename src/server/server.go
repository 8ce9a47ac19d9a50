package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"market-pulse/src/broadcast"
	"market-pulse/src/cache"
	"market-pulse/src/chart"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/models"
	"market-pulse/src/scheduler"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Collaborators
// -----------------------------------------------------------------------------

// Refresher is the scheduler surface the server needs.
type Refresher interface {
	ForceRefresh(sourceID string) error
	Sources() []scheduler.SourceInfo
}

// StateView builds the push payloads from the cache.
type StateView interface {
	DataUpdate() models.MDataUpdate
	News() models.NewsPayload
}

type Deps struct {
	Cache       *cache.Cache
	Charts      *chart.Service
	Registry    *broadcast.Registry
	Broadcaster *broadcast.Broadcaster
	Refresher   Refresher
	State       StateView
	Metrics     *metrics.Collector
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Deps

	engine *gin.Engine
	http   *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, log *logger.Logger, deps Deps) *APIServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config: cfg,
		Logger: log,
		Deps:   deps,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())

	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", headerSourceStatus+", "+headerFetchedAt)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/stocks", s.getStocks)
	api.GET("/weather", s.getWeather)
	api.GET("/news", s.getNews)
	api.GET("/chart/stock/:symbol", s.getChart)
	api.GET("/sources", s.getSources)
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)

	if s.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, tests serve it through httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop drains in-flight requests. Open push channels are closed by
// unregistering their sessions.
func (s *APIServer) Stop(ctx context.Context) error {
	s.Registry.UnregisterAll()
	return s.http.Shutdown(ctx)
}
