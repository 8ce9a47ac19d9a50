package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/models"

	"github.com/gin-gonic/gin"
)

const (
	headerSourceStatus = "X-Source-Status"
	headerFetchedAt    = "X-Fetched-At"
)

// -----------------------------------------------------------------------------
// Query endpoints
// -----------------------------------------------------------------------------

// snapshotHeaders tags a query response with the freshness of its source.
func snapshotHeaders(c *gin.Context, snap models.MSnapshot, found bool) {
	status := models.StatusUnknown
	if found {
		status = snap.Status
	}
	c.Header(headerSourceStatus, string(status))
	if found && !snap.FetchedAt.IsZero() {
		c.Header(headerFetchedAt, snap.FetchedAt.UTC().Format(time.RFC3339))
	}
}

func (s *APIServer) getStocks(c *gin.Context) {
	snap, found := s.Cache.ByKind(models.KindStocks)
	snapshotHeaders(c, snap, found)

	out, ok := snap.Payload.(models.QuotesPayload)
	if !ok {
		out = models.QuotesPayload{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *APIServer) getWeather(c *gin.Context) {
	snap, found := s.Cache.ByKind(models.KindWeather)
	snapshotHeaders(c, snap, found)

	out, ok := snap.Payload.(models.WeatherPayload)
	if !ok {
		out = models.WeatherPayload{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *APIServer) getNews(c *gin.Context) {
	snap, found := s.Cache.ByKind(models.KindNews)
	snapshotHeaders(c, snap, found)

	out, ok := snap.Payload.(models.NewsPayload)
	if !ok {
		out = models.NewsPayload{}
	}
	c.JSON(http.StatusOK, out)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getChart(c *gin.Context) {
	req := models.MChartRequest{
		InstrumentID: strings.ToUpper(c.Param("symbol")),
		Window:       c.Query("window"),
	}

	resp, err := s.Charts.RenderChart(req)
	switch {
	case errors.Is(err, helpers.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Symbol not found"})
	case errors.Is(err, helpers.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.Logger.Error("Chart for %s failed: %v", req.InstrumentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	case resp.State == models.ChartPending:
		c.JSON(http.StatusAccepted, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// -----------------------------------------------------------------------------

type sourceStatus struct {
	ID              string                `json:"id"`
	Kind            models.SourceKind     `json:"kind"`
	Status          models.SnapshotStatus `json:"status"`
	FetchedAt       *time.Time            `json:"fetched_at,omitempty"`
	LastOKAt        *time.Time            `json:"last_ok_at,omitempty"`
	Error           string                `json:"error,omitempty"`
	Failures        int                   `json:"failures"`
	IntervalSeconds float64               `json:"interval_seconds"`
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func (s *APIServer) sourceStatuses() []sourceStatus {
	var out []sourceStatus
	for _, info := range s.Refresher.Sources() {
		st := sourceStatus{
			ID:              info.ID,
			Kind:            info.Kind,
			Status:          models.StatusUnknown,
			IntervalSeconds: info.Interval.Seconds(),
		}
		if snap, ok := s.Cache.Get(info.ID); ok {
			st.Status = snap.Status
			st.FetchedAt = timeOrNil(snap.FetchedAt)
			st.LastOKAt = timeOrNil(snap.LastOKAt)
			st.Error = snap.Error
			st.Failures = snap.Failures
		}
		out = append(out, st)
	}
	return out
}

func (s *APIServer) getSources(c *gin.Context) {
	c.JSON(http.StatusOK, s.sourceStatuses())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	sources := make(map[string]models.SnapshotStatus)
	for _, st := range s.sourceStatuses() {
		sources[st.ID] = st.Status
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.Registry.Count(),
		"sources":     sources,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	intervals := make(map[string]float64)
	for _, info := range s.Refresher.Sources() {
		intervals[info.ID] = info.Interval.Seconds()
	}
	c.JSON(http.StatusOK, gin.H{
		"name":              s.Config.Name,
		"intervals_seconds": intervals,
		"history_capacity":  s.Config.History.Capacity,
		"instruments":       s.Cache.Instruments(),
	})
}
