package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"market-pulse/src/broadcast"
	"market-pulse/src/cache"
	"market-pulse/src/chart"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/models"
	"market-pulse/src/pipeline"
	"market-pulse/src/scheduler"
	"market-pulse/src/server"
)

var t0 = time.Date(2024, 3, 13, 14, 30, 0, 0, time.UTC)

type fakeRefresher struct {
	mu     sync.Mutex
	forced []string
}

func (f *fakeRefresher) ForceRefresh(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, id)
	return nil
}

func (f *fakeRefresher) Forced() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forced...)
}

func (f *fakeRefresher) Sources() []scheduler.SourceInfo {
	return []scheduler.SourceInfo{
		{ID: "news", Kind: models.KindNews, Interval: 15 * time.Minute},
		{ID: "stocks", Kind: models.KindStocks, Interval: 5 * time.Second},
		{ID: "weather", Kind: models.KindWeather, Interval: 10 * time.Minute},
	}
}

// -----------------------------------------------------------------------------

type serverSuite struct {
	cache       *cache.Cache
	registry    *broadcast.Registry
	broadcaster *broadcast.Broadcaster
	pipe        *pipeline.Pipeline
	refresher   *fakeRefresher
	ts          *httptest.Server
}

var _ = gc.Suite(&serverSuite{})

func (s *serverSuite) SetUpTest(c *gc.C) {
	m := metrics.NewMetricsCollector()
	s.cache = cache.New(20)
	for _, info := range (&fakeRefresher{}).Sources() {
		s.cache.Register(info.ID, info.Kind)
	}
	s.registry = broadcast.NewRegistry(32, nil, m)
	s.broadcaster = broadcast.NewBroadcaster(s.registry, nil, m)
	s.pipe = pipeline.New(s.cache, s.broadcaster, nil, m)
	s.refresher = &fakeRefresher{}

	cfg := &models.MConfig{Name: "market-pulse", Host: "127.0.0.1", Port: 5000, History: models.MHistoryConfig{Capacity: 20}}
	srv := server.NewAPIServer(cfg, logger.NewLogger(nil, "ServerTest"), server.Deps{
		Cache:       s.cache,
		Charts:      chart.NewService(s.cache),
		Registry:    s.registry,
		Broadcaster: s.broadcaster,
		Refresher:   s.refresher,
		State:       s.pipe,
		Metrics:     m,
	})
	s.ts = httptest.NewServer(srv.Handler())
}

func (s *serverSuite) TearDownTest(c *gc.C) {
	s.registry.UnregisterAll()
	s.ts.Close()
}

func (s *serverSuite) get(c *gc.C, path string) (*http.Response, []byte) {
	resp, err := http.Get(s.ts.URL + path)
	c.Assert(err, jc.ErrorIsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, jc.ErrorIsNil)
	return resp, body
}

func (s *serverSuite) handleQuotes(at time.Duration, price float64) {
	s.pipe.Handle(models.MSnapshot{
		SourceID:  "stocks",
		Kind:      models.KindStocks,
		FetchedAt: t0.Add(at),
		Status:    models.StatusOK,
		Payload:   models.QuotesPayload{"AAPL": {Price: price}},
	})
}

// -----------------------------------------------------------------------------

func (s *serverSuite) TestStocksBeforeFirstFetch(c *gc.C) {
	resp, body := s.get(c, "/api/stocks")
	c.Check(resp.StatusCode, gc.Equals, http.StatusOK)
	c.Check(resp.Header.Get("X-Source-Status"), gc.Equals, "unknown")
	c.Check(resp.Header.Get("X-Fetched-At"), gc.Equals, "")
	c.Check(string(body), gc.Equals, "{}")
}

func (s *serverSuite) TestStocksServeCachedQuotes(c *gc.C) {
	s.handleQuotes(0, 150)
	s.handleQuotes(time.Second, 151.25)

	resp, body := s.get(c, "/api/stocks")
	c.Check(resp.StatusCode, gc.Equals, http.StatusOK)
	c.Check(resp.Header.Get("X-Source-Status"), gc.Equals, "ok")
	c.Check(resp.Header.Get("X-Fetched-At"), gc.Equals, "2024-03-13T14:30:01Z")

	var quotes models.QuotesPayload
	c.Assert(json.Unmarshal(body, &quotes), jc.ErrorIsNil)
	c.Check(quotes, jc.DeepEquals, models.QuotesPayload{"AAPL": {Price: 151.25, Change: 1.25}})
}

func (s *serverSuite) TestWeatherKeepsLastGoodOnError(c *gc.C) {
	good := models.WeatherPayload{"London": {Description: "rain", Icon: "10d", Temperature: 11, Humidity: 80}}
	s.pipe.Handle(models.MSnapshot{SourceID: "weather", Kind: models.KindWeather, FetchedAt: t0, Status: models.StatusOK, Payload: good})
	s.pipe.Handle(models.MSnapshot{SourceID: "weather", Kind: models.KindWeather, FetchedAt: t0.Add(time.Minute), Status: models.StatusError, Error: "down"})

	resp, body := s.get(c, "/api/weather")
	c.Check(resp.Header.Get("X-Source-Status"), gc.Equals, "error")

	var weather models.WeatherPayload
	c.Assert(json.Unmarshal(body, &weather), jc.ErrorIsNil)
	c.Check(weather, jc.DeepEquals, good)
}

func (s *serverSuite) TestNewsIsOrderedList(c *gc.C) {
	news := models.NewsPayload{
		{Title: "first", Link: "https://example.com/1", Time: "2024-03-13 14:00:00"},
		{Title: "second", Link: "https://example.com/2", Time: "2024-03-13 13:00:00"},
	}
	s.pipe.Handle(models.MSnapshot{SourceID: "news", Kind: models.KindNews, FetchedAt: t0, Status: models.StatusOK, Payload: news})

	_, body := s.get(c, "/api/news")
	var got models.NewsPayload
	c.Assert(json.Unmarshal(body, &got), jc.ErrorIsNil)
	c.Check(got, jc.DeepEquals, news)
}

func (s *serverSuite) TestChartNotFound(c *gc.C) {
	resp, body := s.get(c, "/api/chart/stock/ZZZ")
	c.Check(resp.StatusCode, gc.Equals, http.StatusNotFound)
	c.Check(string(body), gc.Equals, `{"error":"Symbol not found"}`)
}

func (s *serverSuite) TestChartPendingThenReady(c *gc.C) {
	s.cache.TrackInstrument("AAPL")
	resp, _ := s.get(c, "/api/chart/stock/AAPL")
	c.Check(resp.StatusCode, gc.Equals, http.StatusAccepted)

	s.handleQuotes(0, 150)
	s.handleQuotes(time.Second, 151)
	resp, body := s.get(c, "/api/chart/stock/aapl?window=1m")
	c.Check(resp.StatusCode, gc.Equals, http.StatusOK)

	var chart models.MChartResponse
	c.Assert(json.Unmarshal(body, &chart), jc.ErrorIsNil)
	c.Check(chart.State, gc.Equals, models.ChartReady)
	c.Check(chart.Series, gc.HasLen, 2)
	c.Check(chart.Candles, gc.HasLen, 1)
	c.Check(chart.RenderHints.Title, gc.Equals, "AAPL Price History")
}

func (s *serverSuite) TestChartBadWindow(c *gc.C) {
	s.handleQuotes(0, 150)
	resp, _ := s.get(c, "/api/chart/stock/AAPL?window=soon")
	c.Check(resp.StatusCode, gc.Equals, http.StatusBadRequest)
}

func (s *serverSuite) TestSourcesAndHealth(c *gc.C) {
	s.handleQuotes(0, 150)

	_, body := s.get(c, "/api/sources")
	var sources []map[string]interface{}
	c.Assert(json.Unmarshal(body, &sources), jc.ErrorIsNil)
	c.Assert(sources, gc.HasLen, 3)
	c.Check(sources[1]["id"], gc.Equals, "stocks")
	c.Check(sources[1]["status"], gc.Equals, "ok")
	c.Check(sources[1]["interval_seconds"], gc.Equals, 5.0)
	c.Check(sources[0]["status"], gc.Equals, "unknown")

	_, body = s.get(c, "/api/health")
	var health struct {
		Status      string            `json:"status"`
		Connections int               `json:"connections"`
		Sources     map[string]string `json:"sources"`
	}
	c.Assert(json.Unmarshal(body, &health), jc.ErrorIsNil)
	c.Check(health.Status, gc.Equals, "ok")
	c.Check(health.Connections, gc.Equals, 0)
	c.Check(health.Sources["stocks"], gc.Equals, "ok")
}

func (s *serverSuite) TestConfig(c *gc.C) {
	_, body := s.get(c, "/api/config")
	var cfg struct {
		Intervals map[string]float64 `json:"intervals_seconds"`
	}
	c.Assert(json.Unmarshal(body, &cfg), jc.ErrorIsNil)
	c.Check(cfg.Intervals, jc.DeepEquals, map[string]float64{"news": 900, "stocks": 5, "weather": 600})
}

func (s *serverSuite) TestMetricsEndpoint(c *gc.C) {
	s.handleQuotes(0, 150)
	resp, body := s.get(c, "/metrics")
	c.Check(resp.StatusCode, gc.Equals, http.StatusOK)
	c.Check(string(body), jc.Contains, "market_pulse_snapshots_total")
}

// -----------------------------------------------------------------------------
// Push channel
// -----------------------------------------------------------------------------

type wireMessage struct {
	Topic    string          `json:"topic"`
	Sequence uint64          `json:"sequence"`
	Payload  json.RawMessage `json:"payload"`
	Resync   bool            `json:"resync"`
}

func (s *serverSuite) dial(c *gc.C) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	c.Assert(err, jc.ErrorIsNil)
	return conn
}

func read(c *gc.C, conn *websocket.Conn) wireMessage {
	c.Assert(conn.SetReadDeadline(time.Now().Add(5*time.Second)), jc.ErrorIsNil)
	var msg wireMessage
	c.Assert(conn.ReadJSON(&msg), jc.ErrorIsNil)
	return msg
}

func send(c *gc.C, conn *websocket.Conn, raw string) {
	c.Assert(conn.WriteMessage(websocket.TextMessage, []byte(raw)), jc.ErrorIsNil)
}

func (s *serverSuite) waitSessions(c *gc.C, n int) {
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		if s.registry.Count() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.Fatalf("expected %d session(s), have %d", n, s.registry.Count())
}

func (s *serverSuite) TestConnectSendsResync(c *gc.C) {
	s.handleQuotes(0, 150)

	conn := s.dial(c)
	defer conn.Close()

	first := read(c, conn)
	c.Check(first.Topic, gc.Equals, models.TopicDataUpdate)
	c.Check(first.Resync, jc.IsTrue)
	c.Check(first.Sequence, gc.Equals, uint64(1))

	var update models.MDataUpdate
	c.Assert(json.Unmarshal(first.Payload, &update), jc.ErrorIsNil)
	c.Check(update.Stocks["AAPL"].Price, gc.Equals, 150.0)

	second := read(c, conn)
	c.Check(second.Topic, gc.Equals, models.TopicNewsUpdate)
	c.Check(second.Resync, jc.IsTrue)
	c.Check(second.Sequence, gc.Equals, uint64(0))
	c.Check(string(second.Payload), gc.Equals, "[]")

	s.waitSessions(c, 1)
	s.handleQuotes(time.Second, 151)
	live := read(c, conn)
	c.Check(live.Topic, gc.Equals, models.TopicDataUpdate)
	c.Check(live.Resync, jc.IsFalse)
	c.Check(live.Sequence, gc.Equals, uint64(2))
}

func (s *serverSuite) TestRequestNewsUpdate(c *gc.C) {
	conn := s.dial(c)
	defer conn.Close()
	read(c, conn)
	read(c, conn)

	send(c, conn, `{"type":"request_news_update"}`)
	send(c, conn, `{"type":"resync"}`)
	c.Check(read(c, conn).Topic, gc.Equals, models.TopicDataUpdate)
	c.Check(s.refresher.Forced(), jc.DeepEquals, []string{"news"})
}

func (s *serverSuite) TestSelectInstrument(c *gc.C) {
	s.handleQuotes(0, 150)
	s.cache.TrackInstrument("MSFT")

	conn := s.dial(c)
	defer conn.Close()
	read(c, conn)
	read(c, conn)

	send(c, conn, `{"type":"select_instrument","instrument":"msft"}`)
	msg := read(c, conn)
	c.Check(msg.Topic, gc.Equals, models.TopicChartStatus)
	c.Check(msg.Sequence, gc.Equals, uint64(0))
	var status models.MChartStatus
	c.Assert(json.Unmarshal(msg.Payload, &status), jc.ErrorIsNil)
	c.Check(status, gc.Equals, models.MChartStatus{InstrumentID: "MSFT", State: models.ChartPending})

	send(c, conn, `{"type":"select_instrument","instrument":"AAPL"}`)
	msg = read(c, conn)
	c.Assert(json.Unmarshal(msg.Payload, &status), jc.ErrorIsNil)
	c.Check(status.State, gc.Equals, models.ChartReady)

	send(c, conn, `{"type":"select_instrument","instrument":"ZZZ"}`)
	msg = read(c, conn)
	c.Assert(json.Unmarshal(msg.Payload, &status), jc.ErrorIsNil)
	c.Check(status.State, gc.Equals, models.ChartNotFound)

	sessions := s.registry.Subscribers(models.InstrumentTopic("ZZZ"))
	c.Assert(sessions, gc.HasLen, 1)
	c.Check(s.registry.Subscriptions(sessions[0].ID), jc.SameContents, []string{
		models.TopicDataUpdate, models.TopicNewsUpdate, models.TopicError, models.InstrumentTopic("ZZZ"),
	})
}

func (s *serverSuite) TestMalformedCommandKeepsChannelOpen(c *gc.C) {
	conn := s.dial(c)
	defer conn.Close()
	read(c, conn)
	read(c, conn)

	send(c, conn, `{not json`)
	msg := read(c, conn)
	c.Check(msg.Topic, gc.Equals, models.TopicError)
	c.Check(string(msg.Payload), jc.Contains, "malformed command")

	send(c, conn, `{"type":"dance"}`)
	msg = read(c, conn)
	c.Check(msg.Topic, gc.Equals, models.TopicError)
	c.Check(string(msg.Payload), jc.Contains, `unknown command \"dance\"`)

	send(c, conn, `{"type":"resync"}`)
	c.Check(read(c, conn).Topic, gc.Equals, models.TopicDataUpdate)
}

func (s *serverSuite) TestDisconnectUnregisters(c *gc.C) {
	conn := s.dial(c)
	read(c, conn)
	s.waitSessions(c, 1)

	conn.Close()
	s.waitSessions(c, 0)
}
