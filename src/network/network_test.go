package network_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/network"
)

type networkSuite struct {
	cfg *models.MConfig
}

var _ = gc.Suite(&networkSuite{})

func (s *networkSuite) SetUpTest(c *gc.C) {
	s.cfg = &models.MConfig{}
	s.cfg.Network.RequestTimeout = 5
	s.cfg.Network.UserAgent = "pulse-test/1.0"
}

func (s *networkSuite) TestGetSendsParamsAndAgent(c *gc.C) {
	var gotAgent, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		gotQuery = r.URL.Query().Get("symbols")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	nm := network.NewNetworkManager(s.cfg, logger.NewLogger(nil, "Network"))
	body, err := nm.Get(context.Background(), srv.URL+"/quote?region=US", map[string]string{"symbols": "AAPL,MSFT"})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(body), gc.Equals, `{"ok":true}`)
	c.Check(gotAgent, gc.Equals, "pulse-test/1.0")
	c.Check(gotQuery, gc.Equals, "AAPL,MSFT")
}

func (s *networkSuite) TestBadStatus(c *gc.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	nm := network.NewNetworkManager(s.cfg, logger.NewLogger(nil, "Network"))
	_, err := nm.Get(context.Background(), srv.URL, nil)
	c.Check(err, gc.ErrorMatches, "bad status: 502")
}

func (s *networkSuite) TestBlockedStatus(c *gc.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	nm := network.NewNetworkManager(s.cfg, logger.NewLogger(nil, "Network"))
	_, err := nm.Get(context.Background(), srv.URL, nil)
	c.Check(err, gc.ErrorMatches, `blocked \(status 429\)`)
}

func (s *networkSuite) TestCancelledContext(c *gc.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	nm := network.NewNetworkManager(s.cfg, logger.NewLogger(nil, "Network"))
	_, err := nm.Get(ctx, srv.URL, nil)
	c.Assert(err, gc.NotNil)
	c.Check(strings.Contains(err.Error(), "context canceled"), jc.IsTrue)
}
