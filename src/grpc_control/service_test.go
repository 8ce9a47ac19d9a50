package grpc_control_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	jc "github.com/juju/testing/checkers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	gc "gopkg.in/check.v1"

	"market-pulse/src/cache"
	"market-pulse/src/config"
	datasource "market-pulse/src/data_source"
	control "market-pulse/src/grpc_control"
	"market-pulse/src/helpers"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/scheduler"
)

type fakeScheduler struct {
	mu     sync.Mutex
	forced []string
}

func (f *fakeScheduler) ForceRefresh(id string) error {
	if id != "stocks" && id != "news" {
		return fmt.Errorf("%w: %s", helpers.ErrUnknownSource, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, id)
	return nil
}

func (f *fakeScheduler) Sources() []scheduler.SourceInfo {
	return []scheduler.SourceInfo{
		{ID: "news", Kind: models.KindNews, Interval: 15 * time.Minute},
		{ID: "stocks", Kind: models.KindStocks, Interval: 5 * time.Second},
	}
}

// -----------------------------------------------------------------------------

type controlSuite struct {
	sched      *fakeScheduler
	cache      *cache.Cache
	configPath string
	srv        *grpc.Server
	conn       *grpc.ClientConn
	client     control.ControlClient
	ctx        context.Context
	cancel     context.CancelFunc
}

var _ = gc.Suite(&controlSuite{})

func (s *controlSuite) SetUpTest(c *gc.C) {
	log := logger.NewLogger(nil, "ControlTest")
	cfg := &config.Config{MConfig: &models.MConfig{
		Name: "market-pulse",
		Sources: []models.MSourceConfig{
			{Name: "stocks", Kind: "stocks", Provider: "simulated", IntervalSeconds: 5, Symbols: []string{"AAPL"}},
			{Name: "news", Kind: "news", Provider: "rss", IntervalSeconds: 900},
		},
	}}
	ds, err := datasource.BuildFromConfig(cfg.MConfig, nil, nil, log)
	c.Assert(err, jc.ErrorIsNil)

	s.sched = &fakeScheduler{}
	s.cache = cache.New(20)
	s.cache.Register("news", models.KindNews)
	s.cache.Register("stocks", models.KindStocks)
	s.configPath = filepath.Join(c.MkDir(), "config.yaml")

	lis := bufconn.Listen(1 << 20)
	s.srv = grpc.NewServer()
	control.RegisterControlServer(s.srv, control.NewControlService(cfg, s.configPath, ds, s.sched, s.cache, log))
	go s.srv.Serve(lis)

	s.conn, err = grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	c.Assert(err, jc.ErrorIsNil)
	s.client = control.NewControlClient(s.conn)
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *controlSuite) TearDownTest(c *gc.C) {
	s.cancel()
	s.conn.Close()
	s.srv.Stop()
}

// -----------------------------------------------------------------------------

func (s *controlSuite) TestListSources(c *gc.C) {
	s.cache.Replace(models.MSnapshot{
		SourceID:  "stocks",
		Kind:      models.KindStocks,
		FetchedAt: time.Unix(1710340200, 0),
		Status:    models.StatusOK,
		Payload:   models.QuotesPayload{"AAPL": {Price: 150}},
	})

	resp, err := s.client.ListSources(s.ctx, &control.Empty{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(resp.Sources, gc.HasLen, 2)
	c.Check(*resp.Sources[0], gc.Equals, control.SourceStatus{Name: "news", Kind: "news", Status: "unknown", IntervalSeconds: 900})
	c.Check(*resp.Sources[1], gc.Equals, control.SourceStatus{Name: "stocks", Kind: "stocks", Status: "ok", IntervalSeconds: 5, LastOkUnix: 1710340200})
}

func (s *controlSuite) TestForceRefresh(c *gc.C) {
	resp, err := s.client.ForceRefresh(s.ctx, &control.ForceRefreshRequest{SourceName: "news"})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(resp.Success, jc.IsTrue)
	c.Check(s.sched.forced, jc.DeepEquals, []string{"news"})
}

func (s *controlSuite) TestForceRefreshErrors(c *gc.C) {
	_, err := s.client.ForceRefresh(s.ctx, &control.ForceRefreshRequest{SourceName: "crypto"})
	c.Check(status.Code(err), gc.Equals, codes.NotFound)

	_, err = s.client.ForceRefresh(s.ctx, &control.ForceRefreshRequest{})
	c.Check(status.Code(err), gc.Equals, codes.InvalidArgument)
}

func (s *controlSuite) TestUpdateSymbolsPersists(c *gc.C) {
	resp, err := s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{SourceName: "stocks", Symbols: []string{"AAPL", "NVDA"}})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(resp.Success, jc.IsTrue)
	c.Check(resp.SymbolCount, gc.Equals, int32(2))
	c.Check(s.cache.IsTracked("NVDA"), jc.IsTrue)

	data, err := os.ReadFile(s.configPath)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(data), jc.Contains, "NVDA")
}

func (s *controlSuite) TestUpdateSymbolsRejected(c *gc.C) {
	resp, err := s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{SourceName: "news", Symbols: []string{"X"}})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(resp.Success, jc.IsFalse)
	c.Check(resp.Message, jc.Contains, "does not support symbol updates")

	_, err = s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{SourceName: "crypto", Symbols: []string{"X"}})
	c.Check(status.Code(err), gc.Equals, codes.NotFound)

	_, err = s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{SourceName: "stocks"})
	c.Check(status.Code(err), gc.Equals, codes.InvalidArgument)
}

func (s *controlSuite) TestUpdateSymbolsNormalises(c *gc.C) {
	resp, err := s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{
		SourceName: "stocks",
		Symbols:    []string{" nvda", "aapl", "NVDA", ""},
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(resp.SymbolCount, gc.Equals, int32(2))
	c.Check(s.cache.IsTracked("NVDA"), jc.IsTrue)
	c.Check(s.cache.IsTracked("nvda"), jc.IsFalse)

	loaded, err := config.NewConfig(s.configPath)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(loaded.Sources[0].Symbols, jc.DeepEquals, []string{"NVDA", "AAPL"})

	_, err = s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{SourceName: "stocks", Symbols: []string{" ", ""}})
	c.Check(status.Code(err), gc.Equals, codes.InvalidArgument)
}

func (s *controlSuite) TestConcurrentUpdateSymbols(c *gc.C) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sym := fmt.Sprintf("SYM%d", i)
			resp, err := s.client.UpdateSymbols(s.ctx, &control.UpdateSymbolsRequest{SourceName: "stocks", Symbols: []string{"AAPL", sym}})
			c.Check(err, jc.ErrorIsNil)
			c.Check(resp.Success, jc.IsTrue)
		}(i)
	}
	wg.Wait()

	loaded, err := config.NewConfig(s.configPath)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(loaded.Sources[0].Symbols, gc.HasLen, 2)
	c.Check(loaded.Sources[0].Symbols[0], gc.Equals, "AAPL")
}

func (s *controlSuite) TestSpeaksProtobuf(c *gc.C) {
	fd := control.FileDescriptor()
	reqDesc := fd.Messages().ByName("ForceRefreshRequest")
	respDesc := fd.Messages().ByName("SourceControlResponse")
	c.Assert(reqDesc, gc.NotNil)
	c.Assert(respDesc, gc.NotNil)

	req := dynamicpb.NewMessage(reqDesc)
	req.Set(reqDesc.Fields().ByName("source_name"), protoreflect.ValueOfString("news"))
	data, err := proto.Marshal(req)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(data, jc.DeepEquals, []byte{0x0a, 0x04, 'n', 'e', 'w', 's'})

	resp := dynamicpb.NewMessage(respDesc)
	err = s.conn.Invoke(s.ctx, control.Control_ForceRefresh_FullMethodName, req, resp)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(resp.Get(respDesc.Fields().ByName("success")).Bool(), jc.IsTrue)
	c.Check(s.sched.forced, jc.DeepEquals, []string{"news"})
}

func (s *controlSuite) TestServiceDescriptor(c *gc.C) {
	svc := control.FileDescriptor().Services().ByName("Control")
	c.Assert(svc, gc.NotNil)
	c.Check(string(svc.FullName()), gc.Equals, control.Control_ServiceDesc.ServiceName)

	var methods []string
	for i := 0; i < svc.Methods().Len(); i++ {
		m := svc.Methods().Get(i)
		methods = append(methods, "/"+string(svc.FullName())+"/"+string(m.Name()))
	}
	c.Check(methods, jc.DeepEquals, []string{
		control.Control_ListSources_FullMethodName,
		control.Control_ForceRefresh_FullMethodName,
		control.Control_UpdateSymbols_FullMethodName,
	})
}
