package scheduler_test

import (
	"context"
	"errors"
	"time"

	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"market-pulse/src/helpers"
	"market-pulse/src/models"
	"market-pulse/src/scheduler"
	"market-pulse/src/scheduler/mocks"
)

type schedulerSuite struct {
	policy helpers.RetryPolicy
}

var _ = gc.Suite(&schedulerSuite{})

var quotes = models.QuotesPayload{"AAPL": {Price: 150}}

func (s *schedulerSuite) SetUpTest(c *gc.C) {
	s.policy = helpers.RetryPolicy{
		Attempts:       3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		AttemptTimeout: 200 * time.Millisecond,
	}
}

func (s *schedulerSuite) adapter(ctrl *gomock.Controller, id string, kind models.SourceKind) *mocks.MockISourceAdapter {
	a := mocks.NewMockISourceAdapter(ctrl)
	a.EXPECT().ID().Return(id).AnyTimes()
	a.EXPECT().Kind().Return(kind).AnyTimes()
	return a
}

func (s *schedulerSuite) start(c *gc.C, specs ...scheduler.SourceSpec) (*scheduler.Scheduler, func()) {
	sched, err := scheduler.New(specs, scheduler.Config{Policy: s.policy})
	c.Assert(err, jc.ErrorIsNil)

	ctx, cancel := context.WithCancel(context.Background())
	c.Assert(sched.Start(ctx), jc.ErrorIsNil)
	return sched, func() {
		cancel()
		sched.Wait()
	}
}

func next(c *gc.C, ch <-chan models.MSnapshot) models.MSnapshot {
	select {
	case snap := <-ch:
		return snap
	case <-time.After(5 * time.Second):
		c.Fatalf("timed out waiting for snapshot")
	}
	return models.MSnapshot{}
}

func (s *schedulerSuite) TestFirstFetchRunsImmediately(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "stocks", models.KindStocks)
	a.EXPECT().Fetch(gomock.Any()).Return(quotes, nil).Times(1)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	snap := next(c, sched.Updates()["stocks"])
	c.Check(snap.Status, gc.Equals, models.StatusOK)
	c.Check(snap.Kind, gc.Equals, models.KindStocks)
	c.Check(snap.Payload, jc.DeepEquals, quotes)
	c.Check(snap.Forced, jc.IsFalse)
	c.Check(snap.FetchedAt.IsZero(), jc.IsFalse)
}

func (s *schedulerSuite) TestRetryThenSuccess(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "stocks", models.KindStocks)
	gomock.InOrder(
		a.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("flaky")),
		a.EXPECT().Fetch(gomock.Any()).Return(quotes, nil),
	)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	ch := sched.Updates()["stocks"]
	degraded := next(c, ch)
	c.Check(degraded.Status, gc.Equals, models.StatusDegraded)
	c.Check(degraded.Error, gc.Equals, "fetch stocks failed: flaky")

	ok := next(c, ch)
	c.Check(ok.Status, gc.Equals, models.StatusOK)
	c.Check(ok.FetchedAt.Before(degraded.FetchedAt), jc.IsFalse)
}

func (s *schedulerSuite) TestExhaustedRetriesEmitOneError(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "weather", models.KindWeather)
	a.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("down")).Times(3)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	ch := sched.Updates()["weather"]
	var statuses []models.SnapshotStatus
	var last time.Time
	for i := 0; i < 3; i++ {
		snap := next(c, ch)
		statuses = append(statuses, snap.Status)
		c.Check(snap.FetchedAt.Before(last), jc.IsFalse)
		last = snap.FetchedAt
		if snap.Status == models.StatusError {
			c.Check(snap.Error, gc.Equals, "fetch weather failed: down")
			c.Check(snap.Payload, gc.IsNil)
		}
	}
	c.Check(statuses, jc.DeepEquals, []models.SnapshotStatus{
		models.StatusDegraded, models.StatusDegraded, models.StatusError,
	})
}

func (s *schedulerSuite) TestParseErrorIsNotRetried(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "stocks", models.KindStocks)
	a.EXPECT().Fetch(gomock.Any()).Return(models.QuotesPayload{"AAPL": {Price: -1}}, nil).Times(1)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	snap := next(c, sched.Updates()["stocks"])
	c.Check(snap.Status, gc.Equals, models.StatusError)
	c.Check(snap.Error, gc.Equals, "malformed payload from stocks: invalid price -1 for AAPL")
}

func (s *schedulerSuite) TestWrongPayloadKindIsParseError(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "news", models.KindNews)
	a.EXPECT().Fetch(gomock.Any()).Return(quotes, nil).Times(1)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	snap := next(c, sched.Updates()["news"])
	c.Check(snap.Status, gc.Equals, models.StatusError)
	c.Check(snap.Error, gc.Equals, "malformed payload from news: payload kind stocks, want news")
}

func (s *schedulerSuite) TestAttemptTimeout(c *gc.C) {
	s.policy.Attempts = 1
	s.policy.AttemptTimeout = 20 * time.Millisecond

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "news", models.KindNews)
	a.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) (models.Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}).Times(1)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	snap := next(c, sched.Updates()["news"])
	c.Check(snap.Status, gc.Equals, models.StatusError)
	c.Check(snap.Error, gc.Equals, "fetch news timed out: context deadline exceeded")
}

func (s *schedulerSuite) TestForceRefresh(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	items := models.NewsPayload{{Title: "a", Link: "http://a"}}
	a := s.adapter(ctrl, "news", models.KindNews)
	a.EXPECT().Fetch(gomock.Any()).Return(items, nil).Times(2)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()

	ch := sched.Updates()["news"]
	c.Check(next(c, ch).Forced, jc.IsFalse)

	c.Assert(sched.ForceRefresh("news"), jc.ErrorIsNil)
	forced := next(c, ch)
	c.Check(forced.Forced, jc.IsTrue)
	c.Check(forced.Status, gc.Equals, models.StatusOK)

	err := sched.ForceRefresh("crypto")
	c.Check(err, jc.ErrorIs, helpers.ErrUnknownSource)
}

func (s *schedulerSuite) TestForceRefreshRejectedOnceStopping(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	items := models.NewsPayload{{Title: "a", Link: "http://a"}}
	a := s.adapter(ctrl, "news", models.KindNews)
	a.EXPECT().Fetch(gomock.Any()).Return(items, nil).AnyTimes()

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	next(c, sched.Updates()["news"])

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := sched.ForceRefresh("news"); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	time.Sleep(10 * time.Millisecond)
	stop()
	<-done

	c.Check(sched.ForceRefresh("news"), gc.Equals, scheduler.ErrStopping)
}

func (s *schedulerSuite) TestConcurrentForcedRefreshesCoalesce(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	release := make(chan struct{})
	items := models.NewsPayload{{Title: "a", Link: "http://a"}}
	a := s.adapter(ctrl, "news", models.KindNews)
	gomock.InOrder(
		a.EXPECT().Fetch(gomock.Any()).Return(items, nil),
		a.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) (models.Payload, error) {
			<-release
			return items, nil
		}),
	)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()
	ch := sched.Updates()["news"]
	next(c, ch)

	c.Assert(sched.ForceRefresh("news"), jc.ErrorIsNil)
	time.Sleep(20 * time.Millisecond)
	c.Assert(sched.ForceRefresh("news"), jc.ErrorIsNil)
	c.Assert(sched.ForceRefresh("news"), jc.ErrorIsNil)
	time.Sleep(20 * time.Millisecond)
	close(release)

	c.Check(next(c, ch).Forced, jc.IsTrue)
	select {
	case snap := <-ch:
		c.Fatalf("unexpected extra snapshot %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *schedulerSuite) TestSlowSourceDoesNotDelayOthers(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	slow := s.adapter(ctrl, "weather", models.KindWeather)
	slow.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) (models.Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}).AnyTimes()

	fast := s.adapter(ctrl, "stocks", models.KindStocks)
	fast.EXPECT().Fetch(gomock.Any()).Return(quotes, nil).AnyTimes()

	sched, stop := s.start(c,
		scheduler.SourceSpec{Adapter: slow, Interval: time.Hour},
		scheduler.SourceSpec{Adapter: fast, Interval: 5 * time.Millisecond},
	)
	defer stop()

	ch := sched.Updates()["stocks"]
	deadline := time.After(150 * time.Millisecond)
	for i := 0; i < 5; i++ {
		select {
		case snap := <-ch:
			c.Check(snap.Status, gc.Equals, models.StatusOK)
		case <-deadline:
			c.Fatalf("fast source delivered only %d snapshot(s)", i)
		}
	}
}

type gatedAdapter struct {
	*mocks.MockISourceAdapter
}

func (gatedAdapter) Active(time.Time) bool { return false }

func (s *schedulerSuite) TestActiveWindowGatesScheduledTicksOnly(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "stocks", models.KindStocks)
	a.EXPECT().Fetch(gomock.Any()).Return(quotes, nil).Times(2)

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: gatedAdapter{a}, Interval: 2 * time.Millisecond})
	defer stop()

	ch := sched.Updates()["stocks"]
	c.Check(next(c, ch).Forced, jc.IsFalse)

	time.Sleep(30 * time.Millisecond)
	c.Assert(sched.ForceRefresh("stocks"), jc.ErrorIsNil)
	c.Check(next(c, ch).Forced, jc.IsTrue)
	time.Sleep(10 * time.Millisecond)
}

func (s *schedulerSuite) TestNewRejectsDuplicates(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "stocks", models.KindStocks)
	b := s.adapter(ctrl, "stocks", models.KindStocks)
	_, err := scheduler.New([]scheduler.SourceSpec{{Adapter: a, Interval: time.Second}, {Adapter: b, Interval: time.Second}}, scheduler.Config{})
	c.Check(err, gc.ErrorMatches, "duplicate source stocks")
}

func (s *schedulerSuite) TestSources(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	news := s.adapter(ctrl, "news", models.KindNews)
	stocks := s.adapter(ctrl, "stocks", models.KindStocks)
	sched, err := scheduler.New([]scheduler.SourceSpec{
		{Adapter: stocks, Interval: 5 * time.Second},
		{Adapter: news, Interval: 15 * time.Minute},
	}, scheduler.Config{})
	c.Assert(err, jc.ErrorIsNil)

	c.Check(sched.Sources(), jc.DeepEquals, []scheduler.SourceInfo{
		{ID: "news", Kind: models.KindNews, Interval: 15 * time.Minute},
		{ID: "stocks", Kind: models.KindStocks, Interval: 5 * time.Second},
	})
}

func (s *schedulerSuite) TestStartTwice(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	a := s.adapter(ctrl, "stocks", models.KindStocks)
	a.EXPECT().Fetch(gomock.Any()).Return(quotes, nil).AnyTimes()

	sched, stop := s.start(c, scheduler.SourceSpec{Adapter: a, Interval: time.Hour})
	defer stop()
	c.Check(sched.Start(context.Background()), gc.ErrorMatches, "scheduler already started")
}
