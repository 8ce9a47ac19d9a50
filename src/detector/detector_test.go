package detector_test

import (
	"time"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"market-pulse/src/detector"
	"market-pulse/src/models"
)

type detectorSuite struct{}

var _ = gc.Suite(&detectorSuite{})

var t0 = time.Date(2024, 3, 13, 14, 30, 0, 0, time.UTC)

func quotes(status models.SnapshotStatus, at time.Time, price, change float64) models.MSnapshot {
	return models.MSnapshot{
		SourceID:  "stocks",
		Kind:      models.KindStocks,
		Status:    status,
		FetchedAt: at,
		Payload:   models.QuotesPayload{"AAPL": {Price: price, Change: change}},
	}
}

func (s *detectorSuite) TestIdenticalPayloadSuppressedRegardlessOfTime(c *gc.C) {
	old := quotes(models.StatusOK, t0, 150, 0)
	new := quotes(models.StatusOK, t0.Add(time.Hour), 150, 0)

	d := detector.Evaluate(old, new)
	c.Check(d.Broadcast, jc.IsFalse)
	c.Check(d.Diagnostic, jc.IsFalse)
	c.Check(d.Reason, gc.Equals, detector.ReasonUnchanged)
}

func (s *detectorSuite) TestChangedPayloadBroadcast(c *gc.C) {
	d := detector.Evaluate(quotes(models.StatusOK, t0, 150, 0), quotes(models.StatusOK, t0, 151.25, 1.25))
	c.Check(d, gc.Equals, detector.Decision{Broadcast: true, Reason: detector.ReasonChanged})
}

func (s *detectorSuite) TestFirstPayloadBroadcast(c *gc.C) {
	old := models.UnknownSnapshot("stocks", models.KindStocks)
	d := detector.Evaluate(old, quotes(models.StatusOK, t0, 150, 0))
	c.Check(d.Broadcast, jc.IsTrue)
	c.Check(d.Reason, gc.Equals, detector.ReasonFirst)
}

func (s *detectorSuite) TestRecoveryAlwaysBroadcast(c *gc.C) {
	old := quotes(models.StatusError, t0, 150, 0)
	d := detector.Evaluate(old, quotes(models.StatusOK, t0.Add(time.Second), 150, 0))
	c.Check(d.Broadcast, jc.IsTrue)
	c.Check(d.Reason, gc.Equals, detector.ReasonRecovered)
}

func (s *detectorSuite) TestDiagnosticOncePerFailureRun(c *gc.C) {
	ok := quotes(models.StatusOK, t0, 150, 0)
	degraded := quotes(models.StatusDegraded, t0, 150, 0)
	failed := quotes(models.StatusError, t0, 150, 0)

	c.Check(detector.Evaluate(ok, degraded), gc.Equals, detector.Decision{Reason: detector.ReasonRetrying})
	c.Check(detector.Evaluate(degraded, failed).Diagnostic, jc.IsTrue)
	c.Check(detector.Evaluate(failed, failed), gc.Equals, detector.Decision{Reason: detector.ReasonFailing})
	c.Check(detector.Evaluate(failed, failed).Broadcast, jc.IsFalse)
}

func (s *detectorSuite) TestNeverBroadcastsIdenticalPayloads(c *gc.C) {
	statuses := []models.SnapshotStatus{models.StatusOK, models.StatusDegraded}
	for _, oldStatus := range statuses {
		for _, newStatus := range []models.SnapshotStatus{models.StatusOK, models.StatusDegraded, models.StatusError} {
			d := detector.Evaluate(quotes(oldStatus, t0, 150, 0), quotes(newStatus, t0.Add(time.Minute), 150, 0))
			c.Check(d.Broadcast, jc.IsFalse, gc.Commentf("%s -> %s", oldStatus, newStatus))
		}
	}
}

func (s *detectorSuite) TestNewsEquality(c *gc.C) {
	items := models.NewsPayload{{Title: "a", Link: "http://a"}, {Title: "b", Link: "http://b"}}
	reordered := models.NewsPayload{items[1], items[0]}
	old := models.MSnapshot{Kind: models.KindNews, Status: models.StatusOK, Payload: items}

	c.Check(detector.Evaluate(old, models.MSnapshot{Status: models.StatusOK, Payload: items}).Broadcast, jc.IsFalse)
	c.Check(detector.Evaluate(old, models.MSnapshot{Status: models.StatusOK, Payload: reordered}).Broadcast, jc.IsTrue)
}
