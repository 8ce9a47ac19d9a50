package utils_test

import (
	"time"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"market-pulse/src/models"
	"market-pulse/src/utils"
)

type ringSuite struct{}

var _ = gc.Suite(&ringSuite{})

var epoch = time.Date(2024, 3, 13, 14, 30, 0, 0, time.UTC)

func point(i int) models.MHistoryPoint {
	return models.MHistoryPoint{
		InstrumentID: "AAPL",
		Value:        float64(100 + i),
		ObservedAt:   epoch.Add(time.Duration(i) * time.Second),
	}
}

func values(points []models.MHistoryPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func (s *ringSuite) TestEvictsOldest(c *gc.C) {
	rb := utils.NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Append(point(i))
	}
	c.Check(rb.Size(), gc.Equals, 3)
	c.Check(rb.IsFull(), jc.IsTrue)
	c.Check(values(rb.GetAll()), jc.DeepEquals, []float64{102, 103, 104})
}

func (s *ringSuite) TestGetLatest(c *gc.C) {
	rb := utils.NewRingBuffer(5)
	c.Check(rb.GetLatest(2), gc.HasLen, 0)

	for i := 0; i < 4; i++ {
		rb.Append(point(i))
	}
	c.Check(values(rb.GetLatest(2)), jc.DeepEquals, []float64{102, 103})
	c.Check(values(rb.GetLatest(10)), jc.DeepEquals, []float64{100, 101, 102, 103})
	c.Check(rb.GetLatest(0), gc.HasLen, 0)
}

func (s *ringSuite) TestLastAndClear(c *gc.C) {
	rb := utils.NewRingBuffer(2)
	_, ok := rb.Last()
	c.Check(ok, jc.IsFalse)

	rb.Append(point(1))
	rb.Append(point(2))
	rb.Append(point(3))
	last, ok := rb.Last()
	c.Assert(ok, jc.IsTrue)
	c.Check(last.Value, gc.Equals, 103.0)

	rb.Clear()
	c.Check(rb.Size(), gc.Equals, 0)
	c.Check(rb.IsFull(), jc.IsFalse)
	c.Check(rb.GetAll(), gc.HasLen, 0)
}

func (s *ringSuite) TestDefaultCapacity(c *gc.C) {
	c.Check(utils.NewRingBuffer(0).Capacity(), gc.Equals, 20)
}

func (s *ringSuite) TestResultIsCopy(c *gc.C) {
	rb := utils.NewRingBuffer(2)
	rb.Append(point(1))
	got := rb.GetAll()
	got[0].Value = -1
	c.Check(values(rb.GetAll()), jc.DeepEquals, []float64{101})
}
