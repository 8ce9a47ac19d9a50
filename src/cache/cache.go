package cache

import (
	"sort"
	"sync"
	"sync/atomic"

	"market-pulse/src/models"
	"market-pulse/src/utils"
)

// -----------------------------------------------------------------------------
// Cache holds the last known snapshot per source and a bounded history ring
// per instrument. Snapshots are swapped copy-on-write through a per-source
// atomic pointer, so readers never wait on writers and sources never contend.
// -----------------------------------------------------------------------------

type Cache struct {
	snapshots sync.Map // sourceID -> *slot
	history   sync.Map // instrumentID -> *ring
	tracked   sync.Map // instrumentID -> struct{}

	historyCapacity int
}

type slot struct {
	ptr atomic.Pointer[models.MSnapshot]
}

type ring struct {
	mu  sync.RWMutex
	buf *utils.RingBuffer
}

// -----------------------------------------------------------------------------

func New(historyCapacity int) *Cache {
	if historyCapacity <= 0 {
		historyCapacity = 20
	}
	return &Cache{historyCapacity: historyCapacity}
}

// -----------------------------------------------------------------------------
// Snapshots
// -----------------------------------------------------------------------------

// Register declares a source so Get reports it as unknown before its first tick.
func (c *Cache) Register(sourceID string, kind models.SourceKind) {
	s := c.slotFor(sourceID)
	unknown := models.UnknownSnapshot(sourceID, kind)
	s.ptr.CompareAndSwap(nil, &unknown)
}

func (c *Cache) slotFor(sourceID string) *slot {
	if v, ok := c.snapshots.Load(sourceID); ok {
		return v.(*slot)
	}
	v, _ := c.snapshots.LoadOrStore(sourceID, &slot{})
	return v.(*slot)
}

// Get returns the current snapshot. It never blocks on an in-flight fetch.
func (c *Cache) Get(sourceID string) (models.MSnapshot, bool) {
	v, ok := c.snapshots.Load(sourceID)
	if !ok {
		return models.MSnapshot{}, false
	}
	cur := v.(*slot).ptr.Load()
	if cur == nil {
		return models.MSnapshot{}, false
	}
	return *cur, true
}

// ByKind returns the snapshot of the first registered source of kind, by id.
func (c *Cache) ByKind(kind models.SourceKind) (models.MSnapshot, bool) {
	for _, snap := range c.Sources() {
		if snap.Kind == kind {
			return snap, true
		}
	}
	return models.MSnapshot{}, false
}

// Sources lists every known snapshot ordered by source id.
func (c *Cache) Sources() []models.MSnapshot {
	var out []models.MSnapshot
	c.snapshots.Range(func(_, v interface{}) bool {
		if cur := v.(*slot).ptr.Load(); cur != nil {
			out = append(out, *cur)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// -----------------------------------------------------------------------------

// Replace merges a fetch result into the stored snapshot. A result whose
// FetchedAt is older than the stored one is discarded (applied=false). prev is
// the snapshot that was replaced, stored the one now visible to readers.
func (c *Cache) Replace(in models.MSnapshot) (prev, stored models.MSnapshot, applied bool) {
	s := c.slotFor(in.SourceID)
	for {
		cur := s.ptr.Load()
		base := models.UnknownSnapshot(in.SourceID, in.Kind)
		if cur != nil {
			base = *cur
			if in.FetchedAt.Before(cur.FetchedAt) {
				return base, base, false
			}
		}

		merged := merge(base, in)
		if s.ptr.CompareAndSwap(cur, &merged) {
			return base, merged, true
		}
	}
}

// merge never lets a failed result replace the last good payload.
func merge(base, in models.MSnapshot) models.MSnapshot {
	out := base
	out.SourceID = in.SourceID
	out.Kind = in.Kind
	out.FetchedAt = in.FetchedAt
	out.Forced = in.Forced

	switch in.Status {
	case models.StatusOK:
		if in.Payload == nil {
			return base
		}
		out.Payload = in.Payload.Reconcile(base.Payload)
		out.Status = models.StatusOK
		out.LastOKAt = in.FetchedAt
		out.Error = ""
		out.Failures = 0
	case models.StatusDegraded:
		// a retry inside a failure run keeps the error marker
		if base.Status != models.StatusError {
			out.Status = models.StatusDegraded
		}
		out.Error = in.Error
	case models.StatusError:
		out.Status = models.StatusError
		out.Error = in.Error
		out.Failures = base.Failures + 1
	default:
		return base
	}
	return out
}

// -----------------------------------------------------------------------------
// History
// -----------------------------------------------------------------------------

// TrackInstrument declares an instrument that will receive history, so an
// empty ring is distinguishable from an unknown instrument.
func (c *Cache) TrackInstrument(instrumentID string) {
	c.tracked.LoadOrStore(instrumentID, struct{}{})
}

// IsTracked reports whether the instrument was declared or has history.
func (c *Cache) IsTracked(instrumentID string) bool {
	if _, ok := c.tracked.Load(instrumentID); ok {
		return true
	}
	_, ok := c.history.Load(instrumentID)
	return ok
}

func (c *Cache) ringFor(instrumentID string) *ring {
	if v, ok := c.history.Load(instrumentID); ok {
		return v.(*ring)
	}
	v, _ := c.history.LoadOrStore(instrumentID, &ring{buf: utils.NewRingBuffer(c.historyCapacity)})
	return v.(*ring)
}

// AppendHistory pushes a point into the instrument's ring, evicting the oldest.
func (c *Cache) AppendHistory(instrumentID string, point models.MHistoryPoint) {
	point.InstrumentID = instrumentID
	r := c.ringFor(instrumentID)
	r.mu.Lock()
	r.buf.Append(point)
	r.mu.Unlock()
}

// History returns a copy of the ring, oldest first. ok is false when the
// instrument has never recorded a point.
func (c *Cache) History(instrumentID string) ([]models.MHistoryPoint, bool) {
	v, ok := c.history.Load(instrumentID)
	if !ok {
		return nil, false
	}
	r := v.(*ring)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.buf.Size() == 0 {
		return nil, false
	}
	return r.buf.GetAll(), true
}

// Instruments lists tracked instruments and those with history, sorted.
func (c *Cache) Instruments() []string {
	seen := make(map[string]struct{})
	collect := func(k, _ interface{}) bool {
		seen[k.(string)] = struct{}{}
		return true
	}
	c.tracked.Range(collect)
	c.history.Range(collect)

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
