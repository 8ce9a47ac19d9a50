package pipeline

import (
	"context"
	"sort"
	"sync"

	"market-pulse/src/cache"
	"market-pulse/src/detector"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// Pipeline consumes the scheduler's per-source update channels, merges each
// result into the cache, asks the detector whether it is worth pushing and
// publishes the matching topic. Each source has its own consumer, so a burst
// on one channel never delays another.
// -----------------------------------------------------------------------------

type Pipeline struct {
	Cache     *cache.Cache
	Publisher interfaces.IPublisher
	Archive   interfaces.IHistoryArchive // optional
	Metrics   *metrics.Collector
	Logger    *logger.Logger

	archiveQueue chan []models.MHistoryPoint
	wg           sync.WaitGroup
	archiveWg    sync.WaitGroup
	startOnce    sync.Once
}

// -----------------------------------------------------------------------------

func New(c *cache.Cache, pub interfaces.IPublisher, archive interfaces.IHistoryArchive, m *metrics.Collector) *Pipeline {
	return &Pipeline{
		Cache:        c,
		Publisher:    pub,
		Archive:      archive,
		Metrics:      m,
		Logger:       logger.NewLogger(nil, "Pipeline"),
		archiveQueue: make(chan []models.MHistoryPoint, 64),
	}
}

// -----------------------------------------------------------------------------

// Run starts one consumer per channel. Consumers stop when ctx is done; Wait
// blocks until they and the archive writer have drained.
func (p *Pipeline) Run(ctx context.Context, updates map[string]<-chan models.MSnapshot) {
	p.startOnce.Do(func() {
		if p.Archive != nil {
			p.archiveWg.Add(1)
			go p.archiveLoop()
		}
	})

	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ch := updates[id]
		p.wg.Add(1)
		go func(id string, ch <-chan models.MSnapshot) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-ch:
					if !ok {
						p.Logger.Info("Update channel for %s closed", id)
						return
					}
					p.Handle(snap)
				}
			}
		}(id, ch)
	}
	p.Logger.Info("Consuming %d source channel(s)", len(ids))
}

// Wait blocks until every consumer has returned, then flushes the archive.
func (p *Pipeline) Wait() {
	p.wg.Wait()
	if p.Archive != nil {
		close(p.archiveQueue)
		p.archiveWg.Wait()
	}
}

// -----------------------------------------------------------------------------

// Handle applies one scheduler result. It returns the detector's decision,
// or an empty decision when the result was stale.
func (p *Pipeline) Handle(snap models.MSnapshot) detector.Decision {
	prev, stored, applied := p.Cache.Replace(snap)
	if !applied {
		p.Metrics.Stale(snap.SourceID)
		p.Logger.Debug("Discarded stale result for %s fetched at %s", snap.SourceID, snap.FetchedAt)
		// the cache already holds something newer, answer the request with it
		if snap.Forced && snap.Kind == models.KindNews && snap.Status != models.StatusDegraded {
			p.publishNews()
		}
		return detector.Decision{}
	}
	p.Metrics.Snapshot(stored.SourceID, stored.Status)

	decision := detector.Evaluate(prev, stored)

	if stored.Kind == models.KindStocks && snap.Status == models.StatusOK {
		p.recordHistory(snap, stored)
	}

	if decision.Diagnostic {
		p.Logger.Warning("Source %s entered a failure run: %s", stored.SourceID, stored.Error)
		p.Publisher.Publish(models.TopicError, models.MErrorEvent{
			SourceID: stored.SourceID,
			Message:  stored.Error,
		})
	}

	switch stored.Kind {
	case models.KindStocks, models.KindWeather:
		if decision.Broadcast {
			p.Publisher.PublishFunc(models.TopicDataUpdate, func() interface{} { return p.DataUpdate() })
		} else if stored.Status == models.StatusOK {
			p.Metrics.Suppressed(stored.SourceID)
		}
	case models.KindNews:
		// a forced refresh was asked for by a client, it always gets an answer
		switch {
		case decision.Broadcast || (snap.Forced && stored.Status == models.StatusOK):
			p.publishNews()
		case snap.Forced && stored.Status == models.StatusError && !decision.Diagnostic:
			p.Publisher.Publish(models.TopicError, models.MErrorEvent{
				SourceID: stored.SourceID,
				Message:  stored.Error,
			})
		case stored.Status == models.StatusOK:
			p.Metrics.Suppressed(stored.SourceID)
		}
	}

	p.Logger.Debug("%s: status=%s reason=%s", stored.SourceID, stored.Status, decision.Reason)
	return decision
}

func (p *Pipeline) publishNews() {
	p.Publisher.PublishFunc(models.TopicNewsUpdate, func() interface{} { return p.News() })
}

// -----------------------------------------------------------------------------

// recordHistory appends one point per freshly fetched symbol, using the
// reconciled quote the cache now holds.
func (p *Pipeline) recordHistory(in, stored models.MSnapshot) {
	fresh, ok := in.Payload.(models.QuotesPayload)
	if !ok {
		return
	}
	quotes, ok := stored.Payload.(models.QuotesPayload)
	if !ok {
		return
	}

	symbols := make([]string, 0, len(fresh))
	for sym := range fresh {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	batch := make([]models.MHistoryPoint, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			continue
		}
		point := models.MHistoryPoint{InstrumentID: sym, Value: q.Price, ObservedAt: stored.FetchedAt}
		p.Cache.AppendHistory(sym, point)
		p.Publisher.Publish(models.InstrumentTopic(sym), models.MInstrumentUpdate{
			InstrumentID: sym,
			Value:        point.Value,
			ObservedAt:   point.ObservedAt,
		})
		batch = append(batch, point)
	}

	if p.Archive != nil && len(batch) > 0 {
		select {
		case p.archiveQueue <- batch:
		default:
			p.Logger.Warning("Archive queue full, dropping %d point(s)", len(batch))
		}
	}
}

func (p *Pipeline) archiveLoop() {
	defer p.archiveWg.Done()
	for batch := range p.archiveQueue {
		if err := p.Archive.SaveHistoryPoints(batch); err != nil {
			p.Logger.Error("Failed to archive %d point(s): %v", len(batch), err)
		}
	}
}

// -----------------------------------------------------------------------------

// DataUpdate builds the composite stocks and weather payload from the cache.
// Missing sections are empty, never null.
func (p *Pipeline) DataUpdate() models.MDataUpdate {
	out := models.MDataUpdate{
		Stocks:  models.QuotesPayload{},
		Weather: models.WeatherPayload{},
	}
	if snap, ok := p.Cache.ByKind(models.KindStocks); ok {
		if q, ok := snap.Payload.(models.QuotesPayload); ok {
			out.Stocks = q
		}
	}
	if snap, ok := p.Cache.ByKind(models.KindWeather); ok {
		if w, ok := snap.Payload.(models.WeatherPayload); ok {
			out.Weather = w
		}
	}
	return out
}

// News returns the cached headlines, empty before the first good fetch.
func (p *Pipeline) News() models.NewsPayload {
	if snap, ok := p.Cache.ByKind(models.KindNews); ok {
		if n, ok := snap.Payload.(models.NewsPayload); ok {
			return n
		}
	}
	return models.NewsPayload{}
}

// -----------------------------------------------------------------------------

// WarmHistory seeds each instrument's ring from the archive, newest limit
// points, so charts survive a restart.
func (p *Pipeline) WarmHistory(instruments []string, limit int) {
	if p.Archive == nil {
		return
	}
	for _, id := range instruments {
		points, err := p.Archive.LoadRecentHistory(id, limit)
		if err != nil {
			p.Logger.Error("Failed to load history for %s: %v", id, err)
			continue
		}
		for _, pt := range points {
			p.Cache.AppendHistory(id, pt)
		}
		if len(points) > 0 {
			p.Logger.Info("Warmed %s with %d point(s)", id, len(points))
		}
	}
}
