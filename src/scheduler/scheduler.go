package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/models"

	"github.com/juju/clock"
	"golang.org/x/sync/singleflight"
)

// -----------------------------------------------------------------------------

// SourceSpec is one source to refresh and how often.
type SourceSpec struct {
	Adapter  interfaces.ISourceAdapter
	Interval time.Duration
}

// SourceInfo describes a scheduled source.
type SourceInfo struct {
	ID       string            `json:"id"`
	Kind     models.SourceKind `json:"kind"`
	Interval time.Duration     `json:"interval"`
}

// Config carries the scheduler's collaborators.
type Config struct {
	Policy     helpers.RetryPolicy
	Clock      clock.Clock
	Metrics    *metrics.Collector
	BufferSize int // per-source update channel capacity
}

type runner struct {
	adapter  interfaces.ISourceAdapter
	interval time.Duration
	out      chan models.MSnapshot
	logger   *logger.Logger
}

// -----------------------------------------------------------------------------
// Scheduler runs one independent timer per source. Each tick fetches through
// the adapter with a bounded per-attempt timeout and exponential backoff, and
// emits the outcome on that source's update channel. Sources never share a
// goroutine, so one slow or failing source cannot delay another.
// -----------------------------------------------------------------------------

type Scheduler struct {
	runners map[string]*runner
	order   []string

	policy  helpers.RetryPolicy
	clock   clock.Clock
	metrics *metrics.Collector
	Logger  *logger.Logger

	forced singleflight.Group

	mu       sync.Mutex
	ctx      context.Context
	started  bool
	stopping bool
	wg       sync.WaitGroup
}

// ErrStopping is returned by ForceRefresh once Wait has been called.
var ErrStopping = errors.New("scheduler stopping")

// -----------------------------------------------------------------------------

func New(specs []SourceSpec, cfg Config) (*Scheduler, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	s := &Scheduler{
		runners: make(map[string]*runner, len(specs)),
		policy:  cfg.Policy,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
		Logger:  logger.NewLogger(nil, "Scheduler"),
		ctx:     context.Background(),
	}

	for _, spec := range specs {
		id := spec.Adapter.ID()
		if _, dup := s.runners[id]; dup {
			return nil, fmt.Errorf("duplicate source %s", id)
		}
		if spec.Interval <= 0 {
			return nil, fmt.Errorf("source %s: interval must be positive", id)
		}
		s.runners[id] = &runner{
			adapter:  spec.Adapter,
			interval: spec.Interval,
			out:      make(chan models.MSnapshot, cfg.BufferSize),
			logger:   s.Logger.Named(id),
		}
		s.order = append(s.order, id)
	}
	sort.Strings(s.order)
	return s, nil
}

// -----------------------------------------------------------------------------

// Updates exposes one channel per source id. Channels are never closed.
func (s *Scheduler) Updates() map[string]<-chan models.MSnapshot {
	out := make(map[string]<-chan models.MSnapshot, len(s.runners))
	for id, r := range s.runners {
		out[id] = r.out
	}
	return out
}

// Sources lists the scheduled sources ordered by id.
func (s *Scheduler) Sources() []SourceInfo {
	out := make([]SourceInfo, 0, len(s.order))
	for _, id := range s.order {
		r := s.runners[id]
		out = append(out, SourceInfo{ID: id, Kind: r.adapter.Kind(), Interval: r.interval})
	}
	return out
}

// -----------------------------------------------------------------------------

// Start launches every source loop. Each runs its first fetch immediately.
// Loops stop when ctx is cancelled; Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	s.started = true
	s.ctx = ctx

	for _, id := range s.order {
		r := s.runners[id]
		s.wg.Add(1)
		go s.loop(ctx, r)
	}
	s.Logger.Info("Started %d source loop(s)", len(s.order))
	return nil
}

// Wait blocks until every loop and forced refresh has returned. No forced
// refresh is accepted after it is called.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	s.wg.Wait()
}

// -----------------------------------------------------------------------------

func (s *Scheduler) loop(ctx context.Context, r *runner) {
	defer s.wg.Done()

	s.run(ctx, r, false)

	timer := s.clock.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			if w, ok := r.adapter.(interfaces.IActiveWindow); ok && !w.Active(s.clock.Now()) {
				r.logger.Debug("Outside active window, skipping tick")
			} else {
				s.run(ctx, r, false)
			}
			timer.Reset(r.interval)
		}
	}
}

// -----------------------------------------------------------------------------

// ForceRefresh runs one fetch now, outside the timer schedule. Concurrent
// requests for the same source share a single fetch.
func (s *Scheduler) ForceRefresh(sourceID string) error {
	r, ok := s.runners[sourceID]
	if !ok {
		return fmt.Errorf("%w: %s", helpers.ErrUnknownSource, sourceID)
	}

	s.mu.Lock()
	ctx := s.ctx
	switch {
	case s.stopping:
		s.mu.Unlock()
		return ErrStopping
	case ctx.Err() != nil:
		s.mu.Unlock()
		return ctx.Err()
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		_, _, shared := s.forced.Do(sourceID, func() (interface{}, error) {
			s.run(ctx, r, true)
			return nil, nil
		})
		if shared {
			r.logger.Debug("Forced refresh coalesced")
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

// run performs one fetch run and emits its outcome. FetchedAt is the start of
// the attempt that produced the result.
func (s *Scheduler) run(ctx context.Context, r *runner, forced bool) {
	id := r.adapter.ID()
	kind := r.adapter.Kind()
	begin := s.clock.Now()

	var (
		payload   models.Payload
		attemptAt time.Time
	)

	notify := func(attempt int, err error) {
		if attempt >= s.policy.Attempts || helpers.IsParseError(err) {
			return
		}
		r.logger.Warning("Attempt %d/%d failed: %v", attempt, s.policy.Attempts, err)
		s.emit(ctx, r, models.MSnapshot{
			SourceID:  id,
			Kind:      kind,
			FetchedAt: attemptAt,
			Status:    models.StatusDegraded,
			Error:     err.Error(),
			Forced:    forced,
		})
	}

	err := helpers.RetryWithBackoff(ctx, id, s.policy, s.clock, notify, func(actx context.Context) error {
		attemptAt = s.clock.Now()
		p, err := s.fetch(actx, r)
		s.metrics.FetchAttempt(id, outcome(id, err))
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	s.metrics.FetchRun(id, s.clock.Now().Sub(begin))

	if ctx.Err() != nil {
		return
	}

	if err != nil {
		r.logger.Error("Fetch run failed: %v", err)
		s.emit(ctx, r, models.MSnapshot{
			SourceID:  id,
			Kind:      kind,
			FetchedAt: attemptAt,
			Status:    models.StatusError,
			Error:     err.Error(),
			Forced:    forced,
		})
		return
	}

	s.emit(ctx, r, models.MSnapshot{
		SourceID:  id,
		Kind:      kind,
		Payload:   payload,
		FetchedAt: attemptAt,
		Status:    models.StatusOK,
		Forced:    forced,
	})
}

// fetch calls the adapter and validates its payload at the boundary.
func (s *Scheduler) fetch(ctx context.Context, r *runner) (models.Payload, error) {
	id := r.adapter.ID()
	p, err := r.adapter.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, helpers.NewParseError(id, errors.New("empty payload"))
	}
	if p.Kind() != r.adapter.Kind() {
		return nil, helpers.NewParseError(id, fmt.Errorf("payload kind %s, want %s", p.Kind(), r.adapter.Kind()))
	}
	if err := p.Validate(); err != nil {
		return nil, helpers.NewParseError(id, err)
	}
	return p, nil
}

func (s *Scheduler) emit(ctx context.Context, r *runner, snap models.MSnapshot) {
	select {
	case r.out <- snap:
	case <-ctx.Done():
	}
}

func outcome(sourceID string, err error) string {
	switch err = helpers.ClassifyFetchError(sourceID, err); {
	case err == nil:
		return "ok"
	case helpers.IsParseError(err):
		return "parse_error"
	case helpers.IsFetchTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}
