// Package monitor runs the fetch, detect and report cycle for one pair.
package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/you/spreadwatch/internal/detector"
	"github.com/you/spreadwatch/internal/metrics"
	"github.com/you/spreadwatch/internal/report"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

type Phase int32

const (
	Idle Phase = iota
	Polling
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Sink receives copies of each merged state and each opportunity. Sink
// errors are logged, never fatal.
type Sink interface {
	State(ctx context.Context, s types.State) error
	Opportunity(ctx context.Context, opp types.Opportunity) error
}

type Options struct {
	StatusInterval time.Duration
	// MinCycle spaces cycle starts; 0 starts the next cycle right away.
	MinCycle time.Duration
	Now      func() time.Time
	Sinks    []Sink
}

type Monitor struct {
	agg      *Aggregator
	rep      *report.Reporter
	throttle *report.Throttle
	minCycle time.Duration
	now      func() time.Time
	sinks    []Sink
	log      *zap.Logger

	state types.State
	phase atomic.Int32
}

func New(agg *Aggregator, rep *report.Reporter, opts Options, log *zap.Logger) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StatusInterval == 0 {
		opts.StatusInterval = 7 * time.Second
	}
	agg.now = opts.Now
	return &Monitor{
		agg:      agg,
		rep:      rep,
		throttle: report.NewThrottle(opts.StatusInterval, opts.Now),
		minCycle: opts.MinCycle,
		now:      opts.Now,
		sinks:    opts.Sinks,
		log:      log,
		state: types.State{
			Pair:   agg.A.Pair,
			VenueA: agg.A.Venue,
			VenueB: agg.B.Venue,
		},
	}
}

func (m *Monitor) Phase() Phase { return Phase(m.phase.Load()) }

// State returns a copy of the last merged state.
func (m *Monitor) State() types.State { return m.state }

// Run cycles until ctx ends (nil) or a fetch fails (the *types.FetchError).
func (m *Monitor) Run(ctx context.Context) error {
	m.phase.Store(int32(Polling))
	defer m.phase.Store(int32(Stopped))

	m.log.Info("monitoring started",
		zap.String("pair", m.state.Pair.String()),
		zap.String("venue_a", string(m.state.VenueA)),
		zap.String("venue_b", string(m.state.VenueB)),
	)
	for {
		start := m.now()
		if err := m.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				m.log.Info("monitoring stopped")
				return nil
			}
			return err
		}
		if err := m.pace(ctx, start); err != nil {
			m.log.Info("monitoring stopped")
			return nil
		}
	}
}

// Cycle runs one aggregate, detect, report pass. On a fetch error the state
// is left untouched.
func (m *Monitor) Cycle(ctx context.Context) error {
	s, err := m.agg.Round(ctx)
	if err != nil {
		return err
	}
	m.state = s
	metrics.Cycles.Inc()
	m.observe(s)
	for _, sk := range m.sinks {
		if err := sk.State(ctx, s); err != nil {
			m.log.Warn("sink state failed", zap.Error(err))
		}
	}

	if opp, ok := detector.Detect(s); ok {
		metrics.Opportunities.WithLabelValues(string(opp.Direction)).Inc()
		metrics.LastProfit.Set(opp.Profit.InexactFloat64())
		if err := m.rep.Opportunity(opp); err != nil {
			m.log.Warn("write opportunity", zap.Error(err))
		}
		for _, sk := range m.sinks {
			if err := sk.Opportunity(ctx, opp); err != nil {
				m.log.Warn("sink opportunity failed", zap.Error(err))
			}
		}
		return nil
	}

	if m.throttle.Allow() {
		if err := m.rep.Status(s); err != nil {
			m.log.Warn("write status", zap.Error(err))
		}
	}
	return nil
}

func (m *Monitor) observe(s types.State) {
	pair := s.Pair.String()
	metrics.QuoteBid.WithLabelValues(string(s.VenueA), pair).Set(s.A.Bid.InexactFloat64())
	metrics.QuoteAsk.WithLabelValues(string(s.VenueA), pair).Set(s.A.Ask.InexactFloat64())
	metrics.QuoteBid.WithLabelValues(string(s.VenueB), pair).Set(s.B.Bid.InexactFloat64())
	metrics.QuoteAsk.WithLabelValues(string(s.VenueB), pair).Set(s.B.Ask.InexactFloat64())
	m.log.Debug("cycle",
		zap.String("a_bid", s.A.Bid.String()),
		zap.String("a_ask", s.A.Ask.String()),
		zap.String("b_bid", s.B.Bid.String()),
		zap.String("b_ask", s.B.Ask.String()),
	)
}

func (m *Monitor) pace(ctx context.Context, start time.Time) error {
	if m.minCycle <= 0 {
		return ctx.Err()
	}
	wait := m.minCycle - m.now().Sub(start)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
