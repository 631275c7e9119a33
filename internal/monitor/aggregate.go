package monitor

import (
	"context"
	"time"

	"github.com/you/spreadwatch/internal/fetch"
	"github.com/you/spreadwatch/internal/types"
	"golang.org/x/sync/errgroup"
)

// Aggregator fetches both venues of one pair concurrently.
type Aggregator struct {
	A, B fetch.Fetcher
	now  func() time.Time
}

func NewAggregator(a, b fetch.Fetcher) *Aggregator {
	return &Aggregator{A: a, B: b, now: time.Now}
}

// Round waits for both fetches. It only returns a state when both succeeded;
// otherwise the first fetch error.
func (ag *Aggregator) Round(ctx context.Context) (types.State, error) {
	var qa, qb types.Quote
	g, gctx := errgroup.WithContext(ctx)

	a, b := ag.A, ag.B
	g.Go(func() error {
		q, err := a.Fetch(gctx)
		qa = q
		return err
	})
	g.Go(func() error {
		q, err := b.Fetch(gctx)
		qb = q
		return err
	})
	if err := g.Wait(); err != nil {
		return types.State{}, err
	}

	return types.State{
		Pair:   a.Pair,
		VenueA: a.Venue,
		VenueB: b.Venue,
		A:      qa,
		B:      qb,
		Ts:     ag.now(),
	}, nil
}
