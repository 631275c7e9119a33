// Package fetch turns a venue order book into a top-of-book quote.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/spreadwatch/internal/metrics"
	"github.com/you/spreadwatch/internal/symbols"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

// Source returns the order book of a venue symbol, best level last on each side.
type Source interface {
	OrderBook(ctx context.Context, symbol string) (types.OrderBook, error)
}

// Fetcher is bound to one venue and pair. It is a value so each concurrent
// fetch works on its own copy.
type Fetcher struct {
	Venue  types.VenueID
	Pair   types.Pair
	Symbol string

	src      Source
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

type Option func(*Fetcher)

// WithRetry retries a failed fetch up to attempts times in total, sleeping
// backoff*n before the n-th retry.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
		f.backoff = backoff
	}
}

// WithTimeout bounds a single order book request; 0 means no own timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(f *Fetcher) { f.log = log }
}

// New resolves the venue symbol up front, so an unmapped pair fails here with
// a ConfigurationError instead of inside the loop.
func New(src Source, venue types.VenueID, pair types.Pair, tbl symbols.Table, opts ...Option) (Fetcher, error) {
	sym, err := tbl.Resolve(venue, pair)
	if err != nil {
		return Fetcher{}, err
	}
	f := Fetcher{
		Venue:    venue,
		Pair:     pair,
		Symbol:   sym,
		src:      src,
		attempts: 1,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(&f)
	}
	return f, nil
}

// Fetch returns the venue's best bid and ask. Failures come back as *types.FetchError.
func (f Fetcher) Fetch(ctx context.Context) (types.Quote, error) {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			wait := f.backoff * time.Duration(attempt-1)
			f.log.Warn("retrying fetch",
				zap.String("venue", string(f.Venue)),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return types.Quote{}, f.fail(ctx.Err())
			case <-time.After(wait):
			}
		}

		q, err := f.once(ctx)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// cancelled from outside, e.g. the other venue already failed
			break
		}
		metrics.FetchErrors.WithLabelValues(string(f.Venue)).Inc()
	}
	return types.Quote{}, f.fail(lastErr)
}

func (f Fetcher) once(ctx context.Context) (types.Quote, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	start := time.Now()
	book, err := f.src.OrderBook(ctx, f.Symbol)
	metrics.FetchLatency.WithLabelValues(string(f.Venue)).Observe(time.Since(start).Seconds())
	if err != nil {
		return types.Quote{}, err
	}
	return BestOf(book)
}

func (f Fetcher) fail(err error) error {
	return &types.FetchError{Venue: f.Venue, Pair: f.Pair, Err: err}
}

var (
	ErrEmptyBook = errors.New("empty order book side")
	ErrBookOrder = errors.New("order book not sorted best-last")
)

// BestOf takes the last bid and the last ask. No earlier level may beat the
// last one.
func BestOf(book types.OrderBook) (types.Quote, error) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return types.Quote{}, ErrEmptyBook
	}
	bid := book.Bids[len(book.Bids)-1].Price
	ask := book.Asks[len(book.Asks)-1].Price
	for i, l := range book.Bids[:len(book.Bids)-1] {
		if l.Price.GreaterThan(bid) {
			return types.Quote{}, fmt.Errorf("%w: bid %d at %s above last %s", ErrBookOrder, i, l.Price, bid)
		}
	}
	for i, l := range book.Asks[:len(book.Asks)-1] {
		if l.Price.LessThan(ask) {
			return types.Quote{}, fmt.Errorf("%w: ask %d at %s below last %s", ErrBookOrder, i, l.Price, ask)
		}
	}
	return types.Quote{Bid: bid, Ask: ask}, nil
}
