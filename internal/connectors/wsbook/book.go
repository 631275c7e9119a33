// Package wsbook keeps the latest streamed top of book per symbol and serves
// it as a quote source.
package wsbook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/spreadwatch/internal/connectors/cex/binance"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

type entry struct {
	bid, bidSize decimal.Decimal
	ask, askSize decimal.Decimal
	ts           time.Time
}

// ErrStreamClosed is returned once the feeding stream has ended.
var ErrStreamClosed = errors.New("ws book stream closed")

type BookCache struct {
	mu      sync.RWMutex
	books   map[string]entry
	lastMsg time.Time
	closed  bool
	maxAge  time.Duration
	now     func() time.Time
}

// NewBookCache fails reads when the stream has been silent for longer than
// maxAge, whichever symbol last moved; 0 disables the check.
func NewBookCache(maxAge time.Duration) *BookCache {
	return &BookCache{
		books:  make(map[string]entry, 8),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (bc *BookCache) Set(t binance.Ticker) {
	bc.mu.Lock()
	ts := bc.now()
	bc.books[t.Symbol] = entry{bid: t.Bid, bidSize: t.BidSize, ask: t.Ask, askSize: t.AskSize, ts: ts}
	bc.lastMsg = ts
	bc.mu.Unlock()
}

// Close makes every later OrderBook call fail with ErrStreamClosed.
func (bc *BookCache) Close() {
	bc.mu.Lock()
	bc.closed = true
	bc.mu.Unlock()
}

func (bc *BookCache) Has(symbol string) bool {
	bc.mu.RLock()
	_, ok := bc.books[symbol]
	bc.mu.RUnlock()
	return ok
}

// OrderBook returns a one-level book built from the last ticker.
func (bc *BookCache) OrderBook(_ context.Context, symbol string) (types.OrderBook, error) {
	bc.mu.RLock()
	e, ok := bc.books[symbol]
	closed, last := bc.closed, bc.lastMsg
	bc.mu.RUnlock()
	if closed {
		return types.OrderBook{}, fmt.Errorf("%s: %w", symbol, ErrStreamClosed)
	}
	if !ok || e.bid.IsZero() || e.ask.IsZero() {
		return types.OrderBook{}, fmt.Errorf("empty book for %s", symbol)
	}
	if bc.maxAge > 0 && bc.now().Sub(last) > bc.maxAge {
		return types.OrderBook{}, fmt.Errorf("stale stream for %s: silent %s", symbol, bc.now().Sub(last).Truncate(time.Second))
	}
	return types.OrderBook{
		Bids: []types.Level{{Price: e.bid, Size: e.bidSize}},
		Asks: []types.Level{{Price: e.ask, Size: e.askSize}},
	}, nil
}

// Feed copies tickers into the cache until ctx ends or in is closed. A closed
// stream closes the cache.
func (bc *BookCache) Feed(ctx context.Context, in <-chan binance.Ticker, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				log.Warn("ws book stream closed")
				bc.Close()
				return
			}
			bc.Set(t)
		}
	}
}

// WaitBootstrap blocks until every symbol has a book, the timeout passes or
// ctx ends. It returns the symbols still missing, or nil on cancellation.
func WaitBootstrap(ctx context.Context, book *BookCache, symbols []string, timeout time.Duration, log *zap.Logger) []string {
	deadline := time.Now().Add(timeout)
	missing := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		missing[s] = struct{}{}
	}
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		for s := range missing {
			if book.Has(s) {
				delete(missing, s)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			out := make([]string, 0, len(missing))
			for s := range missing {
				out = append(out, s)
			}
			sort.Strings(out)
			log.Debug("ws bootstrap timed out", zap.Strings("missing", out))
			return out
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
