package wsbook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/spreadwatch/internal/connectors/cex/binance"
	"go.uber.org/zap"
)

func ticker(symbol string, bid, ask float64) binance.Ticker {
	return binance.Ticker{
		Symbol: symbol,
		Bid:    decimal.NewFromFloat(bid),
		Ask:    decimal.NewFromFloat(ask),
	}
}

func TestBookCache_SetAndGet(t *testing.T) {
	cache := NewBookCache(0)
	cache.Set(ticker("BTCEUR", 31010, 31015))

	book, err := cache.OrderBook(context.Background(), "BTCEUR")
	require.NoError(t, err)
	require.Len(t, book.Bids, 1)
	assert.True(t, book.Bids[0].Price.Equal(decimal.NewFromInt(31010)))
	assert.True(t, book.Asks[0].Price.Equal(decimal.NewFromInt(31015)))
}

func TestBookCache_GetEmpty(t *testing.T) {
	cache := NewBookCache(0)
	_, err := cache.OrderBook(context.Background(), "BTCEUR")
	assert.Error(t, err)
	assert.False(t, cache.Has("BTCEUR"))
}

func TestBookCache_Stale(t *testing.T) {
	cache := NewBookCache(5 * time.Second)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }
	cache.Set(ticker("BTCEUR", 1, 2))

	now = now.Add(6 * time.Second)
	_, err := cache.OrderBook(context.Background(), "BTCEUR")
	assert.ErrorContains(t, err, "stale")
}

func TestBookCache_QuietSymbolOnLiveStream(t *testing.T) {
	cache := NewBookCache(5 * time.Second)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }
	cache.Set(ticker("BTCEUR", 31010, 31015))

	// BTCEUR does not move for a minute while ETHEUR keeps the stream alive
	for i := 0; i < 15; i++ {
		now = now.Add(4 * time.Second)
		cache.Set(ticker("ETHEUR", 2000, 2001))
	}
	book, err := cache.OrderBook(context.Background(), "BTCEUR")
	require.NoError(t, err)
	assert.True(t, book.Bids[0].Price.Equal(decimal.NewFromInt(31010)))
}

func TestBookCache_NoAgeLimitKeepsQuietBook(t *testing.T) {
	cache := NewBookCache(0)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }
	cache.Set(ticker("BTCEUR", 31010, 31015))

	now = now.Add(61 * time.Second)
	_, err := cache.OrderBook(context.Background(), "BTCEUR")
	assert.NoError(t, err)
}

func TestFeed_ClosedStreamFailsReads(t *testing.T) {
	cache := NewBookCache(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }

	in := make(chan binance.Ticker, 1)
	in <- ticker("BTCEUR", 31010, 31015)
	close(in)
	cache.Feed(context.Background(), in, zap.NewNop())

	now = now.Add(59 * time.Second)
	_, err := cache.OrderBook(context.Background(), "BTCEUR")
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestBookCache_ConcurrentAccess(t *testing.T) {
	cache := NewBookCache(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			cache.Set(ticker("ETHEUR", 2000+float64(i), 2001+float64(i)))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = cache.OrderBook(context.Background(), "ETHEUR")
		}()
	}
	wg.Wait()
	assert.True(t, cache.Has("ETHEUR"))
}

func TestFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := NewBookCache(0)
	in := make(chan binance.Ticker, 1)
	done := make(chan struct{})
	go func() {
		cache.Feed(ctx, in, zap.NewNop())
		close(done)
	}()

	in <- ticker("BTCGBP", 26000, 26010)
	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Feed did not return after the stream closed")
	}
	assert.True(t, cache.Has("BTCGBP"))
	_, err := cache.OrderBook(context.Background(), "BTCGBP")
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestWaitBootstrap(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log := zap.NewNop()
	symbols := []string{"BTCEUR", "ETHEUR"}

	book := NewBookCache(0)
	go func() {
		time.Sleep(10 * time.Millisecond)
		book.Set(ticker("BTCEUR", 1, 2))
		time.Sleep(10 * time.Millisecond)
		book.Set(ticker("ETHEUR", 1, 2))
	}()
	assert.Empty(t, WaitBootstrap(ctx, book, symbols, time.Second, log))

	book = NewBookCache(0)
	missing := WaitBootstrap(ctx, book, symbols, 50*time.Millisecond, log)
	assert.Equal(t, []string{"BTCEUR", "ETHEUR"}, missing)

	cctx, cancel2 := context.WithCancel(context.Background())
	cancel2()
	assert.Nil(t, WaitBootstrap(cctx, NewBookCache(0), symbols, time.Second, log))
}
