package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/spreadwatch/internal/metrics"
	"github.com/you/spreadwatch/internal/symbols"
	"github.com/you/spreadwatch/internal/types"
)

type sourceFunc func(ctx context.Context, symbol string) (types.OrderBook, error)

func (f sourceFunc) OrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	return f(ctx, symbol)
}

func lv(px string) types.Level {
	return types.Level{Price: decimal.RequireFromString(px), Size: decimal.NewFromInt(1)}
}

func book() types.OrderBook {
	return types.OrderBook{
		Bids: []types.Level{lv("31040.00"), lv("31049.00"), lv("31050.00")},
		Asks: []types.Level{lv("31070.00"), lv("31061.00"), lv("31060.00")},
	}
}

func TestBestOf_TakesLastEntries(t *testing.T) {
	q, err := BestOf(book())
	require.NoError(t, err)
	assert.Equal(t, "31050.00", q.Bid.StringFixed(2))
	assert.Equal(t, "31060.00", q.Ask.StringFixed(2))
}

func TestBestOf_EqualLevelsAreFine(t *testing.T) {
	b := types.OrderBook{
		Bids: []types.Level{lv("10"), lv("10")},
		Asks: []types.Level{lv("11"), lv("11")},
	}
	_, err := BestOf(b)
	assert.NoError(t, err)
}

func TestBestOf_WrongOrderFailsLoudly(t *testing.T) {
	b := book()
	b.Bids = []types.Level{lv("31050.00"), lv("31040.00")} // best-first
	_, err := BestOf(b)
	assert.ErrorIs(t, err, ErrBookOrder)

	b = book()
	b.Asks = []types.Level{lv("31060.00"), lv("31070.00")}
	_, err = BestOf(b)
	assert.ErrorIs(t, err, ErrBookOrder)
}

func TestBestOf_EmptySide(t *testing.T) {
	_, err := BestOf(types.OrderBook{Bids: []types.Level{lv("1")}})
	assert.ErrorIs(t, err, ErrEmptyBook)
}

func TestNew_UnmappedPairIsConfigurationError(t *testing.T) {
	_, err := New(sourceFunc(nil), types.MEXC, types.BtcGbp, symbols.Default)
	var ce *types.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestFetch_PassesVenueSymbol(t *testing.T) {
	var got string
	src := sourceFunc(func(_ context.Context, symbol string) (types.OrderBook, error) {
		got = symbol
		return book(), nil
	})
	f, err := New(src, types.Coinbase, types.EthEur, symbols.Default)
	require.NoError(t, err)

	q, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ETH-EUR", got)
	assert.True(t, q.Bid.Equal(decimal.NewFromInt(31050)))
}

func TestFetch_NoRetryByDefault(t *testing.T) {
	var calls int32
	boom := errors.New("connection reset")
	src := sourceFunc(func(context.Context, string) (types.OrderBook, error) {
		atomic.AddInt32(&calls, 1)
		return types.OrderBook{}, boom
	})
	f, err := New(src, types.Binance, types.BtcEur, symbols.Default)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, types.Binance, fe.Venue)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetch_RetryRecovers(t *testing.T) {
	var calls int32
	src := sourceFunc(func(context.Context, string) (types.OrderBook, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return types.OrderBook{}, errors.New("503")
		}
		return book(), nil
	})
	f, err := New(src, types.Binance, types.BtcEur, symbols.Default, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetch_RetryExhausted(t *testing.T) {
	var calls int32
	src := sourceFunc(func(context.Context, string) (types.OrderBook, error) {
		atomic.AddInt32(&calls, 1)
		return types.OrderBook{}, errors.New("503")
	})
	f, err := New(src, types.Binance, types.BtcEur, symbols.Default, WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	var fe *types.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetch_Timeout(t *testing.T) {
	src := sourceFunc(func(ctx context.Context, _ string) (types.OrderBook, error) {
		<-ctx.Done()
		return types.OrderBook{}, ctx.Err()
	})
	f, err := New(src, types.Binance, types.BtcEur, symbols.Default, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_BadOrderIsFetchError(t *testing.T) {
	src := sourceFunc(func(context.Context, string) (types.OrderBook, error) {
		b := book()
		b.Bids[0], b.Bids[2] = b.Bids[2], b.Bids[0]
		return b, nil
	})
	f, err := New(src, types.Binance, types.BtcEur, symbols.Default)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	var fe *types.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, ErrBookOrder)
}

func TestFetch_CancelledFetchIsNotCountedAsVenueError(t *testing.T) {
	errs := metrics.FetchErrors.WithLabelValues(string(types.MEXC))
	before := testutil.ToFloat64(errs)

	src := sourceFunc(func(ctx context.Context, _ string) (types.OrderBook, error) {
		<-ctx.Done()
		return types.OrderBook{}, ctx.Err()
	})
	f, err := New(src, types.MEXC, types.BtcEur, symbols.Default)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = f.Fetch(ctx)

	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, before, testutil.ToFloat64(errs))
}

func TestFetch_SourceErrorIsCounted(t *testing.T) {
	errs := metrics.FetchErrors.WithLabelValues(string(types.MEXC))
	before := testutil.ToFloat64(errs)

	src := sourceFunc(func(context.Context, string) (types.OrderBook, error) {
		return types.OrderBook{}, errors.New("503")
	})
	f, err := New(src, types.MEXC, types.EthEur, symbols.Default)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(errs))
}
