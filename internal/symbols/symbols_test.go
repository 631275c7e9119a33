package symbols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/spreadwatch/internal/types"
)

func TestResolve_OriginalVenues(t *testing.T) {
	s, err := Default.Resolve(types.Binance, types.BtcEur)
	require.NoError(t, err)
	assert.Equal(t, "BTCEUR", s)

	s, err = Default.Resolve(types.Coinbase, types.BtcEur)
	require.NoError(t, err)
	assert.Equal(t, "BTC-EUR", s)
}

func TestResolve_Unmapped(t *testing.T) {
	_, err := Default.Resolve(types.MEXC, types.BtcGbp)
	var ce *types.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.MEXC, ce.Venue)

	_, err = Default.Resolve("kraken", types.BtcEur)
	assert.True(t, errors.As(err, &ce))
}

func TestRoundTrip(t *testing.T) {
	for venue, m := range Default {
		for pair := range m {
			sym, err := Default.Resolve(venue, pair)
			require.NoError(t, err)
			back, ok := Default.Reverse(venue, sym)
			require.True(t, ok, "%s %s", venue, sym)
			assert.Equal(t, pair, back)
		}
	}
}

func TestWith_DoesNotMutateBase(t *testing.T) {
	tbl := Default.With(map[types.VenueID]map[types.Pair]string{
		types.MEXC: {types.BtcGbp: "BTCGBP"},
	})

	s, err := tbl.Resolve(types.MEXC, types.BtcGbp)
	require.NoError(t, err)
	assert.Equal(t, "BTCGBP", s)

	_, err = Default.Resolve(types.MEXC, types.BtcGbp)
	assert.Error(t, err)
}
