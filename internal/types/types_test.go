package types

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	p, err := ParsePair(" btc-eur ")
	require.NoError(t, err)
	assert.Equal(t, BtcEur, p)

	_, err = ParsePair("DOGE-EUR")
	assert.Error(t, err)
}

func TestFetchError_Unwrap(t *testing.T) {
	var err error = &FetchError{Venue: Binance, Pair: BtcEur, Err: io.ErrUnexpectedEOF}

	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "binance")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, BtcEur, fe.Pair)
}
