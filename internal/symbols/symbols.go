package symbols

import (
	"github.com/you/spreadwatch/internal/types"
)

// Table maps a logical pair to each venue's native symbol.
type Table map[types.VenueID]map[types.Pair]string

// Default is the built-in mapping. MEXC has no GBP book.
var Default = Table{
	types.Binance: {
		types.BtcEur: "BTCEUR",
		types.EthEur: "ETHEUR",
		types.BtcGbp: "BTCGBP",
	},
	types.Coinbase: {
		types.BtcEur: "BTC-EUR",
		types.EthEur: "ETH-EUR",
		types.BtcGbp: "BTC-GBP",
	},
	types.MEXC: {
		types.BtcEur: "BTCEUR",
		types.EthEur: "ETHEUR",
	},
}

// With returns a copy of t with overrides applied on top.
func (t Table) With(overrides map[types.VenueID]map[types.Pair]string) Table {
	out := make(Table, len(t))
	for v, m := range t {
		cp := make(map[types.Pair]string, len(m))
		for p, s := range m {
			cp[p] = s
		}
		out[v] = cp
	}
	for v, m := range overrides {
		if out[v] == nil {
			out[v] = make(map[types.Pair]string, len(m))
		}
		for p, s := range m {
			out[v][p] = s
		}
	}
	return out
}

// Resolve returns the venue symbol for pair, or a ConfigurationError.
func (t Table) Resolve(venue types.VenueID, pair types.Pair) (string, error) {
	m, ok := t[venue]
	if !ok {
		return "", &types.ConfigurationError{Venue: venue, Pair: pair, Msg: "unknown venue"}
	}
	s, ok := m[pair]
	if !ok || s == "" {
		return "", &types.ConfigurationError{Venue: venue, Pair: pair, Msg: "no symbol mapping"}
	}
	return s, nil
}

// Reverse finds the pair behind a venue symbol.
func (t Table) Reverse(venue types.VenueID, symbol string) (types.Pair, bool) {
	for p, s := range t[venue] {
		if s == symbol {
			return p, true
		}
	}
	return "", false
}
