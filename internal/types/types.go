package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pair is a logical trading pair, independent of any venue's symbol format.
type Pair string

const (
	BtcEur Pair = "BTC-EUR"
	EthEur Pair = "ETH-EUR"
	BtcGbp Pair = "BTC-GBP"
)

// Pairs lists every supported pair in menu order.
var Pairs = []Pair{BtcEur, BtcGbp, EthEur}

func ParsePair(s string) (Pair, error) {
	p := Pair(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Pairs {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pair %q", s)
}

func (p Pair) String() string { return string(p) }

type VenueID string

const (
	Binance  VenueID = "binance"
	Coinbase VenueID = "coinbase"
	MEXC     VenueID = "mexc"
)

type Direction string

const (
	BuyASellB Direction = "BUY_A_SELL_B"
	BuyBSellA Direction = "BUY_B_SELL_A"
)

// Level is one price level of an order book.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is what a quote source returns. Each side is ordered so that the
// most competitive level comes last: bids ascending, asks descending.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// Quote is the top of book of one venue.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

func (q Quote) IsZero() bool { return q.Bid.IsZero() && q.Ask.IsZero() }

// State is the merged view of both venues after one successful round.
type State struct {
	Pair   Pair
	VenueA VenueID
	VenueB VenueID
	A, B   Quote
	Ts     time.Time
}

type Opportunity struct {
	Direction Direction
	Pair      Pair
	BuyVenue  VenueID
	SellVenue VenueID
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Profit    decimal.Decimal
	Ts        time.Time
}
