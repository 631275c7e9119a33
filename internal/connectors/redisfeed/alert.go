package redisfeed

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/spreadwatch/internal/types"
)

// Alert is the JSON published for every opportunity.
type Alert struct {
	Direction string          `json:"direction"`
	Pair      string          `json:"pair"`
	BuyVenue  string          `json:"buy_venue"`
	SellVenue string          `json:"sell_venue"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
	Profit    decimal.Decimal `json:"profit"`
	TsMs      int64           `json:"ts_ms"`
}

func AlertFrom(o types.Opportunity) Alert {
	return Alert{
		Direction: string(o.Direction),
		Pair:      o.Pair.String(),
		BuyVenue:  string(o.BuyVenue),
		SellVenue: string(o.SellVenue),
		BuyPrice:  o.BuyPrice,
		SellPrice: o.SellPrice,
		Profit:    o.Profit,
		TsMs:      o.Ts.UnixMilli(),
	}
}

func (a Alert) Opportunity() types.Opportunity {
	return types.Opportunity{
		Direction: types.Direction(a.Direction),
		Pair:      types.Pair(a.Pair),
		BuyVenue:  types.VenueID(a.BuyVenue),
		SellVenue: types.VenueID(a.SellVenue),
		BuyPrice:  a.BuyPrice,
		SellPrice: a.SellPrice,
		Profit:    a.Profit,
		Ts:        time.UnixMilli(a.TsMs),
	}
}
