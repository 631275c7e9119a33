package detector

import (
	"github.com/you/spreadwatch/internal/types"
)

// Detect classifies a merged state. Venue A's bid against venue B's ask is
// checked first; equality never counts as an opportunity.
func Detect(s types.State) (types.Opportunity, bool) {
	if opp, ok := evaluateBuyBSellA(s); ok {
		return opp, true
	}
	return evaluateBuyASellB(s)
}

// evaluateBuyBSellA checks "buy on B at its ask, sell on A at its bid".
func evaluateBuyBSellA(s types.State) (types.Opportunity, bool) {
	if !s.A.Bid.GreaterThan(s.B.Ask) {
		return types.Opportunity{}, false
	}
	return types.Opportunity{
		Direction: types.BuyBSellA,
		Pair:      s.Pair,
		BuyVenue:  s.VenueB,
		SellVenue: s.VenueA,
		BuyPrice:  s.B.Ask,
		SellPrice: s.A.Bid,
		Profit:    s.A.Bid.Sub(s.B.Ask),
		Ts:        s.Ts,
	}, true
}

// evaluateBuyASellB checks "buy on A at its ask, sell on B at its bid".
func evaluateBuyASellB(s types.State) (types.Opportunity, bool) {
	if !s.B.Bid.GreaterThan(s.A.Ask) {
		return types.Opportunity{}, false
	}
	return types.Opportunity{
		Direction: types.BuyASellB,
		Pair:      s.Pair,
		BuyVenue:  s.VenueA,
		SellVenue: s.VenueB,
		BuyPrice:  s.A.Ask,
		SellPrice: s.B.Bid,
		Profit:    s.B.Bid.Sub(s.A.Ask),
		Ts:        s.Ts,
	}, true
}
