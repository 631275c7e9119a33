// Package report renders alerts and status lines for the console.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

// TimeLayout is the local "%c" style used in every message.
const TimeLayout = "Mon Jan _2 15:04:05 2006"

type Reporter struct {
	w   io.Writer
	log *zap.Logger
	now func() time.Time
}

func New(w io.Writer, log *zap.Logger, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{w: w, log: log, now: now}
}

func (r *Reporter) Opportunity(opp types.Opportunity) error {
	_, err := fmt.Fprintf(r.w, "%s\nArbitrage opportunity found\nBuy: %s at %s on %s\nSell: %s at %s on %s\nProfit: %s\n\n",
		r.stamp(),
		opp.Pair, Price(opp.BuyPrice), opp.BuyVenue,
		opp.Pair, Price(opp.SellPrice), opp.SellVenue,
		Price(opp.Profit),
	)
	r.log.Info("opportunity",
		zap.String("pair", opp.Pair.String()),
		zap.String("direction", string(opp.Direction)),
		zap.String("buy_venue", string(opp.BuyVenue)),
		zap.String("buy_px", opp.BuyPrice.String()),
		zap.String("sell_venue", string(opp.SellVenue)),
		zap.String("sell_px", opp.SellPrice.String()),
		zap.String("profit", opp.Profit.String()),
	)
	return err
}

func (r *Reporter) Status(s types.State) error {
	_, err := fmt.Fprintf(r.w, "%s\nSeeking arbitrage opportunity... (None found)\npair: %s\n%s bid: %s\n%s ask: %s\n%s bid: %s\n%s ask: %s\n\n",
		r.stamp(),
		s.Pair,
		s.VenueA, Price(s.A.Bid),
		s.VenueB, Price(s.B.Ask),
		s.VenueB, Price(s.B.Bid),
		s.VenueA, Price(s.A.Ask),
	)
	r.log.Debug("status line", zap.String("pair", s.Pair.String()))
	return err
}

func (r *Reporter) stamp() string { return r.now().Local().Format(TimeLayout) }

// Price keeps the scale the venue quoted with, so 35.00 stays "35.00".
func Price(d decimal.Decimal) string {
	if e := d.Exponent(); e < 0 {
		return d.StringFixed(-e)
	}
	return d.String()
}
