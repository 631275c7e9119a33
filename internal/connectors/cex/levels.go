// Package cex holds helpers shared by the REST venue connectors.
package cex

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/you/spreadwatch/internal/types"
)

// LevelsBestLast parses raw [price, size, ...] entries that arrive best-first
// (as Binance, MEXC and Coinbase send them) and returns them best-last.
func LevelsBestLast(raw [][]any) ([]types.Level, error) {
	out := make([]types.Level, len(raw))
	for i, r := range raw {
		if len(r) < 2 {
			return nil, fmt.Errorf("level %d: want [price, size], got %d fields", i, len(r))
		}
		px, err := toDecimal(r[0])
		if err != nil {
			return nil, fmt.Errorf("level %d price: %w", i, err)
		}
		sz, err := toDecimal(r[1])
		if err != nil {
			return nil, fmt.Errorf("level %d size: %w", i, err)
		}
		out[len(raw)-1-i] = types.Level{Price: px, Size: sz}
	}
	return out, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected %T", v)
}
