package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/you/spreadwatch/internal/config"
	"github.com/you/spreadwatch/internal/connectors/cex"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

const depthLimit = 5

type Client struct {
	baseURL string
	log     *zap.Logger
	http    *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.Venue(types.Binance).RestURL,
		log:     log.With(zap.String("venue", string(types.Binance))),
		http:    &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

type depthResp struct {
	LastUpdateID int64   `json:"lastUpdateId"`
	Bids         [][]any `json:"bids"`
	Asks         [][]any `json:"asks"`
}

// OrderBook fetches /api/v3/depth. Binance returns bids descending and asks
// ascending, so both sides are flipped to put the best level last.
func (c *Client) OrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", fmt.Sprint(depthLimit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/depth?"+q.Encode(), nil)
	if err != nil {
		return types.OrderBook{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.OrderBook{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.OrderBook{}, fmt.Errorf("depth %d: %s", resp.StatusCode, string(b))
	}
	var dr depthResp
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return types.OrderBook{}, fmt.Errorf("decode depth: %w", err)
	}
	bids, err := cex.LevelsBestLast(dr.Bids)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := cex.LevelsBestLast(dr.Asks)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("asks: %w", err)
	}
	c.log.Debug("depth", zap.String("symbol", symbol), zap.Int64("update_id", dr.LastUpdateID))
	return types.OrderBook{Bids: bids, Asks: asks}, nil
}
