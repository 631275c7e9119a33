package coinbase

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

const userAgent = "spreadwatch/1.0"

type Client struct {
	baseURL string
	log     *zap.Logger
	http    *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.Venue(types.Coinbase).RestURL,
		log:     log.With(zap.String("venue", string(types.Coinbase))),
		http:    &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

// bookResp entries are [price, size, num_orders].
type bookResp struct {
	Sequence int64   `json:"sequence"`
	Bids     [][]any `json:"bids"`
	Asks     [][]any `json:"asks"`
}

// OrderBook fetches the aggregated level 2 book of a product. Coinbase
// returns both sides best-first.
func (c *Client) OrderBook(ctx context.Context, product string) (types.OrderBook, error) {
	endpoint := c.baseURL + "/products/" + url.PathEscape(product) + "/book?level=2"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.OrderBook{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.OrderBook{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.OrderBook{}, fmt.Errorf("book %d: %s", resp.StatusCode, string(b))
	}
	var br bookResp
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return types.OrderBook{}, fmt.Errorf("decode book: %w", err)
	}
	bids, err := cex.LevelsBestLast(br.Bids)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := cex.LevelsBestLast(br.Asks)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("asks: %w", err)
	}
	c.log.Debug("book", zap.String("product", product), zap.Int64("sequence", br.Sequence))
	return types.OrderBook{Bids: bids, Asks: asks}, nil
}
