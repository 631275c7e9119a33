package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const readTimeout = 90 * time.Second

// Ticker is one bookTicker update.
type Ticker struct {
	Symbol  string
	Bid     decimal.Decimal
	BidSize decimal.Decimal
	Ask     decimal.Decimal
	AskSize decimal.Decimal
	TS      time.Time
}

type WS struct {
	URL    string
	Dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex
}

func NewWS(url string) *WS {
	return &WS{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
	}
}

func (w *WS) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	c, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	w.conn = c

	// Binance pings every few minutes and drops clients that do not pong.
	_ = c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPingHandler(func(data string) error {
		_ = c.SetReadDeadline(time.Now().Add(readTimeout))
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})
	return nil
}

func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

type bookTickerMsg struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	Bid      string `json:"b"`
	BidQty   string `json:"B"`
	Ask      string `json:"a"`
	AskQty   string `json:"A"`
}

// SubscribeBookTicker streams best bid/ask updates for symbols until ctx ends
// or the connection drops; the channel is closed then.
func (w *WS) SubscribeBookTicker(ctx context.Context, symbols []string) (<-chan Ticker, error) {
	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, strings.ToLower(s)+"@bookTicker")
	}
	sub := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int      `json:"id"`
	}{Method: "SUBSCRIBE", Params: params, ID: 1}

	if err := w.conn.WriteJSON(sub); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	conn := w.conn
	out := make(chan Ticker, 1024)
	go func() {
		defer close(out)
		defer w.Close()

		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				// unblock ReadMessage
				_ = conn.SetReadDeadline(time.Now())
			case <-stop:
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

			t, ok := parseBookTicker(data)
			if !ok {
				continue
			}
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// parseBookTicker ignores subscription acks and anything without prices.
func parseBookTicker(data []byte) (Ticker, bool) {
	var m bookTickerMsg
	if err := json.Unmarshal(data, &m); err != nil || m.Symbol == "" {
		return Ticker{}, false
	}
	bid, err1 := decimal.NewFromString(m.Bid)
	ask, err2 := decimal.NewFromString(m.Ask)
	if err1 != nil || err2 != nil {
		return Ticker{}, false
	}
	t := Ticker{Symbol: m.Symbol, Bid: bid, Ask: ask, TS: time.Now()}
	if v, err := decimal.NewFromString(m.BidQty); err == nil {
		t.BidSize = v
	}
	if v, err := decimal.NewFromString(m.AskQty); err == nil {
		t.AskSize = v
	}
	return t, true
}
