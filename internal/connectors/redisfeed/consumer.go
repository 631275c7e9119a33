package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/you/spreadwatch/internal/config"
	"github.com/you/spreadwatch/internal/types"
)

type Consumer struct {
	rdb     *redis.Client
	channel string
	snapKey string
}

func NewConsumer(cfg *config.Config) *Consumer {
	return &Consumer{
		rdb:     newClient(cfg.Redis),
		channel: cfg.Redis.Channel,
		snapKey: cfg.Redis.SnapKey,
	}
}

func (c *Consumer) Close() error { return c.rdb.Close() }

// Latest reads the last published state; redis.Nil if there is none yet.
func (c *Consumer) Latest(ctx context.Context) (types.State, error) {
	m, err := c.rdb.HGetAll(ctx, c.snapKey).Result()
	if err != nil {
		return types.State{}, err
	}
	if len(m) == 0 {
		return types.State{}, redis.Nil
	}
	s := types.State{
		Pair:   types.Pair(m["pair"]),
		VenueA: types.VenueID(m["venue_a"]),
		VenueB: types.VenueID(m["venue_b"]),
	}
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"a_bid", &s.A.Bid}, {"a_ask", &s.A.Ask},
		{"b_bid", &s.B.Bid}, {"b_ask", &s.B.Ask},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(m[f.key])
		if err != nil {
			return types.State{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}
	if ms, err := strconv.ParseInt(m["ts_ms"], 10, 64); err == nil {
		s.Ts = time.UnixMilli(ms)
	}
	return s, nil
}

// Subscribe forwards alerts to out until ctx ends. Malformed payloads are skipped.
func (c *Consumer) Subscribe(ctx context.Context, out chan<- Alert) error {
	sub := c.rdb.Subscribe(ctx, c.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var a Alert
			if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
				continue
			}
			select {
			case out <- a:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
