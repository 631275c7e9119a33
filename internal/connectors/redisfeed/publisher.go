package redisfeed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/you/spreadwatch/internal/config"
	"github.com/you/spreadwatch/internal/types"
)

func newClient(cfg config.RedisCfg) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
}

// Publisher mirrors the latest merged quotes into a HASH and publishes
// opportunities on a pub/sub channel. Nothing is kept beyond the last state.
type Publisher struct {
	rdb     *redis.Client
	channel string
	snapKey string
}

func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{
		rdb:     newClient(cfg.Redis),
		channel: cfg.Redis.Channel,
		snapKey: cfg.Redis.SnapKey,
	}
}

func (p *Publisher) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func (p *Publisher) Close() error { return p.rdb.Close() }

func (p *Publisher) State(ctx context.Context, s types.State) error {
	return p.rdb.HSet(ctx, p.snapKey, map[string]interface{}{
		"pair":    s.Pair.String(),
		"venue_a": string(s.VenueA),
		"a_bid":   s.A.Bid.String(),
		"a_ask":   s.A.Ask.String(),
		"venue_b": string(s.VenueB),
		"b_bid":   s.B.Bid.String(),
		"b_ask":   s.B.Ask.String(),
		"ts_ms":   s.Ts.UnixMilli(),
	}).Err()
}

func (p *Publisher) Opportunity(ctx context.Context, o types.Opportunity) error {
	b, err := json.Marshal(AlertFrom(o))
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}
