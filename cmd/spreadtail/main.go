// spreadtail prints the last published state and then every alert that
// spreadwatch publishes to Redis, in the same console format.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/spreadwatch/internal/config"
	"github.com/you/spreadwatch/internal/connectors/redisfeed"
	"github.com/you/spreadwatch/internal/report"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("redis.addr is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := redisfeed.NewConsumer(cfg)
	defer c.Close()

	if err := run(ctx, c, os.Stdout, logger); err != nil {
		logger.Fatal("tail", zap.Error(err))
	}
}

type feed interface {
	Latest(ctx context.Context) (types.State, error)
	Subscribe(ctx context.Context, out chan<- redisfeed.Alert) error
}

// run prints the latest state, if any, then each alert until ctx ends.
func run(ctx context.Context, f feed, w io.Writer, log *zap.Logger) error {
	// every line is stamped with the time carried by the message itself
	var stamp time.Time
	rep := report.New(w, log, func() time.Time { return stamp })

	st, err := f.Latest(ctx)
	switch {
	case errors.Is(err, redis.Nil):
		fmt.Fprintln(w, "no state published yet")
	case err != nil:
		return fmt.Errorf("latest: %w", err)
	default:
		stamp = st.Ts
		if err := rep.Status(st); err != nil {
			return err
		}
	}

	alerts := make(chan redisfeed.Alert, 64)
	errc := make(chan error, 1)
	go func() { errc <- f.Subscribe(ctx, alerts) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case a := <-alerts:
			opp := a.Opportunity()
			stamp = opp.Ts
			if err := rep.Opportunity(opp); err != nil {
				return err
			}
		}
	}
}
