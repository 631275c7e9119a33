package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/you/spreadwatch/internal/config"
	"github.com/you/spreadwatch/internal/connectors/cex/binance"
	"github.com/you/spreadwatch/internal/connectors/cex/coinbase"
	"github.com/you/spreadwatch/internal/connectors/cex/mexc"
	"github.com/you/spreadwatch/internal/connectors/redisfeed"
	"github.com/you/spreadwatch/internal/connectors/wsbook"
	"github.com/you/spreadwatch/internal/dash"
	"github.com/you/spreadwatch/internal/fetch"
	"github.com/you/spreadwatch/internal/metrics"
	"github.com/you/spreadwatch/internal/monitor"
	"github.com/you/spreadwatch/internal/report"
	"github.com/you/spreadwatch/internal/symbols"
	"github.com/you/spreadwatch/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const clearScreen = "\033[H\033[2J"

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(lvl),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		// stdout carries the console report
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func parseFlags() (cfgPath, pair string) {
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file")
	flag.StringVar(&pair, "pair", "", "pair to monitor (BTC-EUR, BTC-GBP, ETH-EUR); prompts when empty")
	flag.Parse()
	return cfgPath, pair
}

// choosePair shows the pair menu on w and reads the choice from r.
func choosePair(r io.Reader, w io.Writer) (types.Pair, error) {
	fmt.Fprint(w, clearScreen)
	fmt.Fprintln(w, "------------------------------------")
	fmt.Fprintln(w, "          ARBITRAGE TRADING         ")
	fmt.Fprint(w, "------------------------------------\n\n\n")
	fmt.Fprint(w, "Choose the currency pair you want to arbitrage\n\n")
	for i, p := range types.Pairs {
		fmt.Fprintf(w, "%d --- %s\n", i+1, p)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, "Option: ")

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read choice: %w", err)
	}
	switch strings.TrimSpace(line) {
	case "1":
		return types.Pairs[0], nil
	case "2":
		return types.Pairs[1], nil
	case "3":
		return types.Pairs[2], nil
	}
	return "", fmt.Errorf("invalid choice %q", strings.TrimSpace(line))
}

func main() {
	cfgPath, pairFlag := parseFlags()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	pair, err := resolvePair(pairFlag, cfg.Pair)
	if err != nil {
		fmt.Print(clearScreen)
		fmt.Println("Invalid pair")
		logger.Debug("pair selection", zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	tbl := symbols.Default.With(cfg.Symbols)
	fa, err := newFetcher(ctx, cfg, cfg.Venues.A, pair, tbl, logger)
	if err != nil {
		logger.Fatal("venue A", zap.String("venue", string(cfg.Venues.A)), zap.Error(err))
	}
	fb, err := newFetcher(ctx, cfg, cfg.Venues.B, pair, tbl, logger)
	if err != nil {
		logger.Fatal("venue B", zap.String("venue", string(cfg.Venues.B)), zap.Error(err))
	}

	var sinks []monitor.Sink
	if cfg.Dash.ListenAddr != "" {
		store := dash.NewStore()
		go dash.StartHTTP(ctx, store, cfg.Dash.ListenAddr, logger)
		sinks = append(sinks, store)
	}
	if cfg.Redis.Addr != "" {
		pub := redisfeed.NewPublisher(cfg)
		defer pub.Close()
		if err := pub.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, alerts will not be published", zap.Error(err))
		} else {
			sinks = append(sinks, pub)
		}
	}

	fmt.Print(clearScreen)
	fmt.Print("Looking for arbitrage opportunities...\n\n")
	logger.Info("monitoring",
		zap.String("pair", pair.String()),
		zap.String("venue_a", string(fa.Venue)),
		zap.String("venue_b", string(fb.Venue)),
		zap.String("source", cfg.Source),
	)

	mon := monitor.New(
		monitor.NewAggregator(fa, fb),
		report.New(os.Stdout, logger, time.Now),
		monitor.Options{
			StatusInterval: cfg.StatusInterval(),
			MinCycle:       cfg.MinCycle(),
			Sinks:          sinks,
		},
		logger,
	)
	if err := mon.Run(ctx); err != nil {
		logger.Fatal("monitor stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func resolvePair(flagVal, cfgVal string) (types.Pair, error) {
	switch {
	case flagVal != "":
		return types.ParsePair(flagVal)
	case cfgVal != "":
		return types.ParsePair(cfgVal)
	}
	return choosePair(os.Stdin, os.Stdout)
}

func newFetcher(ctx context.Context, cfg *config.Config, venue types.VenueID, pair types.Pair, tbl symbols.Table, log *zap.Logger) (fetch.Fetcher, error) {
	src, err := newSource(ctx, cfg, venue, pair, tbl, log)
	if err != nil {
		return fetch.Fetcher{}, err
	}
	return fetch.New(src, venue, pair, tbl,
		fetch.WithRetry(cfg.Retry.MaxAttempts, cfg.RetryBackoff()),
		fetch.WithTimeout(cfg.FetchTimeout()),
		fetch.WithLogger(log),
	)
}

// newSource picks the quote source for a venue. With source=ws only Binance
// streams; the other venues stay on REST.
func newSource(ctx context.Context, cfg *config.Config, venue types.VenueID, pair types.Pair, tbl symbols.Table, log *zap.Logger) (fetch.Source, error) {
	switch venue {
	case types.Binance:
		if cfg.Source == "ws" {
			return newBinanceStream(ctx, cfg, pair, tbl, log)
		}
		return binance.NewClient(cfg, log), nil
	case types.Coinbase:
		return coinbase.NewClient(cfg, log), nil
	case types.MEXC:
		return mexc.NewClient(cfg, log), nil
	}
	return nil, &types.ConfigurationError{Venue: venue, Msg: "unknown venue"}
}

func newBinanceStream(ctx context.Context, cfg *config.Config, pair types.Pair, tbl symbols.Table, log *zap.Logger) (fetch.Source, error) {
	sym, err := tbl.Resolve(types.Binance, pair)
	if err != nil {
		return nil, err
	}
	ws := binance.NewWS(cfg.Venue(types.Binance).WsURL)
	ticks, err := ws.SubscribeBookTicker(ctx, []string{sym})
	if err != nil {
		return nil, fmt.Errorf("binance ws: %w", err)
	}
	// bookTicker only pushes on change, so there is no age limit: server
	// pings keep the read deadline alive and a dropped connection closes
	// the cache.
	book := wsbook.NewBookCache(0)
	go book.Feed(ctx, ticks, log)

	if missing := wsbook.WaitBootstrap(ctx, book, []string{sym}, cfg.HTTPTimeout(), log); len(missing) > 0 {
		log.Warn("binance ws bootstrap incomplete", zap.Strings("missing", missing))
	}
	return book, nil
}
