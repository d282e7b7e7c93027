package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"spreadwatch/internal/config"
	"spreadwatch/internal/database"
	"spreadwatch/internal/event"
	"spreadwatch/internal/exchange"
	"spreadwatch/internal/fees"
	"spreadwatch/internal/model"
	"spreadwatch/internal/report"
	"spreadwatch/internal/spread"
	"spreadwatch/internal/ticker"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	takerFees, err := cfg.TakerFees()
	if err != nil {
		logger.Error("Invalid fee configuration", "error", err)
		os.Exit(1)
	}

	maxAge := time.Duration(cfg.Spread.QuoteMaxAgeMS) * time.Millisecond
	tickerSvc := ticker.NewService(logger, maxAge)
	ticks := make(chan model.PriceTick, 256)
	go tickerSvc.Run(ctx, ticks)

	for name := range cfg.Exchanges {
		client, err := exchange.NewClient(name, logger)
		if err != nil {
			logger.Error("Cannot create exchange client", "exchange", name, "error", err)
			os.Exit(1)
		}
		for _, instrument := range cfg.Spread.Instruments {
			go func(client exchange.ExchangeClient, instrument string) {
				if err := client.StartStream(ctx, ticks, instrument); err != nil {
					logger.Error("Stream terminated", "exchange", client.Name(), "instrument", instrument, "error", err)
				}
			}(client, instrument)
		}
	}

	feeSvc := fees.NewService(fees.NewCache(), fees.NewConfigFetcher(takerFees))

	sinks := []event.Sink{event.NewLogSink(logger)}
	if cfg.Database.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			logger.Error("Cannot connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgSink := database.NewPostgresSink(pool)
		if err := pgSink.Migrate(ctx); err != nil {
			logger.Error("Database migration failed", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, pgSink)
	}

	tracker := spread.NewTracker()
	evaluator := spread.NewEvaluator(logger, tickerSvc, feeSvc, tracker, event.Fanout(sinks...))

	reporter, err := report.NewReporter(logger, tracker, cfg.Spread.SummaryTime)
	if err != nil {
		logger.Error("Invalid reporter configuration", "error", err)
		os.Exit(1)
	}
	go reporter.Run(ctx)

	pairs := buildPairs(cfg)
	logger.Info("Spread watcher started", "pairs", len(pairs))

	limiter := rate.NewLimiter(rate.Limit(cfg.Spread.EvaluationsPerSecond), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			logger.Info("Shutting down")
			return
		}
		for _, pair := range pairs {
			if _, err := evaluator.Evaluate(ctx, pair); err != nil {
				logger.Error("Spread evaluation failed", "pair", pair.String(), "error", err)
			}
		}
	}
}

// buildPairs expands the configured exchanges and instruments into every
// ordered long/short combination.
func buildPairs(cfg config.Config) []model.ExchangePairKey {
	names := make([]string, 0, len(cfg.Exchanges))
	for name := range cfg.Exchanges {
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs []model.ExchangePairKey
	for _, long := range names {
		for _, short := range names {
			if long == short {
				continue
			}
			for _, instrument := range cfg.Spread.Instruments {
				pairs = append(pairs, model.ExchangePairKey{
					LongExchange:  long,
					ShortExchange: short,
					Instrument:    instrument,
				})
			}
		}
	}
	return pairs
}
