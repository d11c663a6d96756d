package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rknair/portfolio-analytics/internal/analytics"
	"github.com/rknair/portfolio-analytics/internal/api"
	"github.com/rknair/portfolio-analytics/internal/cache"
	"github.com/rknair/portfolio-analytics/internal/config"
	"github.com/rknair/portfolio-analytics/internal/database"
	"github.com/rknair/portfolio-analytics/internal/ingest"
	"github.com/rknair/portfolio-analytics/internal/kafka"
	"github.com/rknair/portfolio-analytics/internal/marketdata"
	"github.com/rknair/portfolio-analytics/internal/scheduler"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(cfg.Postgres.ConnString())
	if err != nil {
		slog.Error("failed to connect to database", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Postgres.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if len(cfg.Ingest.TradeFiles) > 0 {
		seedTrades(db, cfg.Ingest.TradeFiles)
	}

	redisCache, err := cache.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer producer.Close()

	engine := analytics.New(db)

	defaultStart, err := time.ParseInLocation("2006-01-02", cfg.MarketData.DefaultStart, time.UTC)
	if err != nil {
		slog.Error("invalid default start date", slog.String("err", err.Error()))
		os.Exit(1)
	}

	fetcher := marketdata.NewYahooClient(cfg)
	enricher := marketdata.NewEnricher(db, fetcher, engine, redisCache, producer,
		defaultStart, cfg.MarketData.FetchDelay)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.ConsumerGroup, db)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("kafka consumer stopped", slog.String("err", err.Error()))
		}
	}()

	sched := scheduler.New()
	sched.NewIntervalJob("market data enrichment", enricher.Run,
		cfg.Jobs.EnrichmentInterval, cfg.Jobs.EnrichOnStartup)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(engine, db, enricher)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.String("err", err.Error()))
	}
	cancel()
}

// seedTrades loads activity-statement CSVs into an empty trade ledger.
// A populated ledger is left alone so restarts never duplicate trades.
func seedTrades(db *database.DB, files []string) {
	count, err := db.TradeCount()
	if err != nil {
		slog.Error("failed to count trades, skipping csv seed", slog.String("err", err.Error()))
		return
	}
	if count > 0 {
		slog.Info("trade ledger already populated, skipping csv seed", slog.Int("trades", count))
		return
	}

	trades := ingest.LoadTradeFiles(files)
	if len(trades) == 0 {
		slog.Warn("no trades found in csv files")
		return
	}
	if err := db.CreateTradeBatch(trades); err != nil {
		slog.Error("failed to seed trade ledger", slog.String("err", err.Error()))
		return
	}
	slog.Info("seeded trade ledger from csv", slog.Int("trades", len(trades)))
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
