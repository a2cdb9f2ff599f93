package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"OptionSentinel/internal/calendar"
	"OptionSentinel/internal/config"
	"OptionSentinel/internal/coordinator"
	"OptionSentinel/internal/dedup"
	"OptionSentinel/internal/marketdata"
	"OptionSentinel/internal/notifier"
	"OptionSentinel/internal/ratelimit"
	"OptionSentinel/internal/scheduler"
	"OptionSentinel/internal/store"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Info().Msg("OptionSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	loc := calendar.Exchange()

	// Tiered market data: polygon primary behind the rate limiter,
	// yahoo secondary, shared TTL cache.
	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.PeriodSeconds)*time.Second)
	primary := marketdata.NewPolygonProvider(cfg.DataSource.PolygonBaseURL, cfg.DataSource.PolygonAPIKey, cfg.Proxy, limiter, loc)
	secondary := marketdata.NewYahooProvider(cfg.Proxy, loc)
	source := marketdata.NewTieredSource(primary, secondary, marketdata.NewCache(),
		marketdata.DefaultRetryPolicy(), cfg.DataSource.Symbol, cfg.DataSource.VolSymbol, log)
	log.Info().Str("primary", primary.Name()).Str("secondary", secondary.Name()).Str("symbol", cfg.DataSource.Symbol).Msg("data sources ready")

	// Persistence
	st, err := store.Open(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	// Notification webhook
	wn := notifier.NewWebhookNotifier(cfg.Webhook.URL, cfg.Proxy, log)

	// Coordinator owns the dedup ledger and the tick cycle.
	coord := coordinator.New(source, st, wn, dedup.New(loc),
		func() *config.Rules { return &cfg.Rules },
		calendar.IsTradingTime,
		coordinator.Retention{
			AlertLogDays:  cfg.Retention.AlertLogDays,
			IndexDataDays: cfg.Retention.IndexDataDays,
		},
		loc, log)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, coord, log)
	if err := sched.RegisterAll(cfg.Schedule.TickCron, cfg.Schedule.MaintenanceCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing tick now")
		go sched.RunTickNow()
	}

	log.Info().Msg("OptionSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	log.Info().Msg("OptionSentinel stopped")
}
