package main

import (
	"context"
	"crypto-oracle-bot/config"
	"crypto-oracle-bot/internal/ai"
	"crypto-oracle-bot/internal/alert"
	"crypto-oracle-bot/internal/database"
	"crypto-oracle-bot/internal/metrics"
	"crypto-oracle-bot/internal/price"
	"crypto-oracle-bot/internal/report"
	"crypto-oracle-bot/internal/server"
	"crypto-oracle-bot/internal/store"
	"crypto-oracle-bot/internal/telegram"
	"crypto-oracle-bot/lib/translation"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg)
	translation.Configure("locales", cfg.Lang)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	alerts, closeStore, err := openAlertStore(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to open alert store: %v", err)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	botMetrics := metrics.NewBotMetrics(registry)
	botMetrics.Load(ctx, db)

	provider := price.NewProvider(
		price.NewPaprika(cfg.APIProKey, cfg.UpstreamTimeout),
		price.WithRateLimit(cfg.UpstreamRateLimit),
		price.WithObserver(botMetrics),
	)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          cfg.TelegramBotToken,
		Debug:          cfg.Debug,
		UpdatesTimeout: 60,
	}, db)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	guard := &alert.Guard{}
	engine := alert.NewEngine(alerts, provider, bot,
		alert.WithInterval(cfg.AlertCheckInterval),
		alert.WithGuard(guard),
		alert.WithTickObserver(botMetrics),
	)

	location, _ := time.LoadLocation(cfg.ReportTimezone)
	job := report.NewJob(provider, ai.NewClient(cfg.AIKey, cfg.AIURL, cfg.AIModel, cfg.UpstreamTimeout), bot,
		report.WithSchedule(cfg.ReportSchedule, location),
		report.WithObserver(botMetrics),
	)

	bot.SetServices(telegram.Services{
		Quotes:  provider,
		Alerts:  alert.NewManager(alerts, provider, guard),
		Reports: job,
		Metrics: botMetrics,
	})
	if err := bot.LoadChats(ctx); err != nil {
		log.WithError(err).Error("Failed to load known chats")
	}

	engine.Start(ctx)
	if err := job.Start(); err != nil {
		log.Fatalf("Failed to schedule daily report: %v", err)
	}
	go bot.Run(ctx)

	ops := server.New(cfg.MetricsPort, server.NewRouter(registry, func() server.Status {
		return server.Status{Engine: engine.Status(), Report: job.Status()}
	}))
	go func() {
		if err := ops.ListenAndServe(); err != nil {
			log.Errorf("Failed to start metrics and health server: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := botMetrics.Save(ctx, db); err != nil {
					log.WithError(err).Error("Failed to save metrics")
				}
			}
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	engine.Stop()
	job.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shut down failed: %v", err)
	}
	if err := botMetrics.Save(shutdownCtx, db); err != nil {
		log.WithError(err).Error("Failed to save metrics")
	}
	log.Info("Metrics saved, shutting down...")
}

func setupLogging(cfg *config.Config) {
	log.SetLevel(log.ErrorLevel)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}))
	}
	log.Debug("Starting telegram bot...")
}

func openAlertStore(ctx context.Context, cfg *config.Config, db *database.DB) (alert.Store, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite":
		log.Infof("Alert store: sqlite %s", cfg.DBPath)
		return database.NewAlertStore(db), func() {}, nil
	case "redis":
		r, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	case "file":
		log.Infof("Alert store: file %s", cfg.AlertsPath)
		return store.NewFile(cfg.AlertsPath), func() {}, nil
	}
	return nil, nil, errors.Errorf("unknown store driver %q", cfg.StoreDriver)
}
