package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/data"
	"github.com/tkmaina/ussd_stock_tracker/data/cache"
	"github.com/tkmaina/ussd_stock_tracker/data/catalog"
	"github.com/tkmaina/ussd_stock_tracker/data/repository/postgres"
	"github.com/tkmaina/ussd_stock_tracker/data/status"
	"github.com/tkmaina/ussd_stock_tracker/internal/externalApi/africasTalkingApi"
	"github.com/tkmaina/ussd_stock_tracker/internal/externalApi/geminiApi"
	"github.com/tkmaina/ussd_stock_tracker/internal/externalApi/tradingViewScraper"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/internal/scheduler"
	"github.com/tkmaina/ussd_stock_tracker/internal/service/marketService"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	catalogFile := catalog.NewFileStore(cfg.Files.StocksFile)
	statusFile := status.NewFileStore(cfg.Files.StatusFile)

	scraper := tradingViewScraper.New(cfg)

	cleaner, err := geminiApi.New(ctx, cfg)
	if err != nil {
		slog.Error("gemini client init failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	smsApi := africasTalkingApi.New(cfg)

	marketSrv := marketService.New(cfg, pgRepo, scraper, cleaner, redisCache, catalogFile, statusFile, smsApi)

	sched := scheduler.New()
	sched.NewIntervalJob("scrape stock prices", withRqID(marketSrv.RefreshCatalogDuringMarketHours), cfg.Jobs.ScrapeInterval, true)
	sched.NewCrontabJob("market open notifications", withRqID(func(ctx context.Context) error {
		return marketSrv.SendMarketNotifications(ctx, model.NotificationMarketOpen)
	}), cfg.Market.OpenCrontab, false)
	sched.NewCrontabJob("market close notifications", withRqID(func(ctx context.Context) error {
		return marketSrv.SendMarketNotifications(ctx, model.NotificationMarketClose)
	}), cfg.Market.CloseCrontab, false)
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func withRqID(fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return fn(utils.CreateCtxWithRqID(ctx))
	}
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
