package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/data"
	"github.com/tkmaina/ussd_stock_tracker/data/cache"
	"github.com/tkmaina/ussd_stock_tracker/data/catalog"
	"github.com/tkmaina/ussd_stock_tracker/data/repository/postgres"
	"github.com/tkmaina/ussd_stock_tracker/internal/service/ussdService"
	"github.com/tkmaina/ussd_stock_tracker/internal/transport/ussdhttp"
	"github.com/tkmaina/ussd_stock_tracker/internal/ussdserver"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	catalogFile := catalog.NewFileStore(cfg.Files.StocksFile)

	ussdSrv := ussdService.New(cfg, pgRepo, redisCache, catalogFile)

	controller := ussdhttp.NewController(ussdSrv)

	server := ussdserver.New(cfg, controller)
	server.Start()
	defer server.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
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
