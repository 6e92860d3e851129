package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

const stocksKey = "catalog:stocks"

// ErrCacheMiss covers both an absent key and an expired one.
var ErrCacheMiss = errors.New("cache miss")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetStocks(ctx context.Context, stocks []model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetStocks start", slog.String("rqID", rqID))

	stocksJson, err := json.Marshal(stocks)
	if err != nil {
		slog.Error("can't marshall stocks in SetStocks", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall stocks")
	}

	_, err = r.redis.Set(ctx, stocksKey, stocksJson, r.cfg.Cache.StocksExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetStocks completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetStocks(ctx context.Context) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetStocks start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, stocksKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", stocksKey))
		return nil, err
	}

	var stocks []model.Stock
	err = json.Unmarshal([]byte(res), &stocks)
	if err != nil {
		slog.Error(
			"can't unmarshall stocks in GetStocks",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshall stocks")
	}

	slog.Debug("GetStocks finished", slog.String("rqID", rqID))

	return stocks, nil
}
