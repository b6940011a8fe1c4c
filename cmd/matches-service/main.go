package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	mcache "github.com/radieske/odds-tracker-poc/internal/matches/cache"
	"github.com/radieske/odds-tracker-poc/internal/matches/feed"
	"github.com/radieske/odds-tracker-poc/internal/matches/httpapi"
	scache "github.com/radieske/odds-tracker-poc/internal/shared/cache"
	"github.com/radieske/odds-tracker-poc/internal/shared/config"
	"github.com/radieske/odds-tracker-poc/internal/shared/logger"
	"github.com/radieske/odds-tracker-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Redis
	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	api := &httpapi.API{
		Log:     log,
		Fetcher: feed.NewFetcher(cfg.MatchesFeedURL),
		Cache:   mcache.New(rdb, time.Duration(cfg.MatchesCacheTTL)*time.Second),
	}

	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", fmt.Sprintf(":%s", cfg.MetricsPort)))

	log.Info("matches-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
