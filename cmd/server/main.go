package main

import (
	"context"
	"time"

	"restoran-kpi/internal/auth"
	"restoran-kpi/internal/cache"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/database"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	log := config.NewLogger("info")
	cfg := config.Load(log)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	db := database.Init(cfg, log)
	store := repo.NewGormStore(db)

	// Dashboard cache is optional; without Redis every summary is computed directly.
	var dashCache *cache.Cache
	if cfg.RedisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.Connect(ctx, cfg.RedisAddress)
		cancel()
		if err != nil {
			config.LogError(log, "main", "main", "redis connect", cfg.RedisAddress, err)
			log.Warn("dashboard cache disabled")
		} else {
			dashCache = cache.New(rdb, cfg.DashboardCacheTTL, log)
			log.WithField("addr", cfg.RedisAddress).Info("dashboard cache enabled")
		}
	}

	limiter := auth.NewLoginLimiter(cfg.LoginRatePerSecond, cfg.LoginRateBurst)
	stop := make(chan struct{})
	defer close(stop)
	limiter.StartCleanupLoop(stop)

	app := server.New(server.Deps{
		Config:  cfg,
		Store:   store,
		Cache:   dashCache,
		Log:     log,
		Limiter: limiter,
	})

	log.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
