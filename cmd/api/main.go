package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/foldmarket/fold/app"
	"github.com/foldmarket/fold/app/api"
	"github.com/foldmarket/fold/app/database"
	"github.com/foldmarket/fold/app/markets"
	"github.com/foldmarket/fold/app/trade"
	"github.com/foldmarket/fold/app/wallet"
	"github.com/foldmarket/fold/internal/cache"
	"github.com/foldmarket/fold/internal/deps"
	"github.com/foldmarket/fold/internal/logger"
	"github.com/foldmarket/fold/internal/router"
	"github.com/foldmarket/fold/internal/sanitizer"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLogger := logger.NewZeroLogger(os.Stdout, logger.LevelInfo, logger.Fields{
		"app": "fold",
		"env": cfg.Env,
	})

	db, err := database.New(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	container := deps.NewContainer(db, sanitizer.NewHTMLStripper(), appLogger)
	if cfg.RedisAddr != "" {
		container.WithRedis(&cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	r := gin.Default()
	r.Use(api.CorsMiddleware())
	r.GET("/healthz", api.HealthCheck)

	router.NewMounter(container).
		Public(r).
		Use(api.Identify()).
		Mount(markets.Mount).
		Mount(trade.Mount).
		Mount(wallet.Mount)

	appLogger.Info("starting API server", map[string]interface{}{
		"host": cfg.AppHost,
		"port": cfg.AppPort,
	})
	if err := r.Run(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
