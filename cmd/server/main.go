package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/api"
	"github.com/jimmy058910/replitballgame-sub006/internal/api/middleware"
	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/commentary"
	"github.com/jimmy058910/replitballgame-sub006/internal/events"
	"github.com/jimmy058910/replitballgame-sub006/internal/live"
	"github.com/jimmy058910/replitballgame-sub006/internal/marketplace"
	"github.com/jimmy058910/replitballgame-sub006/internal/progression"
	"github.com/jimmy058910/replitballgame-sub006/internal/scheduler"
	"github.com/jimmy058910/replitballgame-sub006/internal/services"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/internal/tournament"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
	"github.com/jimmy058910/replitballgame-sub006/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.StandardLogger()
	if cfg.IsDevelopment() {
		logger.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	gameClock, err := clock.NewGameClock(cfg.GameTimezone, cfg.DayStartHour, cfg.SimWindowStart, cfg.SimWindowEnd)
	if err != nil {
		logrus.Fatalf("Failed to build game clock: %v", err)
	}

	st := store.NewStore(db, logger)
	cache := services.NewCacheService(redisClient)
	bus := events.NewBus(logger)
	liveManager := live.NewManager(st, bus, commentary.NewSelector(), cfg, logger)
	market := marketplace.NewService(st, gameClock, cfg, logger)
	tournaments := tournament.NewService(st, gameClock, cfg, logger)
	prog := progression.NewService(st, logger)

	sched := scheduler.NewScheduler(st, gameClock, clock.SystemTime, liveManager,
		tournaments, market, prog, cfg, logger)
	if err := sched.Start(context.Background()); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, api.Deps{
		Store:       st,
		Cache:       cache,
		Live:        liveManager,
		Market:      market,
		Tournaments: tournaments,
		Progression: prog,
		Config:      cfg,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Checkpoint live matches and surrender leadership before exit so
	// another node can adopt the in-flight work.
	sched.Stop()
	liveManager.StopAll()

	logrus.Info("Server exited")
}
