package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/handler"
	"github.com/GoPolymarket/polyrelay/internal/market"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/repository"
	"github.com/GoPolymarket/polyrelay/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	logger.Info("✅ Connected to PostgreSQL")
	credStore := repository.NewPostgresCredentialStore(db)

	// Idempotency persistence (Redis > Memory)
	var idempotencyStore middleware.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			ttl := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, ttl)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if idempotencyStore == nil {
		idempotencyStore = middleware.NewInMemIdempotencyStore()
	}

	// 3. Initialize Core Services
	clobClient := clob.NewClient(cfg.Clob.BaseURL, time.Duration(cfg.Executor.HTTPTimeoutSeconds)*time.Second)

	gate := service.NewGate(
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		cfg.RateLimit.MaxRequests,
	)
	gate.StartSweeper(time.Duration(cfg.RateLimit.SweepIntervalSeconds) * time.Second)

	credSvc := service.NewCredentialService(credStore, cfg.Clob.DeriveProxyFunder)
	authFlow := service.NewAuthFlow(clobClient, credStore, cfg.Clob.ChainID, cfg.Clob.VerifyL1Proof)
	executor := service.NewExecutor(clobClient, time.Duration(cfg.Executor.FunderBackoffMs)*time.Millisecond)

	// User Execution Stream
	var userStream *market.UserStream
	if cfg.Stream.Enabled && cfg.Stream.Owner != "" {
		creds, err := credStore.Get(context.Background(), cfg.Stream.Owner)
		if err != nil {
			logger.Error("⚠️ Fill stream disabled, no stored credentials", "owner", cfg.Stream.Owner, "error", err)
		} else {
			userStream = market.NewUserStream(cfg.Clob.WSURL, *creds)
			userStream.Start()
		}
	}

	// 4. Initialize Handlers
	tradeHandler := handler.NewTradeHandler(executor, credSvc, gate)
	credHandler := handler.NewCredentialHandler(credSvc, authFlow)
	fillsHandler := handler.NewFillsHandler(userStream)

	// 5. Setup Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware())

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "polyrelay"})
	})

	// Metrics Endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	globalLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.GlobalQPS), cfg.RateLimit.GlobalBurst)

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.RelayAuthMiddleware(cfg))
	v1.Use(middleware.GlobalRateLimit(globalLimiter))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	v1.Use(middleware.IdempotencyMiddleware(idempotencyStore))
	{
		v1.POST("/trade", tradeHandler.PlaceTrade)
		v1.GET("/trading-status/:address", tradeHandler.TradingStatus)
		v1.GET("/fills", fillsHandler.Fills)
		v1.POST("/auth/derive", credHandler.Derive)
	}

	// Admin Routes (credential CRUD)
	admin := r.Group("/v1/credentials")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.PUT("/:address", credHandler.Upsert)
		admin.GET("/:address", credHandler.Get)
		admin.DELETE("/:address", credHandler.Delete)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 PolyRelay started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gate.Stop()
	if userStream != nil {
		userStream.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
