package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"event-ticket-gate/config"
	"event-ticket-gate/internal/auth"
	"event-ticket-gate/internal/cache"
	"event-ticket-gate/internal/database"
	"event-ticket-gate/internal/handler"
	"event-ticket-gate/internal/monitoring"
	"event-ticket-gate/internal/qrcode"
	"event-ticket-gate/internal/queue"
	"event-ticket-gate/internal/repository"
	"event-ticket-gate/internal/scheduler"
	"event-ticket-gate/internal/service"
	"event-ticket-gate/internal/worker"
	"event-ticket-gate/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logger.SetLevel(cfg.Server.LogLevel); err != nil {
		logger.L.Fatal("Invalid log level", zap.Error(err))
	}
	defer logger.L.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		logger.L.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.L.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.L.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	codec, err := qrcode.NewCodec(cfg.Ticketing.QRSecret, cfg.Ticketing.QRPreviousSecrets...)
	if err != nil {
		logger.L.Fatal("Failed to initialize QR codec", zap.Error(err))
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		logger.L.Fatal("Failed to initialize token manager", zap.Error(err))
	}

	var auditQueue queue.AuditQueue
	if cfg.Audit.UseRedisStream {
		auditQueue, err = queue.NewRedisStreamAuditQueue(rdb, cfg.Audit.ConsumerID, nil)
		if err != nil {
			logger.L.Fatal("Failed to initialize audit stream", zap.Error(err))
		}
	} else {
		auditQueue = queue.NewMemoryAuditQueue(cfg.Audit.BufferSize)
	}

	inventory := cache.NewRedisCapacityInventory(rdb)

	ticketRepo := repository.NewTicketRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	ticketService := service.NewTicketService(pool, ticketRepo, eventRepo, userRepo, inventory, codec, auditQueue, nil)
	validationService := service.NewValidationService(ticketRepo, eventRepo, auditQueue, cfg.Ticketing.CheckInLead, cfg.Ticketing.GracePeriod, nil)
	eventService := service.NewEventService(eventRepo, inventory)
	auditService := service.NewAuditService(auditRepo)

	if err := worker.NewAuditWorker(auditService, auditQueue).Start(ctx); err != nil {
		logger.L.Fatal("Failed to start audit worker", zap.Error(err))
	}

	expiry, err := scheduler.NewExpiryScheduler(validationService, cfg.Ticketing.ExpirySweepInterval)
	if err != nil {
		logger.L.Fatal("Failed to create expiry scheduler", zap.Error(err))
	}
	if err := expiry.Start(); err != nil {
		logger.L.Fatal("Failed to start expiry scheduler", zap.Error(err))
	}
	defer expiry.Shutdown()

	if err := handler.RegisterValidators(); err != nil {
		logger.L.Fatal("Failed to register validators", zap.Error(err))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", monitoring.Handler())

	api := router.Group("/api/v1", auth.Middleware(tokens))
	handler.NewTicketHandler(ticketService).RegisterRoutes(api)
	handler.NewGateHandler(validationService, codec).RegisterRoutes(api)
	handler.NewEventHandler(eventService).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.L.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.L.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Server shutdown failed", zap.Error(err))
	}
}
