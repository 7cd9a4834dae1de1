package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/manasdevX/ShopEasy-sub001/internal/cache"
	"github.com/manasdevX/ShopEasy-sub001/internal/config"
	httpctl "github.com/manasdevX/ShopEasy-sub001/internal/controllers/http"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra/kafka"
	mmysql "github.com/manasdevX/ShopEasy-sub001/internal/infra/mysql"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra/rabbitmq"
	"github.com/manasdevX/ShopEasy-sub001/internal/metrics"
	"github.com/manasdevX/ShopEasy-sub001/internal/payment"
	mysqlrepo "github.com/manasdevX/ShopEasy-sub001/internal/repository/mysql"
	"github.com/manasdevX/ShopEasy-sub001/internal/services"
	"github.com/manasdevX/ShopEasy-sub001/internal/sideeffects"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	decimal.MarshalJSONWithoutQuotes = true
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mmysql.NewMySQL(cfg.MySQLDSN())
	if err != nil {
		slog.Error("db: connect", "err", err)
		os.Exit(1)
	}
	sqlDB, _ := db.DB()

	orderRepo := mysqlrepo.NewOrderRepository(db)
	notificationRepo := mysqlrepo.NewNotificationRepository(db)
	outboxRepo := mysqlrepo.NewOutboxRepository(db)

	var store cache.Store
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DB:           0,
			PoolSize:     200,
			MinIdleConns: 20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		store = cache.NewRedisStore(rdb)
	} else {
		slog.Warn("REDIS_ADDR not set, using in-process cache")
		store = cache.NewMemoryStore()
	}

	var broadcaster rabbitmq.BroadcasterInterface = rabbitmq.NopBroadcaster{}
	if cfg.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err != nil {
			slog.Error("failed to init publisher", "err", err)
			os.Exit(1)
		}
		defer publisher.Close()
		broadcaster = rabbitmq.NewBroadcaster(publisher)
	}

	var events kafka.EventPublisher = kafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		events = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer events.Close()

	productClient := infra.NewProductClient(cfg.ProductServiceURL, cfg.ClientTimeout)
	directoryClient := infra.NewDirectoryClient(cfg.UserServiceURL, cfg.ClientTimeout)
	messagingClient := infra.NewMessagingClient(cfg.MessagingBaseURL, cfg.MessagingTimeout)
	gatewayClient := infra.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayCurrency, cfg.GatewayTimeout)

	runner := sideeffects.NewRunner(outboxRepo, sideeffects.Options{
		MaxAttempts:  cfg.OutboxMaxAttempts,
		BatchSize:    cfg.OutboxBatchSize,
		PollInterval: cfg.OutboxPollInterval,
		Timeout:      cfg.SideEffectTimeout,
	})

	orderSvc := services.NewOrderService(orderRepo, outboxRepo, payment.NewVerifier(cfg.GatewayKeySecret), gatewayClient, runner)
	orderSvc.SetCache(store, cache.NewInvalidator(store, productClient), cfg.CacheTTL)
	orderSvc.SetEventPublisher(events)
	notificationSvc := services.NewNotificationService(orderRepo, notificationRepo, broadcaster)
	confirmationSvc := services.NewConfirmationService(orderRepo, directoryClient, messagingClient)
	services.RegisterTaskHandlers(runner, orderSvc, notificationSvc, confirmationSvc)

	go runner.Start(ctx)

	handler := httpctl.NewHandler(orderSvc, notificationSvc)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpctl.RequestID(), httpctl.Logger(), httpctl.Metrics())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "db": err.Error()})
			return
		}
		if p, ok := store.(cache.Pinger); ok {
			if err := p.Ping(pingCtx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "cache": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("starting order service", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server run", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "err", err)
	}
	runner.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = sqlDB.Close()
}
