package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/mvetrov/go_checkout/internal/cache"
	h "github.com/mvetrov/go_checkout/internal/http"
	"github.com/mvetrov/go_checkout/internal/payment"
	"github.com/mvetrov/go_checkout/internal/publisher"
	"github.com/mvetrov/go_checkout/internal/repository"
	"github.com/mvetrov/go_checkout/internal/service"
	"github.com/mvetrov/go_checkout/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("service configuration",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.Bool("cache_enabled", cfg.RedisAddr != ""))

	store := newStore(cfg, logger)
	defer store.Close()

	var orderCache cache.OrderCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		orderCache = cache.NewRedisCache(redisClient)
	}

	gateway := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentTimeout)
	checkoutService := service.NewCheckoutService(store, gateway, orderCache, logger)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	poller := publisher.NewOutboxPoller(store, logger, strings.Split(cfg.KafkaBrokers, ",")...)
	go poller.Run(pollerCtx)

	checkoutHandler := h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout, logger)
	ordersHandler := h.NewOrdersHandler(checkoutService, cfg.RequestTimeout, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Get("/orders/{cart_id}", ordersHandler.GetOrder)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "checkout"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("checkout service starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
}

func newStore(cfg *config.Config, logger *zap.Logger) repository.OrderStore {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory order store, orders will not survive restarts")
		return repository.NewMemoryStore(cfg.OrderTTL)
	}

	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}

	store, err := repository.NewPostgresStore(cred, cfg.OrderTTL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if err := store.RunMigrations(cred); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	return store
}
