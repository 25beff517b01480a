package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/Lixing-Zhang/norivo-storefront/internal/config"
	"github.com/Lixing-Zhang/norivo-storefront/internal/coupon"
	"github.com/Lixing-Zhang/norivo-storefront/internal/events"
	"github.com/Lixing-Zhang/norivo-storefront/internal/handlers"
	"github.com/Lixing-Zhang/norivo-storefront/internal/payment"
	"github.com/Lixing-Zhang/norivo-storefront/internal/repository"
	"github.com/Lixing-Zhang/norivo-storefront/internal/service"
	"github.com/Lixing-Zhang/norivo-storefront/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting storefront api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
		"payment_mode", cfg.Payment.Mode,
	)

	ctx := context.Background()
	checks := make(map[string]handlers.HealthCheck)
	var closers []func()

	// Coupons
	couponHandler, coupons, err := buildCoupons(ctx, cfg.Coupon, log)
	if err != nil {
		log.Error("failed to load coupon data", "error", err)
		os.Exit(1)
	}

	// Orders
	var orders repository.OrderRepository = repository.NewInMemoryOrderRepository()
	if cfg.Database.URL != "" {
		if cfg.Database.RunMigrations {
			if err := repository.RunMigrations(cfg.Database.URL, log); err != nil {
				log.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
		}
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		closers = append(closers, pool.Close)
		checks["postgres"] = pool.Ping
		orders = repository.NewPostgresOrderRepository(pool)
		log.Info("orders stored in postgres")
	}

	// Carts
	var carts repository.CartStore = repository.NewInMemoryCartStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		carts = repository.NewRedisCartStore(rdb, cfg.Redis.CartTTL)
		log.Info("carts stored in redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CartTTL)
	}

	// Order events
	opts := service.CartServiceOptions{
		Policy: cart.PricingPolicy{
			TaxPerItem:  cfg.Pricing.TaxPerItem,
			DeliveryFee: cfg.Pricing.DeliveryFee,
			Currency:    cfg.Pricing.Currency,
		},
		PaymentTimeout: cfg.Payment.Timeout,
		PaymentRetries: cfg.Payment.Retries,
		Logger:         log,
	}
	if cfg.RabbitMQ.URL != "" {
		conn, publisher, err := events.Dial(cfg.RabbitMQ.URL, events.PublisherOptions{Producer: "storefront-api"})
		if err != nil {
			log.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func() {
			_ = publisher.Close()
			_ = conn.Close()
		})
		opts.Events = publisher
		log.Info("publishing order events to rabbitmq")
	}

	productService := service.NewProductService(repository.NewInMemoryProductRepository())
	cartService := service.NewCartService(
		productService,
		coupons,
		buildGateway(cfg.Payment),
		orders,
		carts,
		opts,
	)

	router := handlers.NewRouter(handlers.RouterDeps{
		Health:         handlers.NewHealthHandler(log, checks),
		Products:       handlers.NewProductHandler(productService, log),
		Coupons:        couponHandler,
		Cart:           handlers.NewCartHandler(cartService, log),
		Auth:           cfg.Auth,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: 60 * time.Second,
		AdminCoupons:   cfg.Coupon.BackendURL == "",
		Logger:         log,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(router, "storefront-api"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	log.Info("server stopped gracefully")
}

// buildCoupons returns the coupon handler and the lookup used by carts.
// A configured backend wins over the local catalog, and disables coupon admin.
func buildCoupons(ctx context.Context, cfg config.CouponConfig, log *slog.Logger) (*handlers.CouponHandler, coupon.Store, error) {
	if cfg.BackendURL != "" {
		remote := coupon.NewRemoteStore(cfg.BackendURL, nil)
		log.Info("using remote coupon backend", "url", cfg.BackendURL)
		return handlers.NewCouponHandler(remote, nil, log), remote, nil
	}

	catalog, err := coupon.NewCatalog()
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.Files) > 0 {
		if err := catalog.LoadFromFiles(ctx, cfg.Files); err != nil {
			return nil, nil, err
		}
	}
	if len(cfg.URLs) > 0 {
		loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := catalog.LoadFromURLs(loadCtx, cfg.URLs); err != nil {
			return nil, nil, err
		}
	}

	stats := catalog.Stats()
	log.Info("coupon catalog ready", "sources", stats.Sources, "coupons", stats.Coupons)
	return handlers.NewCouponHandler(catalog, catalog, log), catalog, nil
}

func buildGateway(cfg config.PaymentConfig) payment.Gateway {
	if cfg.Mode == config.PaymentModeHTTP {
		return payment.NewHTTPGateway(cfg.URL, payment.GatewayOptions{
			Timeout:             cfg.Timeout,
			BreakerMaxFailures:  uint32(cfg.BreakerMaxFailures),
			BreakerOpenInterval: cfg.BreakerOpenInterval,
		})
	}
	return payment.NewSimulator(payment.SimulatorOptions{
		Latency:     cfg.SimulatorLatency,
		DeclineRate: cfg.SimulatorDeclineRate,
		DeclineOver: cfg.SimulatorDeclineOver,
	})
}
