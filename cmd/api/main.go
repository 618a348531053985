package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"marketplace-api/internal/cache"
	"marketplace-api/internal/config"
	"marketplace-api/internal/db"
	"marketplace-api/internal/events"
	"marketplace-api/internal/httpserver"
	"marketplace-api/internal/metrics"
	"marketplace-api/internal/seed"
	cartsvc "marketplace-api/internal/service/cart"
	ordersvc "marketplace-api/internal/service/order"
	productsvc "marketplace-api/internal/service/product"
	usersvc "marketplace-api/internal/service/user"
	"marketplace-api/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()

	var (
		st     store.Store
		dbpool *pgxpool.Pool
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		st = store.NewMemory()
		logger.Printf("using in-memory storage")
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect to db: %v", err)
		}
		dbpool = pool
		st = store.NewPostgres(pool, logger)
	default:
		logger.Fatalf("unknown storage driver %q", cfg.StorageDriver)
	}
	defer st.Close()

	repos := st.Repos()
	userService := usersvc.New(repos.Users, repos.Tokens, cfg.TokenTTL)

	if cfg.StorageDriver == config.DriverMemory {
		if err := seed.Apply(ctx, userService, repos.Users, repos.Products); err != nil {
			logger.Fatalf("seed memory store: %v", err)
		}
	}

	productService := productsvc.New(repos.Products, nil, logger)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Printf("redis unavailable, catalog cache disabled: %v", err)
		} else {
			defer rdb.Close()
			catalog := cache.NewCatalog(rdb, cfg.CatalogCacheTTL, logger)
			productService = productsvc.New(repos.Products, catalog, logger)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, 1024, logger)
		producer.Start()
		defer producer.Close()
		publisher = producer
	}

	serverMetrics := metrics.New(cfg.ServiceName)
	orderService := ordersvc.New(st, publisher, serverMetrics, cfg.ServiceName, logger)

	deps := httpserver.Deps{
		UserSvc:     userService,
		ProductSvc:  productService,
		CartSvc:     cartsvc.New(st),
		OrderSvc:    orderService,
		Metrics:     serverMetrics,
		CORSOrigins: cfg.CORSOrigins,
	}

	var srv *httpserver.Server
	var err error
	if dbpool != nil {
		srv, err = httpserver.New(cfg.HTTPAddr, logger, dbpool, deps)
	} else {
		srv, err = httpserver.New(cfg.HTTPAddr, logger, nil, deps)
	}
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
