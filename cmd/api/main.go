package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reports"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// without Redis the API still serves; idempotency keys are not enforced
	var cache routes.Cache
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		cache = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency keys disabled")
	}

	reportsTZ, err := cfg.Reports.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid reports timezone", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildServices(cfg, logg, dbClient, metrics.NewOrderMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = cache
	deps.Gatherer = registry
	deps.ReportsTZ = reportsTZ

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// buildServices wires repositories, the notifier, and every domain service.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, orderMetrics *metrics.OrderMetrics) (routes.Deps, error) {
	conn := dbClient.DB()
	policy := inventory.Policy{LowStockCeiling: cfg.Stock.LowStockCeiling}
	stock := inventory.NewRepository(conn)
	usersRepo := users.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)

	dispatcher, err := notifications.NewStoreDispatcher(dbClient, notificationsRepo, outbox.NewService(outbox.NewRepository(conn), logg))
	if err != nil {
		return routes.Deps{}, err
	}
	admins, err := users.NewAdminResolver(usersRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	notifier, err := notifications.NewNotifier(notifications.NotifierParams{
		Dispatcher: dispatcher,
		Admins:     admins,
		Users:      usersRepo,
		Policy:     policy,
		Metrics:    orderMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	productService, err := product.NewService(product.NewRepository(conn), stock, dbClient, notifier, policy)
	if err != nil {
		return routes.Deps{}, err
	}
	cartService, err := cart.NewService(cartRepo, stock, dbClient)
	if err != nil {
		return routes.Deps{}, err
	}
	checkoutService, err := checkout.NewService(dbClient, cartRepo, ordersRepo, stock, notifier, orderMetrics)
	if err != nil {
		return routes.Deps{}, err
	}
	ordersService, err := orders.NewService(ordersRepo, stock, dbClient, notifier, orderMetrics)
	if err != nil {
		return routes.Deps{}, err
	}
	reportsService, err := reports.NewService(reports.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Products:      productService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Reports:       reportsService,
		Notifications: notificationsService,
	}, nil
}
