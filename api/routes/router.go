package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reports"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Cache is the Redis surface the router needs.
type Cache interface {
	redis.IdempotencyStore
	Ping(ctx context.Context) error
}

// Deps is everything the HTTP surface talks to. Redis and Gatherer may be
// nil: idempotency is then disabled and /metrics is not mounted.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         Cache
	Gatherer      prometheus.Gatherer
	ReportsTZ     *time.Location
	Products      product.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Reports       reports.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var idemStore redis.IdempotencyStore
	var redisPinger controllers.Pinger
	if d.Redis != nil {
		idemStore = d.Redis
		redisPinger = d.Redis
	}
	idempotent := middleware.Idempotency(idemStore, cfg.Idempotency.CheckoutTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": redisPinger,
		}))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.CatalogList(d.Products, logg))
		r.Get("/products/{productId}", controllers.CatalogDetail(d.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
			})
			r.With(idempotent).Post("/checkout", controllers.Checkout(d.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.CustomerListOrders(d.Orders, logg))
				r.Get("/{orderId}", controllers.CustomerOrderDetail(d.Orders, logg))
				r.With(idempotent).Post("/{orderId}/cancel", controllers.CustomerCancelOrder(d.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(d.Products, logg))
			r.Post("/", controllers.AdminCreateProduct(d.Products, logg))
			r.Put("/{productId}", controllers.AdminUpdateProduct(d.Products, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(d.Products, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(d.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/complete", controllers.AdminCompleteOrder(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/cancel", controllers.AdminCancelOrder(d.Orders, logg))
		})
		r.Get("/reports/sales", controllers.AdminSalesReport(d.Reports, d.ReportsTZ, logg))
	})

	return r
}
