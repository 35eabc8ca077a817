package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brewhouse/cafe-backend/api/controllers"
	cartcontrollers "github.com/brewhouse/cafe-backend/api/controllers/cart"
	ordercontrollers "github.com/brewhouse/cafe-backend/api/controllers/orders"
	"github.com/brewhouse/cafe-backend/api/middleware"
	"github.com/brewhouse/cafe-backend/internal/cart"
	"github.com/brewhouse/cafe-backend/internal/orders"
	pkgauth "github.com/brewhouse/cafe-backend/pkg/auth"
	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/metrics"
	"github.com/brewhouse/cafe-backend/pkg/redis"
)

// Deps is everything the router wires into handlers. A nil DB or Redis is
// reported as skipped on /health/ready; a nil Registry disables /metrics.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Cart     cart.Service
	Orders   orders.Service
	Registry *prometheus.Registry
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.AccessLog(logg, metrics.NewHTTPMetrics(registerer(d.Registry))),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	ready := map[string]controllers.Pinger{"db": d.DB, "redis": nil}
	var idempotencyStore redis.IdempotencyStore
	if d.Redis != nil {
		ready["redis"] = d.Redis
		idempotencyStore = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	cartService, ordersService := d.Cart, d.Orders
	authenticated := chi.Chain(
		middleware.Auth(pkgauth.NewVerifier(cfg.JWT), logg),
		middleware.Idempotency(idempotencyStore, logg),
	)

	r.Route("/cart", func(r chi.Router) {
		r.Use(authenticated...)
		r.Get("/getCartByUserId/{userId}", cartcontrollers.CartFetch(cartService, logg))
		r.Post("/insertCart", cartcontrollers.CartAddProduct(cartService, logg))
		r.Post("/addCombo", cartcontrollers.CartAddCombo(cartService, logg))
		r.Put("/updateCartQuantity", cartcontrollers.CartUpdateQuantity(cartService, logg))
		r.Delete("/removeProduct", cartcontrollers.CartRemoveItem(cartService, logg))
		r.Post("/clearCart", cartcontrollers.CartClear(cartService, logg))
		r.Post("/apply-voucher", cartcontrollers.CartApplyVoucher(cartService, logg))
	})

	r.Route("/order", func(r chi.Router) {
		// The gateway redirects the shopper's browser here without credentials.
		r.Get("/vnpay_return", ordercontrollers.VNPayReturn(ordersService, cfg.VNPay.FailureURL))

		r.Group(func(r chi.Router) {
			r.Use(authenticated...)
			r.Post("/insertOrder", ordercontrollers.InsertOrder(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Post("/{orderId}/payment-url", ordercontrollers.RetryPayment(ordersService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireOperator(logg))
				r.Put("/updateOrder", ordercontrollers.UpdateOrder(ordersService, logg))
				r.Get("/getAllOrder", ordercontrollers.List(ordersService, logg))
			})
		})
	})

	return r
}

// registerer avoids handing a typed nil *Registry to code that checks for a nil interface.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}
