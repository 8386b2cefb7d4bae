package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawbazaar/marketplace-backend/api/controllers"
	adoptioncontrollers "github.com/pawbazaar/marketplace-backend/api/controllers/adoptions"
	appointmentcontrollers "github.com/pawbazaar/marketplace-backend/api/controllers/appointments"
	ordercontrollers "github.com/pawbazaar/marketplace-backend/api/controllers/orders"
	vendorcontrollers "github.com/pawbazaar/marketplace-backend/api/controllers/vendors"
	"github.com/pawbazaar/marketplace-backend/api/middleware"
	"github.com/pawbazaar/marketplace-backend/internal/adoptions"
	"github.com/pawbazaar/marketplace-backend/internal/appointments"
	"github.com/pawbazaar/marketplace-backend/internal/orders"
	"github.com/pawbazaar/marketplace-backend/pkg/config"
	"github.com/pawbazaar/marketplace-backend/pkg/db"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	pkgredis "github.com/pawbazaar/marketplace-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope, subject string) string
	Ping(ctx context.Context) error
}

// Services groups the domain services behind the API.
type Services struct {
	Callbacks    controllers.CallbackHandler
	Orders       orders.Service
	Adoptions    adoptions.Service
	Appointments appointments.Service
	VendorOrders vendorcontrollers.OrderLister
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	callbackPolicy := middleware.NewRateLimitPolicy(
		"payment-callback",
		cfg.Fulfillment.CallbackWindow,
		cfg.Fulfillment.CallbackRateMax,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisStore,
		}))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/payments/{kind}/callback", func(r chi.Router) {
		r.Use(middleware.RateLimit(callbackPolicy, redisStore, logg))
		r.Get("/", controllers.PaymentCallback(svc.Callbacks, logg))
		r.Post("/", controllers.PaymentCallback(svc.Callbacks, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(svc.Orders, logg))
			r.Get("/{externalID}", ordercontrollers.Detail(svc.Orders, logg))
			r.Post("/{externalID}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
			r.Post("/{externalID}/return", ordercontrollers.Return(svc.Orders, logg))
			r.Post("/{externalID}/tracking", ordercontrollers.Tracking(svc.Orders, logg))
		})

		r.Route("/adoptions/applications", func(r chi.Router) {
			r.Post("/", adoptioncontrollers.Apply(svc.Adoptions, logg))
			r.Get("/{externalID}", adoptioncontrollers.Detail(svc.Adoptions, logg))
			r.Patch("/{externalID}/status", adoptioncontrollers.Decide(svc.Adoptions, logg))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", appointmentcontrollers.Book(svc.Appointments, logg))
			r.Get("/{externalID}", appointmentcontrollers.Detail(svc.Appointments, logg))
			r.With(middleware.RequireRole(logg, enums.RoleVet)).
				Patch("/{externalID}/status", appointmentcontrollers.UpdateStatus(svc.Appointments, logg))
		})

		r.With(middleware.RequireRole(logg, enums.RoleVendor)).
			Get("/vendor/orders", vendorcontrollers.Orders(svc.VendorOrders, logg))

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Patch("/{externalID}/status", ordercontrollers.AdminUpdateStatus(svc.Orders, logg))
			r.Post("/{externalID}/dispatch", ordercontrollers.AdminDispatch(svc.Orders, logg))
		})
	})

	return r
}
