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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawbazaar/marketplace-backend/api/routes"
	"github.com/pawbazaar/marketplace-backend/internal/adoptions"
	"github.com/pawbazaar/marketplace-backend/internal/appointments"
	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/inventory"
	"github.com/pawbazaar/marketplace-backend/internal/ledger"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/internal/orders"
	"github.com/pawbazaar/marketplace-backend/internal/vendors"
	"github.com/pawbazaar/marketplace-backend/pkg/config"
	"github.com/pawbazaar/marketplace-backend/pkg/db"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	"github.com/pawbazaar/marketplace-backend/pkg/metrics"
	"github.com/pawbazaar/marketplace-backend/pkg/migrate"
	"github.com/pawbazaar/marketplace-backend/pkg/redis"
	"github.com/pawbazaar/marketplace-backend/pkg/sendgrid"
	"github.com/pawbazaar/marketplace-backend/pkg/sslcommerz"
	"github.com/pawbazaar/marketplace-backend/pkg/steadfast"
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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	gateway, err := newGateway(cfg.Payment)
	requireResource(logg, "sslcommerz", err)

	guard, err := redis.NewGuard(redisClient, cfg.Fulfillment.CallbackGuardTTL, "payment-callback")
	requireResource(logg, "callback guard", err)

	renderer, err := notifications.NewRenderer()
	requireResource(logg, "notification templates", err)
	fanout, err := notifications.NewFanout(renderer, newMailSender(cfg.Sendgrid, logg), logg, fulfillmentMetrics)
	requireResource(logg, "notification fanout", err)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	requireResource(logg, "ledger", err)

	aggregator := vendors.NewAggregator(dbClient.DB())

	coordParams := fulfillment.Params{
		Gateway:         gateway,
		Notifier:        fanout,
		Stock:           inventory.NewLedger(dbClient.DB(), logg, fulfillmentMetrics),
		Vendors:         aggregator,
		Guard:           guard,
		Ledger:          ledgerService,
		Metrics:         fulfillmentMetrics,
		Logger:          logg,
		FrontendBaseURL: cfg.App.FrontendBaseURL,
		PublicBaseURL:   cfg.App.PublicBaseURL,
	}
	var tracking orders.TrackingClient
	if cfg.Courier.Enabled {
		courier, err := newCourier(cfg.Courier)
		requireResource(logg, "steadfast", err)
		coordParams.Courier = courier
		tracking = courier
	}

	coordinator, err := fulfillment.NewCoordinator(coordParams)
	requireResource(logg, "fulfillment coordinator", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	adoptionsRepo := adoptions.NewRepository(dbClient.DB())
	appointmentsRepo := appointments.NewRepository(dbClient.DB())
	coordinator.Register(orders.NewDomain(ordersRepo, cfg.Sendgrid.AdminEmail))
	coordinator.Register(adoptions.NewDomain(adoptionsRepo, cfg.Sendgrid.AdminEmail))
	coordinator.Register(appointments.NewDomain(appointmentsRepo))

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Coordinator: coordinator,
		Tracking:    tracking,
		Notifier:    fanout,
		IDLength:    cfg.Fulfillment.ExternalIDLength,
		ShippingFee: cfg.Fulfillment.ShippingFee,
		Logger:      logg,
	})
	requireResource(logg, "orders service", err)

	adoptionsService, err := adoptions.NewService(adoptions.ServiceParams{
		Repo:     adoptionsRepo,
		Tx:       dbClient,
		Starter:  coordinator,
		Notifier: fanout,
		IDLength: cfg.Fulfillment.ExternalIDLength,
		Logger:   logg,
	})
	requireResource(logg, "adoptions service", err)

	appointmentsService, err := appointments.NewService(appointments.ServiceParams{
		Repo:     appointmentsRepo,
		Starter:  coordinator,
		Notifier: fanout,
		IDLength: cfg.Fulfillment.ExternalIDLength,
		Logger:   logg,
	})
	requireResource(logg, "appointments service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"courier_enabled": cfg.Courier.Enabled,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			routes.Services{
				Callbacks:    coordinator,
				Orders:       ordersService,
				Adoptions:    adoptionsService,
				Appointments: appointmentsService,
				VendorOrders: aggregator,
			},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func newGateway(cfg config.PaymentConfig) (*sslcommerz.Client, error) {
	opts := []sslcommerz.Option{sslcommerz.WithCurrency(cfg.Currency)}
	if cfg.BaseURL != "" {
		opts = append(opts, sslcommerz.WithBaseURL(cfg.BaseURL))
	}
	return sslcommerz.NewClient(cfg.StoreID, cfg.StorePassword, cfg.Sandbox, opts...)
}

func newCourier(cfg config.CourierConfig) (*steadfast.Client, error) {
	var opts []steadfast.Option
	if cfg.BaseURL != "" {
		opts = append(opts, steadfast.WithBaseURL(cfg.BaseURL))
	}
	return steadfast.NewClient(cfg.APIKey, cfg.SecretKey, opts...)
}

// newMailSender falls back to logging mail when no SendGrid key is configured.
func newMailSender(cfg config.SendgridConfig, logg *logger.Logger) notifications.Sender {
	if cfg.APIKey == "" {
		logg.Warn(context.Background(), "sendgrid api key missing; notifications are logged only")
		return notifications.LogSender{Logg: logg}
	}
	var opts []sendgrid.Option
	if cfg.BaseURL != "" {
		opts = append(opts, sendgrid.WithBaseURL(cfg.BaseURL))
	}
	client, err := sendgrid.NewClient(cfg.APIKey, cfg.DefaultFrom, opts...)
	if err != nil {
		logg.Warn(context.Background(), "sendgrid client unavailable; notifications are logged only", err)
		return notifications.LogSender{Logg: logg}
	}
	return client
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "resource not working: "+resource, err)
	os.Exit(1)
}
