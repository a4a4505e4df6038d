package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/podpay/fee-engine/internal/api/handler"
	"github.com/podpay/fee-engine/internal/api/middleware"
	"github.com/podpay/fee-engine/internal/api/spec"
	"github.com/podpay/fee-engine/internal/config"
	"github.com/podpay/fee-engine/internal/fees"
	"github.com/podpay/fee-engine/internal/idempotency"
	"github.com/podpay/fee-engine/internal/notify"
	"github.com/podpay/fee-engine/internal/resilience"
	"github.com/podpay/fee-engine/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *pgxpool.Pool
	redis  redis.UniversalClient
	idem   *idempotency.Store
	store  service.QueryStore
	calc   *fees.Calculator
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.UniversalClient, idem *idempotency.Store, store service.QueryStore, calc *fees.Calculator) *Router {
	return &Router{
		cfg:    cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		idem:   idem,
		store:  store,
		calc:   calc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Services
	var publisher fees.Publisher = fees.NoopPublisher{}
	if api.redis != nil {
		publisher = fees.NewRedisPublisher(api.redis)
	}
	feeRuleSvc := service.NewFeeRuleService(api.store, publisher, api.logger)
	saleSvc := service.NewSaleService(api.store, api.calc, api.cfg.WebhookHMACKey, api.cfg.WebhookSkipSignature, api.logger)
	if api.cfg.NotifyWebhookURL != "" {
		dispatcher := notify.NewDispatcher(notify.NewWebhookNotifier(nil), api.store.Queries(), api.logger).
			WithConfig(resilience.Config{
				MaxAttempts:    api.cfg.NotifyMaxAttempts,
				BaseDelay:      api.cfg.NotifyBaseDelay,
				AttemptTimeout: resilience.DefaultConfig().AttemptTimeout,
			})
		saleSvc.WithNotifications(dispatcher, api.cfg.NotifyWebhookURL)
	}
	balanceSvc := service.NewBalanceService(api.store)

	// Handlers
	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	feeHandler := handler.NewFeeHandler(feeRuleSvc, api.calc)
	checkoutHandler := handler.NewCheckoutHandler()
	webhookHandler := handler.NewWebhookHandler(saleSvc)
	saleHandler := handler.NewSaleHandler(saleSvc)
	balanceHandler := handler.NewBalanceHandler(balanceSvc)

	// Public Routes
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/v1/webhooks/processor", webhookHandler.HandleProcessorWebhook)
		r.Post("/v1/checkout/validate", checkoutHandler.Validate)
	})

	// Protected Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/balance", balanceHandler.GetBalance)
		r.Get("/v1/sales/{id}", saleHandler.GetSale)
		r.Post("/v1/fees/simulate", feeHandler.Simulate)

		// Fee schedule administration
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.Get("/v1/admin/fees", feeHandler.ListRules)
			r.With(middleware.IdempotencyMiddleware(api.idem, api.logger)).Put("/v1/admin/fees", feeHandler.UpsertRule)
			r.With(middleware.IdempotencyMiddleware(api.idem, api.logger)).Delete("/v1/admin/fees/{feeType}", feeHandler.DeactivateRule)
		})
	})

	return r
}
