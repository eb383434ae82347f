package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trngon/payment/internal/infrastructure/config"
	"github.com/trngon/payment/internal/infrastructure/observability"
	customMW "github.com/trngon/payment/internal/middleware"
	"github.com/trngon/payment/internal/providers"
)

type RouterDeps struct {
	Gateways   *providers.Factory
	Metrics    *observability.Metrics
	Gatherer   prometheus.Gatherer
	Broker     ConnectionChecker
	JWTSecret  string
	RateLimit  int
	CORSConfig config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.Gateways, deps.Broker)
	gatewayH := NewGatewayController(deps.Gateways, deps.Metrics)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(deps.RateLimit))

		r.Get("/gateways", gatewayH.ListGateways)
		r.Get("/gateways/{gateway}/merchants", gatewayH.ListMerchants)
		r.With(customMW.RequireAuth(deps.JWTSecret)).
			Post("/gateways/{gateway}/checkout", gatewayH.Checkout)
	})

	return r
}
