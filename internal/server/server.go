package server

import (
	"fmt"
	"net/http"
	"time"

	"phone-pos/internal/cas"
	"phone-pos/internal/config"
	custommiddleware "phone-pos/internal/middleware"
	"phone-pos/internal/sequence"
	"phone-pos/internal/service"
	"phone-pos/internal/stock"
	"phone-pos/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	backends *Backends
}

func NewServer(cfg *config.Config, logger *zap.Logger, backends *Backends) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"status": "ok", "store_backend": cfg.Store.Backend}
		code := http.StatusOK
		if backends.DB != nil {
			health := backends.DB.Health()
			status["database"] = health
			if health["status"] != "up" {
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		custommiddleware.RespondWithJSON(w, code, status)
	})
	router.Handle("/metrics", promhttp.Handler())

	policy := cas.Policy{Retries: cfg.Sales.CASRetries, Base: cfg.Sales.CASBackoff}

	stockManager := stock.NewManager(backends.Repos.Products, backends.Repos.Categories, policy, logger)
	receipts := sequence.NewGenerator(backends.Counters, policy, logger)

	saleService := service.NewSaleService(backends.Repos, stockManager, receipts, service.Options{
		PaymentEpsilon: cfg.Sales.PaymentEpsilon,
		Stores:         cfg.Store.Names,
		Policy:         policy,
	}, logger)
	cartService := service.NewCartService(backends.Repos.Products, backends.Repos.BundleRules, logger)
	settingsService := service.NewSettingsService(backends.Repos.Settings, logger)

	saleHandler := transport.NewSaleHandler(saleService, cartService, settingsService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	if cfg.RateLimit.Enabled && backends.Redis != nil {
		limiter := custommiddleware.RateLimitMiddleware(backends.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit",
		}, logger)
		verify := authMiddleware
		authMiddleware = func(next http.Handler) http.Handler { return verify(limiter(next)) }
	}

	saleHandler.RegisterRoutes(router, authMiddleware, custommiddleware.RequireAdmin(logger))

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		backends: backends,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.backends.Close(); err != nil {
		s.logger.Error("Failed to close backends", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
