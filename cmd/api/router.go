package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/adspend-reports/pkg/interceptors"
	"github.com/FACorreiaa/adspend-reports/pkg/observability"
)

var errNoDatabase = errors.New("database not initialized")

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	tracer := otel.GetTracerProvider().Tracer("adspend/api")

	r.Use(
		interceptors.NewRequestID("X-Request-ID"),
		interceptors.NewTracing(tracer),
		interceptors.NewRecovery(deps.Logger),
		interceptors.NewLogging(deps.Logger),
	)
	if deps.Config.Observability.MetricsEnabled {
		r.Use(observability.Metrics)
	}

	jwtSecret := []byte(deps.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		deps.Logger.Warn("AUTH_JWT_SECRET is empty; /api is served without authentication")
	}

	var uploadMW []func(http.Handler) http.Handler
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		uploadMW = append(uploadMW, interceptors.NewRateLimit(limiter))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(interceptors.NewAuth(jwtSecret))

		if deps.ReportHandler != nil {
			deps.ReportHandler.Routes(r)
		}
		if deps.InvoiceHandler != nil {
			deps.InvoiceHandler.Routes(r)
		}
		if deps.ImportHandler != nil {
			deps.ImportHandler.Routes(r, uploadMW...)
		}
	})
	deps.Logger.Info("registered API routes", "prefix", "/api")

	registerUtilityRoutes(r, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           7200, // Cache preflights for 2 hours
	})

	return corsHandler.Handler(r)
}

func (d *Dependencies) checkDatabase() error {
	if d.DB == nil {
		return errNoDatabase
	}
	return d.DB.Health()
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(r chi.Router, deps *Dependencies) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"service": "adspend-reports", "status": "ok"}); err != nil {
			deps.Logger.Error("failed to write root response", slog.Any("error", err))
		}
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.checkDatabase(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, writeErr := w.Write([]byte("database unhealthy")); writeErr != nil {
				deps.Logger.Error("failed to write health response", slog.Any("error", writeErr))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health check", "path", "/health")

	// Extended health with details on dependencies
	r.Get("/health/details", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status string `json:"status"`
			Detail string `json:"detail,omitempty"`
		}
		result := map[string]status{
			"db":      {Status: "ok"},
			"archive": {Status: "ok"},
			"ready":   {Status: "ok"},
		}

		if err := deps.checkDatabase(); err != nil {
			result["db"] = status{Status: "fail", Detail: err.Error()}
			result["ready"] = status{Status: "fail", Detail: "db unavailable"}
		}

		if deps.Config.Archive.Bucket == "" {
			result["archive"] = status{Status: "warn", Detail: "ARCHIVE_BUCKET not set, uploads are not archived"}
		}

		code := http.StatusOK
		if result["ready"].Status == "fail" {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			deps.Logger.Error("failed to encode health details", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health details", "path", "/health/details")

	// Readiness check endpoint
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			deps.Logger.Error("failed to write readiness response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	// Metrics endpoint (Prometheus)
	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
