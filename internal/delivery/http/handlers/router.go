package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const HookSecretHeader = "x-hasura-admin-secret"

type RouterConfig struct {
	// HookSecret guards the event trigger endpoints. Empty disables it.
	HookSecret string
	Metrics    http.Handler
	Logger     *slog.Logger
}

func NewRouter(payment *PaymentHandler, cfg RouterConfig) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/payment/request", func(r chi.Router) {
			r.Use(requireHookSecret(cfg.HookSecret))
			r.Post("/process", payment.ProcessRequest)
			r.Post("/retry", payment.RetryRequest)
			r.Post("/initiate", payment.InitiateRequest)
		})
		r.Post("/webhooks/gateway", payment.GatewayWebhook)
	})
	return r
}

func requireHookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeJSON(w, http.StatusUnauthorized, response.Envelope{Success: false, Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
