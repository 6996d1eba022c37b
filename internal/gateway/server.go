// Package gateway is the HTTP front end that runs in the foreground after the
// launcher's handoff. It serves liveness and readiness, lists prompt
// templates and forwards chat completions to the backend while the operating
// mode is full.
package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inferd/internal/backend"
	"inferd/internal/prompts"
	"inferd/internal/upstream"
	"inferd/pkg/types"
)

// DefaultMaxBodyBytes bounds chat request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Nudger asks the watchdog for an immediate backend check.
type Nudger interface {
	Nudge()
}

// Options configures NewMux.
type Options struct {
	Mode     backend.ModeSource
	Upstream *upstream.Client
	Prompts  prompts.Store
	// SystemPrompt is used when a request names no template.
	SystemPrompt string

	MaxInflight  int
	MaxQueueWait time.Duration
	MaxBodyBytes int64
	CORSOrigins  []string

	Nudger Nudger
	Log    zerolog.Logger
}

type server struct {
	opts     Options
	admit    *admission
	validate *validator.Validate
}

// NewMux builds the gateway router.
func NewMux(opts Options) http.Handler {
	if opts.Mode == nil {
		opts.Mode = backend.StaticMode(types.ModeDegraded)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &server{
		opts:     opts,
		admit:    newAdmission(opts.MaxInflight, opts.MaxQueueWait),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	// CORS is opt-in.
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/prompts", s.handlePrompts)
	r.Post("/v1/chat/completions", s.handleChat)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// handleHealth is liveness: the gateway answers even when degraded.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := s.opts.Mode.Mode()
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", Upstream: mode.Full(), Mode: mode})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	mode := s.opts.Mode.Mode()
	if !mode.Full() {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "mode": mode.String()})
}

func (s *server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	names, err := s.opts.Prompts.List()
	if err != nil {
		s.opts.Log.Error().Err(err).Str("dir", s.opts.Prompts.Dir).Msg("list prompts")
		writeJSONError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}
	writeJSON(w, http.StatusOK, names)
}
