// Package httpapi serves the goSession engine over HTTP under /api/auth.
//
// Tokens travel in HttpOnly cookies (access_token, refresh_token). Guarded
// routes also accept "Authorization: Bearer". Errors render as
// {"detail": "..."}.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/observability"
	sessionmw "github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
	maxJSONBodyBytes  = 1 << 20
)

// Options configures the router. The zero value serves with Secure cookies
// and no CORS origins.
type Options struct {
	// CookieInsecure drops the Secure attribute. Only for plain-HTTP development.
	CookieInsecure bool
	CookieDomain   string
	AllowedOrigins []string

	Logger   *slog.Logger
	Reporter observability.Reporter

	// MetricsHandler is mounted at GET /metrics when set.
	MetricsHandler http.Handler
}

type Handler struct {
	engine   *goSession.Engine
	cookies  cookiePolicy
	logger   *slog.Logger
	reporter observability.Reporter
}

// NewRouter builds the chi router for engine.
func NewRouter(engine *goSession.Engine, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	h := &Handler{
		engine:   engine,
		cookies:  cookiePolicy{secure: !opts.CookieInsecure, domain: opts.CookieDomain},
		logger:   logger,
		reporter: reporter,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(sessionmw.ClientMeta)

	r.Get("/healthz", h.handleHealth)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(sessionmw.GuardWithOptions(engine, sessionmw.Options{
				CookieName: accessCookieName,
				OnError:    h.guardError,
			}))

			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
			r.Post("/mfa/setup", h.handleMFASetup)
			r.Post("/mfa/enable", h.handleMFAEnable)
			r.Post("/mfa/disable", h.handleMFADisable)
			r.Post("/password/change", h.handlePasswordChange)
		})
	})

	return r
}

// requestLogger writes one slog line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
