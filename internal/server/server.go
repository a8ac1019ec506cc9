package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/jobs"
	"github.com/coah80/userbot/internal/middleware"
	"github.com/coah80/userbot/internal/routes"
)

// ShutdownGrace is how long in-flight requests get on shutdown.
const ShutdownGrace = 5 * time.Second

func New(cfg config.HTTP, tempDir string, tracker *jobs.Tracker, limiter *middleware.RateLimiter, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           Router(cfg, tempDir, tracker, limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func Router(cfg config.HTTP, tempDir string, tracker *jobs.Tracker, limiter *middleware.RateLimiter, logger *zap.Logger) http.Handler {
	logger = logger.With(zap.String("component", "http"))
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(middleware.CORS(cfg.CORSOrigins, logger))
	r.Use(limiter.Handler)

	routes.CoreRoutes(r, tracker, tempDir)
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
