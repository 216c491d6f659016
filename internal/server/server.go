package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/Twe-ux/arc-messenger/internal/config"
	"github.com/Twe-ux/arc-messenger/internal/history"
	"github.com/Twe-ux/arc-messenger/internal/logging"
	"github.com/Twe-ux/arc-messenger/internal/store"
)

const (
	// DefaultRequestTimeout caps the handling time of one API request,
	// including the Gmail fan-out behind it.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// Per-IP request budget. Conversation listing fans out to many
	// upstream calls, so the API budget is deliberately modest.
	defaultRateLimit = rate.Limit(10)
	defaultRateBurst = 30
)

// Server is the HTTP front of the messaging backend.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	services ServiceFactory
	store    *store.Store
	history  history.Store
	health   *HealthChecker
	metrics  *Metrics
	limiter  *ipRateLimiter

	httpServer    *http.Server
	metricsServer *MetricsServer
}

// New assembles the server from its dependencies. historyStore may be
// nil, in which case the SQLite store doubles as the history baseline
// store.
func New(cfg *config.Config, logger *slog.Logger, services ServiceFactory, st *store.Store, historyStore history.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if historyStore == nil {
		historyStore = st
	}

	s := &Server{
		cfg:      cfg,
		logger:   logging.WithService(logger, "server"),
		services: services,
		store:    st,
		history:  historyStore,
		health:   NewHealthChecker(),
		metrics:  NewMetrics(),
		limiter:  newIPRateLimiter(defaultRateLimit, defaultRateBurst),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.MetricsEnabled {
		s.metricsServer = NewMetricsServer(cfg.MetricsAddr, s.metrics)
	}
	return s
}

// routes builds the chi router for the public API surface.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(DefaultRequestTimeout))
	r.Use(s.metrics.middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.limiter.middleware)

	s.health.RegisterHealthEndpoints(r)

	r.Route("/api/gmail", func(r chi.Router) {
		// The push webhook authenticates via the Pub/Sub envelope, not
		// a user session.
		r.Post("/notifications", s.handleNotification)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Use(s.withInbox)

			r.Get("/conversations", s.handleConversations)
			r.Get("/conversations/{threadID}/messages", s.handleConversationMessages)
			r.Post("/conversations/{threadID}/messages", s.handleConversationAction)
			r.Get("/messages", s.handleMessages)
			r.Get("/messages/{messageID}/attachments/{attachmentID}", s.handleAttachment)
			r.Get("/correspondents", s.handleCorrespondents)
			r.Get("/labels", s.handleLabels)
			r.Get("/profile", s.handleProfile)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Post("/watch", s.handleStartWatch)
			r.Delete("/watch", s.handleStopWatch)
		})
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)
		r.Put("/status", s.handlePutStatus)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}

// Start runs the API server and, when enabled, the metrics server. It
// blocks until the context is cancelled or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("starting api server", slog.String("addr", s.cfg.ListenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.metricsServer != nil {
		go func() {
			if err := s.metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains both listeners. Readiness starts failing immediately
// so load balancers stop routing new traffic.
func (s *Server) Shutdown() error {
	s.health.MarkShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Info("server stopped")
	return nil
}

// Handler exposes the assembled router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
