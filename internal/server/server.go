// Package server wires the HTTP routes and middleware and runs the listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contactlink/internal/config"
	"contactlink/internal/handlers"
	"contactlink/internal/metrics"
	"contactlink/internal/middleware"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Identifier handlers.Identifier
	Store      handlers.Pinger
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// Server is the identify API listener.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	limiter *middleware.RateLimiter
	handler http.Handler
}

// New builds the router and middleware chain.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	if cfg.RateLimitRPS > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}
	s.handler = s.routes(deps)
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(deps Deps) http.Handler {
	identify := handlers.NewIdentifyHandler(deps.Identifier, s.logger)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	router.Use(middleware.Metrics(deps.Metrics))

	router.HandleFunc("/identify", identify.Handle).Methods(http.MethodPost)
	router.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", handlers.Ready(deps.Store, s.logger)).Methods(http.MethodGet)
	router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/", handlers.Root).Methods(http.MethodGet)

	// Outermost first: request id, recovery, logging, cors, rate limit.
	var h http.Handler = router
	if s.limiter != nil {
		h = s.limiter.Handler(h)
	}
	h = middleware.NewCORS(s.cfg.AllowedOrigins).Handler(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.Recovery(s.logger)(h)
	return middleware.RequestID(h)
}

// Run serves on ln until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	if s.limiter != nil {
		s.limiter.StartCleanup(time.Minute, done)
	}

	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		close(done)
		s.logger.Info("http server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// ListenAndRun listens on the configured address and calls Run.
func (s *Server) ListenAndRun(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Run(ctx, ln)
}
