package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonny/ifremediator/internal/adapter/inbound/callback/middleware"
)

const shutdownTimeout = 10 * time.Second

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per minute per remote IP; 0 disables it.
	RateLimit int
	Verify    middleware.VerifyConfig
}

// Server serves Slack interaction callbacks with graceful shutdown.
type Server struct {
	cfg     ServerConfig
	handler http.Handler
	logger  *slog.Logger
	srv     *http.Server
}

func NewServer(cfg ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// SetupRoutes builds the routed handler with all middleware applied.
//
//	GET  /health         liveness
//	POST /actions        interaction callbacks
//	POST /slack/actions  same, legacy path
func (s *Server) SetupRoutes() http.Handler {
	actions := middleware.BodyReader(middleware.SlackVerifier(s.cfg.Verify, s.logger)(s.handler))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", HealthHandler())
	mux.Handle("POST /actions", actions)
	mux.Handle("POST /slack/actions", actions)

	// Outermost first: RequestID -> Logging -> SecurityHeaders -> RateLimit.
	var h http.Handler = mux
	h = middleware.NewRateLimiter(s.cfg.RateLimit)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.NewLoggingMiddleware(s.logger)(h)
	h = middleware.RequestID(h)
	return h
}

// Start listens on the configured port and blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("callback server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.SetupRoutes(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("callback server listening", slog.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("callback server shutdown: %w", err)
		}
		s.logger.Info("callback server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
