// Package admin serves the router's HTTP inspection and control surface.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/diagctl/internal/observability"
	"github.com/danmuck/diagctl/internal/router"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	router *router.Router
	engine *gin.Engine
	log    zerolog.Logger
}

func New(id, addr string, rt *router.Router, logger zerolog.Logger, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(observability.RequestLogger(logger))
	e.Use(observability.RequestMetricsMiddleware(id))
	e.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = e.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		router:   rt,
		engine:   e,
		log:      logger.With().Str("component", "admin").Logger(),
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.engine
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.Addr).Msg("admin listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info().Msg("admin stopped")
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
