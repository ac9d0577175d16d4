// Package api is the worker-facing HTTP surface: acquire, abort,
// analysis submission, key lookup, and queue status.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/lichess-org/deepq/pkg/broker"
	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/sink"
	"github.com/lichess-org/deepq/pkg/version"
)

// Server is the worker HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	store      *database.Store
	dbClient   *database.Client
	broker     *broker.Broker
	sink       *sink.Sink
}

// NewServer builds a Server with routes registered, ready to Start.
func NewServer(dbClient *database.Client, store *database.Store, b *broker.Broker, sk *sink.Sink) *Server {
	e := echo.New()

	s := &Server{
		echo:     e,
		store:    store,
		dbClient: dbClient,
		broker:   b,
		sink:     sk,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/key/:key", s.keyHandler)
	s.echo.GET("/status", s.statusHandler)

	s.echo.POST("/acquire", s.acquireHandler)
	s.echo.POST("/abort/:job_id", s.abortHandler)
	s.echo.POST("/analysis/:job_id", s.analysisHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// for tests that want a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type healthResponseDTO struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Database *database.HealthStatus `json:"database"`
}

func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.DB(), s.store)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthResponseDTO{
			Status:   "unhealthy",
			Version:  version.Full(),
			Database: dbHealth,
		})
	}
	return c.JSON(http.StatusOK, healthResponseDTO{
		Status:   "healthy",
		Version:  version.Full(),
		Database: dbHealth,
	})
}
