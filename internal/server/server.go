// Package server wires the fiber app: middleware, the /api routes and the
// operational endpoints.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"wedding-invitation/internal/handler"
	"wedding-invitation/internal/metrics"
)

const readyTimeout = 3 * time.Second

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr            string
	CORSOrigins     string
	BodyLimit       int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RequestTimeout bounds the store calls of one API request
	RequestTimeout time.Duration
}

type Server struct {
	app *fiber.App
	cfg Config
	log zerolog.Logger
}

// New builds the app. m and gatherer may be nil, which disables /metrics.
func New(cfg Config, h *handler.Handler, ready Pinger, m *metrics.Metrics, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	log = log.With().Str("component", "http").Logger()

	app := fiber.New(fiber.Config{
		AppName:               "wedding-invitation",
		BodyLimit:             nonZeroInt(cfg.BodyLimit, 1<<20),
		ReadTimeout:           nonZeroDuration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:          nonZeroDuration(cfg.WriteTimeout, 15*time.Second),
		ErrorHandler:          handler.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(requestLogging(log, m))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: nonEmpty(cfg.CORSOrigins, "*"),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/readyz", readiness(ready, log))
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	h.Register(app.Group("/api", requestDeadline(nonZeroDuration(cfg.RequestTimeout, 10*time.Second))))

	return &Server{app: app, cfg: cfg, log: log}
}

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("Server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down server")
	case err := <-errCh:
		s.log.Error().Err(err).Msg("Server failed")
		return err
	}

	if err := s.app.ShutdownWithTimeout(nonZeroDuration(s.cfg.ShutdownTimeout, 10*time.Second)); err != nil {
		s.log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	s.log.Info().Msg("Server stopped")
	return nil
}

func readiness(ready Pinger, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ready == nil {
			return c.JSON(fiber.Map{"status": "ready"})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		if err := ready.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Readiness check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  "blob store is not reachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func nonEmpty(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
