package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	pingTimeout     = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ConnectionChecker interface {
	IsConnected() bool
}

func New() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

// Register mounts /health and /metrics. Health is 200 only when the database
// answers a ping and the broker session is up.
func Register(app *fiber.App, db Pinger, broker ConnectionChecker) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
		defer cancel()

		status := fiber.Map{"database": "ok", "broker": "connected"}
		healthy := true
		if err := db.Ping(ctx); err != nil {
			status["database"] = err.Error()
			healthy = false
		}
		if !broker.IsConnected() {
			status["broker"] = "disconnected"
			healthy = false
		}
		if !healthy {
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// Serve listens on addr until ctx is done, then shuts the app down.
func Serve(ctx context.Context, app *fiber.App, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("ops http listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("ops http shutdown")
	}
	return nil
}
