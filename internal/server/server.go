package server

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/chat-app/services/realtime-service/internal/metrics"
	"github.com/yourorg/chat-app/services/realtime-service/internal/middleware"
	"github.com/yourorg/chat-app/services/realtime-service/internal/ws"
)

// New assembles the fiber app: health, metrics, and the websocket endpoint.
// limiter may be nil when Redis is not configured.
func New(wsHandler *ws.Handler, limiter *middleware.RateLimiter) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	wsRoute := app.Group("/ws")
	if limiter != nil {
		wsRoute.Use(limiter.ByKey(func(c *fiber.Ctx) string { return c.IP() }))
	}
	wsRoute.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	wsRoute.Get("/", websocket.New(wsHandler.Serve))

	return app
}
