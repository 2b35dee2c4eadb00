package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"Omerix_API_Informes/pkg/logger"
)

// LoggerMiddleware registra detalles de cada solicitud HTTP
func LoggerMiddleware(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// el error aún no ha pasado por el ErrorHandler
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		keysAndValues := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(c),
		}
		if actor, ok := ActorFrom(c); ok {
			keysAndValues = append(keysAndValues, "tenant_id", actor.TenantID.Hex())
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP Request", keysAndValues...)
		} else {
			log.Info("HTTP Request", keysAndValues...)
		}

		return err
	}
}

// SetupMiddleware configura los middlewares comunes
func SetupMiddleware(app *fiber.App, log *logger.Logger, cors CORSConfig) {
	app.Use(recover.New())
	app.Use(RequestID())
	app.Use(CORSMiddleware(cors))
	app.Use(SecurityHeadersMiddleware())
	app.Use(LoggerMiddleware(log))
}
