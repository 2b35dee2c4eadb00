package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// LocalRequestID clave de fiber.Locals con el id de la petición
const LocalRequestID = "requestID"

// RequestID propaga X-Request-ID o genera uno nuevo
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(LocalRequestID, id)
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}

// RequestIDFrom id de la petición actual
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}
