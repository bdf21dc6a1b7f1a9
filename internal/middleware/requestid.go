package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// NewRequestID tags every request with an ID, reusing a well-formed
// incoming X-Request-ID and minting a UUID otherwise.
func NewRequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// RequestID returns the ID assigned by NewRequestID, or "".
func RequestID(c fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
