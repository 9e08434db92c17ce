package middleware

import (
	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	TraceIDHeader   = "X-Trace-ID"
	TraceIDLocalKey = "traceID"

	maxTraceIDLength = 128
)

// TraceID reuses the caller's X-Trace-ID or mints one, and threads it into
// the request context for logger.TraceFromContext.
func (m *Middleware) TraceID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(TraceIDHeader)
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDHeader, traceID)
		c.Locals(TraceIDLocalKey, traceID)
		c.SetUserContext(logger.ContextWithTraceID(c.UserContext(), traceID))

		return c.Next()
	}
}

func GetTraceID(c *fiber.Ctx) string {
	if traceID, ok := c.Locals(TraceIDLocalKey).(string); ok {
		return traceID
	}
	return ""
}
