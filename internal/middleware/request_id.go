package middleware

import (
	"time"

	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = contextPkg.RequestHeader

func NewRequestIDMiddleware() fiber.Handler {
	utilsInstance := utils.New(0)

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if requestID == "" {
			requestID, _ = utilsInstance.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}
