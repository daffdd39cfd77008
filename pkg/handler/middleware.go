package handler

import (
	"promptgate/pkg/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

// RequestID echoes X-Request-ID, generating one when absent, and tags the
// request context with a debug ID derived from it.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.SetRequest(req.WithContext(utils.WithDebugID(req.Context(), debugID(id))))
			return next(c)
		}
	}
}

// debugID shortens a request ID for log lines.
func debugID(requestID string) string {
	if len(requestID) > 8 {
		return requestID[:8]
	}
	return requestID
}
