package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const RequestIDHeader = "X-Request-ID"

// RequestID ensures every request carries a correlation id: an inbound
// X-Request-ID is preserved, otherwise a new one is generated. The id is
// stored on the context for the logger and echoed on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

// requestID reads the id stored by RequestID, or "" when the middleware is
// not installed.
func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
