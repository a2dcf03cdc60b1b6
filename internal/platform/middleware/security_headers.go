package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders hardens the console's browser-facing responses. The BFF
// only ever serves JSON to the admin frontend and holds the upstream session
// for it, so nothing it returns may be rendered, framed or cached.
//
// TLS policy (HSTS) is left to the terminating proxy in front of the
// console; setting it here would also pin plain-HTTP local development.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			// Responses carry patient data keyed by the session cookie and
			// must never land in a shared cache.
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			return next(c)
		}
	}
}
