package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	hstsMaxAge = 365 * 24 * 60 * 60
	// JSON only, nothing to frame or load
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
)

// Security returns the CORS, body limit and response header middleware for
// the JSON API, in that order. Credentials are never allowed cross-origin.
func Security(origins []string, bodyLimit string) []echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return []echo.MiddlewareFunc{
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}),
		middleware.BodyLimit(bodyLimit),
		middleware.SecureWithConfig(middleware.SecureConfig{
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "DENY",
			HSTSMaxAge:            hstsMaxAge,
			ContentSecurityPolicy: apiCSP,
			ReferrerPolicy:        "no-referrer",
		}),
	}
}
