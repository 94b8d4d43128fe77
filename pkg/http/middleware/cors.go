package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is not allowed. An empty allow list admits everything.
func (cfg CORSConfig) allowOrigin(origin string) string {
	if len(cfg.AllowOrigins) == 0 {
		if origin == "" {
			return ""
		}
		return origin
	}
	for _, o := range cfg.AllowOrigins {
		switch {
		case o == "*" && origin == "":
			return "*"
		case o == "*" || o == origin:
			return origin
		}
	}
	return ""
}

// CORS answers preflight requests with 204 and decorates the rest. Requests
// from disallowed origins pass through untouched.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed := cfg.allowOrigin(c.Request().Header.Get(echo.HeaderOrigin))
			if allowed == "" && len(cfg.AllowOrigins) > 0 {
				return next(c)
			}

			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			if allowed != "" {
				h.Set(echo.HeaderAccessControlAllowOrigin, allowed)
			}
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
