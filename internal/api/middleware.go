// middleware.go: request logging and metrics middleware.
package api

import (
	"time"

	"github.com/labstack/echo/v4"
)

// LoggingMiddleware logs every request with its outcome and records metrics.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			elapsed := time.Since(start)

			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			if c.metrics != nil {
				c.metrics.RecordHTTPRequest(ctx.Request().Method, ctx.Path(), status, elapsed)
			}

			if c.logger != nil {
				c.logger.Info("Request handled",
					"method", ctx.Request().Method,
					"path", ctx.Request().URL.Path,
					"status", status,
					"duration_ms", elapsed.Milliseconds(),
					"ip", ctx.RealIP(),
				)
			}

			return err
		}
	}
}
