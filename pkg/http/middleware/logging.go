package middleware

import (
	"time"

	applogger "StratRun/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one debug line per request. A nil logger disables it.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			l.Debug("http request",
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", responseStatus(c, err)),
				applogger.Duration("took", time.Since(start)),
			)
			return err
		}
	}
}
