package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

// Logger writes one structured line per request. When the caller is
// authenticated the line carries the actor's user id and role, so access to
// patient data stays traceable to a user without a separate audit layer.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			method := c.Request().Method
			path := c.Request().URL.Path
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt = evt.
				Str("request_id", rid).
				Str("method", method).
				Str("path", path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			// The auth middleware runs deeper in the chain and swaps the
			// request context, so the session is read back after next.
			if sess, ok := auth.SessionFromContext(c.Request().Context()); ok {
				evt = evt.
					Int64("user_id", sess.UserID).
					Str("role", string(sess.Role))
			}

			evt.Msg("request")
			return err
		}
	}
}
