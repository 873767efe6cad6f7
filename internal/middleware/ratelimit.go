package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ORBLab/internal/service/ratelimit"
	xhttp "ORBLab/pkg/http"
)

// RateLimit rejects requests once the client IP has used up its bucket.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c,
					xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many backtest requests", http.StatusTooManyRequests).
						WithParam("client", c.RealIP()))
			}
			return next(c)
		}
	}
}
