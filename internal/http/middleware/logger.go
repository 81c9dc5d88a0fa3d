package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ZapLogger logs one line per request. Query strings are left out because
// redirect targets and login errors travel there.
func ZapLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
			}
			if id := GetRequestID(c); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			switch n := res.Status; {
			case err != nil && n >= http.StatusInternalServerError:
				log.Error("handler error", append(fields, zap.Error(err))...)
			case n >= http.StatusInternalServerError:
				log.Error("server error", fields...)
			case n >= http.StatusBadRequest:
				log.Warn("client error", fields...)
			case n >= http.StatusMultipleChoices:
				log.Debug("redirect", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
