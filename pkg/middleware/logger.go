package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/labstack/echo/v4"
)

// Logger logs one line per request with the identities this API keys on:
// the user whose memory is addressed and, on the consumer boundary, the
// consumer acting on their behalf.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()

			fields := map[string]interface{}{
				"request_id":    appcontext.GetRequestID(ctx),
				"method":        req.Method,
				"route":         c.Path(),
				"uri":           req.RequestURI,
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"user_agent":    req.UserAgent(),
				"response_time": time.Since(start),
				"response_size": res.Size,
			}
			if userID := appcontext.GetUserID(ctx); userID != "" {
				fields["user_id"] = userID
			}
			if consumerID := appcontext.GetConsumerID(ctx); consumerID != "" {
				fields["consumer_id"] = consumerID
			}

			logger.WithContext(ctx).WithFields(fields).Info("Request")

			return nil
		}
	}
}
