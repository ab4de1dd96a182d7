package middleware

import (
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID is the header key for the user whose memory is addressed
	HeaderUserID = "X-User-ID"
	// HeaderConsumerID is the header key identifying a plugin/consumer
	HeaderConsumerID = "X-Consumer-ID"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			// get request id from header
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			userID := req.Header.Get(HeaderUserID)
			consumerID := req.Header.Get(HeaderConsumerID)

			ctx := req.Context()
			ctx = appcontext.SetRequestID(ctx, requestID)
			ctx = appcontext.SetMethod(ctx, req.Method)
			ctx = appcontext.SetRoute(ctx, req.URL.Path)
			ctx = appcontext.SetRemoteIP(ctx, c.RealIP())
			ctx = appcontext.SetUserID(ctx, userID)
			ctx = appcontext.SetConsumerID(ctx, consumerID)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
