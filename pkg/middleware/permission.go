package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/plugin"
	"github.com/labstack/echo/v4"
)

// RequirePermission gates a route on the consumer boundary. The consumer is
// identified by header, looked up in the grant registry, and rejected before
// any storage access when the grant is missing or insufficient.
func RequirePermission(registry *plugin.Registry, required plugin.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			consumerID := appcontext.GetConsumerID(ctx)
			if consumerID == "" {
				return httperror.NewHTTPError(http.StatusForbidden, "consumer id is required")
			}

			granted, ok := registry.Lookup(consumerID)
			if !ok {
				return httperror.NewHTTPError(http.StatusForbidden, "unknown consumer")
			}
			if !granted.Allows(required) {
				return httperror.NewHTTPErrorf(http.StatusForbidden, "consumer %s lacks %s access", consumerID, required)
			}

			ctx = appcontext.SetPermission(ctx, string(granted))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
