package health

import (
	"net/http"

	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/pkg/database"
	"github.com/Iqvpi1024/dirsoul/pkg/kafka"
	"github.com/Iqvpi1024/dirsoul/pkg/redis"
	"github.com/labstack/echo/v4"
)

// Register registers health check routes
func Register(g *echo.Group) {
	g.GET("/live", Live)
	g.GET("/ready", Ready)
}

// Live reports that the process is up
func Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the service can do useful work. Postgres is
// required; redis and kafka degrade rather than fail, so they are reported
// but do not flip readiness.
func Ready(c echo.Context) error {
	ctx := c.Request().Context()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"kafka":    "ok",
	}
	status := http.StatusOK

	ctx, db, err := ectoinject.GetContext[database.DB](ctx)
	if err != nil || db.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if ctx, cache, err := ectoinject.GetContext[*redis.Client](ctx); err != nil || cache.Ping(ctx) != nil {
		checks["redis"] = "unavailable"
	}

	if _, consumer, err := ectoinject.GetContext[*kafka.Consumer](ctx); err != nil || !consumer.Health() {
		checks["kafka"] = "unavailable"
	}

	return c.JSON(status, checks)
}
