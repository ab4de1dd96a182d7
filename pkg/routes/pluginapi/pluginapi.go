// Package pluginapi is the consumer-facing boundary. Consumers read
// aggregated statistics and active views, and with a read-write-derived
// grant may propose views. Nothing here can write events or concepts, and
// every crossing is audited.
package pluginapi

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/audit"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/events"
	"github.com/Iqvpi1024/dirsoul/pkg/middleware"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/plugin"
	"github.com/Iqvpi1024/dirsoul/pkg/stats"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers consumer boundary routes with their permission guards
func Register(g *echo.Group, consumers *plugin.Registry) {
	g.GET("/stats", Stats, middleware.RequirePermission(consumers, plugin.PermissionReadOnly))
	g.GET("/views", ActiveViews, middleware.RequirePermission(consumers, plugin.PermissionReadOnly))
	g.POST("/views", ProposeView, middleware.RequirePermission(consumers, plugin.PermissionReadWriteDerived))
	g.GET("/audit", AuditTrail, middleware.RequirePermission(consumers, plugin.PermissionReadOnly))
}

// record writes an audit entry for a boundary crossing
func record(c echo.Context, action, resource string, resultCount int, callErr error) {
	ctx := c.Request().Context()

	ctx, audits, err := ectoinject.GetContext[*audit.Repository](ctx)
	if err != nil {
		return
	}

	entry := models.NewAuditLog(
		appcontext.GetUserID(ctx),
		appcontext.GetConsumerID(ctx),
		action,
		resource,
	).WithRemoteIP(appcontext.GetRemoteIP(ctx))
	if callErr != nil {
		entry = entry.WithError(callErr)
	} else {
		entry = entry.WithResultCount(resultCount)
	}

	audits.Record(ctx, entry)
}

// Stats returns the user's aggregated statistics
func Stats(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pluginapi_handler.Stats")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, statsService, err := ectoinject.GetContext[*stats.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get stats service")
	}

	result, err := statsService.UserStats(ctx, userID)
	record(c, "stats.read", "stats", 1, err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ActiveViews returns the user's active derived views
func ActiveViews(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pluginapi_handler.ActiveViews")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, views, err := ectoinject.GetContext[*view.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := views.ListActiveByUser(ctx, userID)
	record(c, "views.read", "view", len(items), err)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active views")
	}

	return c.JSON(http.StatusOK, models.ViewListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// ProposeView lets a read-write-derived consumer propose a view. The
// proposal enters the same gate lifecycle as detected views.
func ProposeView(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pluginapi_handler.ProposeView")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.ProposeViewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		record(c, "views.propose", "view", 0, err)
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cfg, err := ectoinject.GetContext[*ViewLifetime](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get view lifetime")
	}

	proposed, err := models.NewDerivedView(
		userID, req.Hypothesis, req.Subject, req.ViewType,
		req.DerivedFrom, req.Confidence, time.Now().UTC(), cfg.Lifetime,
	)
	if err != nil {
		record(c, "views.propose", "view", 0, err)
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, views, err := ectoinject.GetContext[*view.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := views.Create(ctx, proposed)
	record(c, "views.propose", "view", 1, err)
	if err != nil {
		return err
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		emitter.EmitViewCreated(ctx, created)
	}

	return c.JSON(http.StatusCreated, created)
}

// AuditTrail returns the consumer access log for the user
func AuditTrail(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pluginapi_handler.AuditTrail")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, audits, err := ectoinject.GetContext[*audit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := audits.List(ctx, userID, c.QueryParam("actor"), 1, 100)
	record(c, "audit.read", "audit", totalCount, err)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}

	return c.JSON(http.StatusOK, models.AuditLogListResponse{
		Items:      items,
		TotalCount: totalCount,
	})
}

// ViewLifetime carries the configured view lifetime into the handler scope
type ViewLifetime struct {
	Lifetime time.Duration
}
