package event

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/event"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Register registers event store routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.POST("/archive", Archive)
}

// buildFilter reads query params into an event filter
func buildFilter(c echo.Context, userID string) models.EventFilter {
	filter := models.EventFilter{
		UserID: userID,
		Action: c.QueryParam("action"),
		Target: c.QueryParam("target"),
	}

	if v := c.QueryParam("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &t
		}
	}
	if v := c.QueryParam("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = &t
		}
	}
	if v := c.QueryParam("min_confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinConfidence = f
		}
	}
	filter.IncludeArchived = c.QueryParam("include_archived") == "true"

	return filter
}

// List returns a filtered page of the user's events
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.List")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, buildFilter(c, userID), page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}

	return c.JSON(http.StatusOK, models.EventListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns a single event
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Get")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get event")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "event not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Archive moves events older than the cutoff to the cold tier
func Archive(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Archive")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.ArchiveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if !req.OlderThan.Before(time.Now().UTC()) {
		return httperror.NewHTTPError(http.StatusBadRequest, "older_than must be in the past")
	}

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Archive(ctx, userID, req.OlderThan)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive events")
	}

	return c.JSON(http.StatusOK, result)
}
