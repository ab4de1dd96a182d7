package view

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers derived view routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
}

// List returns the user's derived views, optionally filtered by status
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "view_handler.List")
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

	status := models.ViewStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid view status")
	}

	ctx, repo, err := ectoinject.GetContext[*view.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, userID, status, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list views")
	}

	return c.JSON(http.StatusOK, models.ViewListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns a single derived view
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "view_handler.Get")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*view.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get view")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "view not found")
	}

	return c.JSON(http.StatusOK, result)
}
