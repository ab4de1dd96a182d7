package entity

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entity"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entityrelation"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers entity routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/:id/relations", Relations)
}

// List returns the user's entities, optionally filtered by type
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.List")
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
	entityType := models.EntityType(c.QueryParam("entity_type"))

	ctx, repo, err := ectoinject.GetContext[*entity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, userID, entityType, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entities")
	}

	return c.JSON(http.StatusOK, models.EntityListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns a single entity
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.Get")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*entity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "entity not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Relations returns the co-occurrence relations touching an entity
func Relations(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "entity_handler.Relations")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	id := c.Param("id")

	ctx, entities, err := ectoinject.GetContext[*entity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := entities.GetByID(ctx, userID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity")
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "entity not found")
	}

	ctx, relations, err := ectoinject.GetContext[*entityrelation.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := relations.ListByEntity(ctx, userID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entity relations")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entity_id": id,
		"relations": items,
	})
}
