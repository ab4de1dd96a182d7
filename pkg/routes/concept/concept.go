package concept

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/concept"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/registry"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers stable concept routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/history/:name", History)
	g.POST("/:id/deprecate", Deprecate)
	g.POST("/rollback/:name", Rollback)
}

// List returns the user's current (non-deprecated) concepts
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "concept_handler.List")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*concept.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListActive(ctx, userID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list concepts")
	}

	return c.JSON(http.StatusOK, models.ConceptListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Get returns a single concept version
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "concept_handler.Get")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*concept.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get concept")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "concept not found")
	}

	return c.JSON(http.StatusOK, result)
}

// History returns every version of a named concept, oldest first
func History(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "concept_handler.History")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	name := c.Param("name")

	ctx, repo, err := ectoinject.GetContext[*concept.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	versions, err := repo.History(ctx, userID, name)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get concept history")
	}
	if len(versions) == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "concept not found")
	}

	return c.JSON(http.StatusOK, models.ConceptHistoryResponse{
		Name:     name,
		Versions: versions,
	})
}

// Deprecate retires a concept version without replacing it
func Deprecate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "concept_handler.Deprecate")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	id := c.Param("id")

	ctx, reg, err := ectoinject.GetContext[*registry.Registry](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry")
	}

	result, err := reg.Deprecate(ctx, userID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Rollback restores the prior version of a named concept as current
func Rollback(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "concept_handler.Rollback")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}
	name := c.Param("name")

	ctx, reg, err := ectoinject.GetContext[*registry.Registry](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get registry")
	}

	restored, err := reg.Rollback(ctx, userID, name)
	if err != nil {
		return err
	}
	if restored == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"name":     name,
			"restored": nil,
		})
	}

	return c.JSON(http.StatusOK, restored)
}
