package export

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/audit"
	"github.com/Iqvpi1024/dirsoul/pkg/appcontext"
	"github.com/Iqvpi1024/dirsoul/pkg/export"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// Register registers the user data export route
func Register(g *echo.Group) {
	g.GET("", Export)
}

// Export returns the complete data dump for the calling user. The export
// itself is recorded in the audit trail it contains, so the entry for this
// call shows up in the next export, not this one.
func Export(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "export_handler.Export")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, exportService, err := ectoinject.GetContext[*export.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get export service")
	}

	dump, err := exportService.ExportUser(ctx, userID)

	if ctx, audits, auditErr := ectoinject.GetContext[*audit.Repository](ctx); auditErr == nil {
		entry := models.NewAuditLog(userID, "user", "export.read", "export").
			WithRemoteIP(appcontext.GetRemoteIP(ctx))
		if err != nil {
			entry = entry.WithError(err)
		}
		audits.Record(ctx, entry)
	}

	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to export user data")
	}

	return c.JSON(http.StatusOK, dump)
}
