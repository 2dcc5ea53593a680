// export.go: full nested export of one indicator set.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sigi-ilum/sigi-go/internal/exporter"
)

// ExportIndicatorSet handles GET /indicadores/exportar/:id. The response is
// the same nested document shape the import endpoint accepts, so it can be
// re-imported as-is.
func (c *Controller) ExportIndicatorSet(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "ID inválido.", http.StatusBadRequest)
	}

	municipality, err := c.DS.GetMunicipality(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Município não encontrado.", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao exportar o conjunto de indicadores.", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, exporter.Export(&municipality))
}
