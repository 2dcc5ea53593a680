// import.go: document import endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sigi-ilum/sigi-go/internal/importer"
)

// ImportIndicators handles POST /indicadores/importar. The document may be
// sent as the JSON body directly or as a multipart file field named "file".
func (c *Controller) ImportIndicators(ctx echo.Context) error {
	doc, err := c.readImportDocument(ctx)
	if err != nil {
		c.recordImport("invalid", 0)
		return c.HandleError(ctx, err, "O documento não está em formato JSON válido ou está malformado.", http.StatusBadRequest)
	}

	summary, err := c.Importer.Import(doc)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrDuplicateImport):
			c.recordImport("duplicate", 0)
			return c.HandleError(ctx, err, "Este conjunto de indicadores já foi importado para este município.", http.StatusBadRequest)
		case errors.Is(err, importer.ErrMissingField):
			c.recordImport("invalid", 0)
			return c.HandleError(ctx, err, "Campo obrigatório ausente no documento.", http.StatusBadRequest)
		default:
			c.recordImport("error", 0)
			return c.HandleError(ctx, err, "Erro ao importar os indicadores.", http.StatusInternalServerError)
		}
	}

	c.recordImport("success", summary.TotalIndicators)
	c.invalidateCaches()

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":            "sucesso",
		"mensagem":          "Indicadores importados com sucesso.",
		"municipio":         summary.Municipality,
		"uf":                summary.StateCode,
		"edital":            summary.TenderID,
		"ano_edital":        summary.TenderYear,
		"total_indicadores": summary.TotalIndicators,
	})
}

// readImportDocument decodes the document from a multipart file field when
// present, otherwise from the request body.
func (c *Controller) readImportDocument(ctx echo.Context) (*importer.Document, error) {
	contentType := ctx.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			return nil, errors.New("envie um arquivo .json no campo 'file' ou JSON no corpo da requisição")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		var doc importer.Document
		if err := json.NewDecoder(file).Decode(&doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}

	var doc importer.Document
	if err := json.NewDecoder(ctx.Request().Body).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Controller) recordImport(status string, indicators int) {
	if c.metrics != nil {
		c.metrics.RecordImport(status, indicators)
	}
}
