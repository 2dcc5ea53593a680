// indicators.go: field-level edits on single indicators.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sigi-ilum/sigi-go/internal/datastore"
)

// UpdateFormula handles PATCH /indicadores/:id/formula. Any subset of the
// bruta, normalizada and hash query parameters is applied; an indicator
// without a formula is a client error, not a create.
func (c *Controller) UpdateFormula(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "ID inválido.", http.StatusBadRequest)
	}

	params := ctx.QueryParams()
	patch := &datastore.FormulaPatch{}
	if params.Has("bruta") {
		value := params.Get("bruta")
		patch.Raw = &value
	}
	if params.Has("normalizada") {
		value := params.Get("normalizada")
		patch.Normalized = &value
	}
	if params.Has("hash") {
		value := params.Get("hash")
		patch.Hash = &value
	}

	if err := c.DS.UpdateFormula(id, patch); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.HandleError(ctx, err,
				fmt.Sprintf("Indicador com ID %d não encontrado.", id), http.StatusNotFound)
		case errors.Is(err, datastore.ErrNoFormula):
			return c.HandleError(ctx, err, "O indicador não possui fórmula associada.", http.StatusBadRequest)
		default:
			return c.HandleError(ctx, err, "Erro ao atualizar a fórmula.", http.StatusInternalServerError)
		}
	}

	c.invalidateCaches()

	indicator, err := c.DS.GetIndicator(id)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar o indicador atualizado.", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":   "sucesso",
		"mensagem": fmt.Sprintf("Fórmula do indicador '%s' (ID %d) atualizada com sucesso.", indicator.Name, indicator.ID),
	})
}

// ReplaceTags handles PUT /indicadores/:id/tags. The body is a plain JSON
// string list that fully replaces the indicator's tags.
func (c *Controller) ReplaceTags(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "ID inválido.", http.StatusBadRequest)
	}

	var tags []string
	if err := ctx.Bind(&tags); err != nil {
		return c.HandleError(ctx, err, "O corpo da requisição deve ser uma lista de strings.", http.StatusBadRequest)
	}

	if err := c.DS.ReplaceTags(id, tags); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err,
				fmt.Sprintf("Indicador com ID %d não encontrado.", id), http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao atualizar as tags.", http.StatusInternalServerError)
	}

	c.invalidateCaches()

	indicator, err := c.DS.GetIndicator(id)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar o indicador atualizado.", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "sucesso",
		"mensagem":       fmt.Sprintf("Tags do indicador '%s' (ID %d) atualizadas com sucesso.", indicator.Name, indicator.ID),
		"tags_aplicadas": indicator.Tags,
	})
}
