// municipalities.go: listing, retrieval and lifecycle of indicator sets.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sigi-ilum/sigi-go/internal/datastore"
)

// parseIDParam converts the :id path parameter to an entity key.
func parseIDParam(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", ctx.Param("id"), err)
	}
	return uint(id), nil
}

// ListIndicatorSets handles GET /indicadores with optional exact-match
// filters. An empty filtered result is a not-found condition, not an empty
// list.
func (c *Controller) ListIndicatorSets(ctx echo.Context) error {
	filter := &datastore.MunicipalityFilter{
		Name:      ctx.QueryParam("municipio"),
		StateCode: ctx.QueryParam("uf"),
		TenderID:  ctx.QueryParam("edital"),
	}
	if raw := ctx.QueryParam("ano_edital"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return c.HandleError(ctx, err, "Parâmetro ano_edital inválido.", http.StatusBadRequest)
		}
		filter.TenderYear = &year
	}

	municipalities, err := c.DS.SearchMunicipalities(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao listar os indicadores.", http.StatusInternalServerError)
	}

	if len(municipalities) == 0 {
		message := "Nenhum conjunto de indicadores encontrado com os filtros fornecidos."
		if filter.Empty() {
			message = "Nenhum conjunto de indicadores cadastrado."
		}
		return c.HandleError(ctx, nil, message, http.StatusNotFound)
	}

	return ctx.JSON(http.StatusOK, municipalities)
}

// GetIndicatorSet handles GET /indicadores/:id.
func (c *Controller) GetIndicatorSet(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "ID inválido.", http.StatusBadRequest)
	}

	municipality, err := c.DS.GetMunicipality(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Conjunto de indicadores não encontrado.", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao buscar o conjunto de indicadores.", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, municipality)
}

// updateRequest carries the scalar fields replaced by PUT /indicadores/:id.
type updateRequest struct {
	Municipality string  `json:"municipio"`
	StateCode    string  `json:"uf"`
	TenderID     *string `json:"edital"`
	TenderYear   *int    `json:"ano_edital"`
}

// UpdateIndicatorSet handles PUT /indicadores/:id. The replace is shallow:
// only the municipality's scalar fields change, the subtree stays untouched.
func (c *Controller) UpdateIndicatorSet(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "ID inválido.", http.StatusBadRequest)
	}

	var req updateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Corpo da requisição inválido.", http.StatusBadRequest)
	}

	update := &datastore.Municipality{
		Name:       req.Municipality,
		StateCode:  req.StateCode,
		TenderID:   req.TenderID,
		TenderYear: req.TenderYear,
	}
	if err := c.DS.UpdateMunicipality(id, update); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err,
				fmt.Sprintf("Conjunto de indicadores com ID %d não encontrado.", id), http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao atualizar o conjunto de indicadores.", http.StatusInternalServerError)
	}

	c.invalidateCaches()

	updated, err := c.DS.GetMunicipality(id)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar o conjunto atualizado.", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":            "sucesso",
		"mensagem":          fmt.Sprintf("Conjunto de indicadores '%s' (ID %d) atualizado com sucesso.", updated.Name, id),
		"dados_atualizados": updated,
	})
}

// DeleteIndicatorSet handles DELETE /indicadores/:id, cascading over the
// full subtree.
func (c *Controller) DeleteIndicatorSet(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "ID inválido.", http.StatusBadRequest)
	}

	municipality, err := c.DS.GetMunicipality(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err,
				fmt.Sprintf("Conjunto de indicadores com ID %d não encontrado.", id), http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao buscar o conjunto de indicadores.", http.StatusInternalServerError)
	}

	if err := c.DS.DeleteMunicipality(id); err != nil {
		return c.HandleError(ctx, err, "Erro ao excluir o conjunto de indicadores.", http.StatusInternalServerError)
	}

	c.invalidateCaches()

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":   "sucesso",
		"mensagem": fmt.Sprintf("Conjunto de indicadores '%s' (ID %d) deletado com sucesso.", municipality.Name, id),
	})
}

// DeleteAllIndicatorSets handles DELETE /indicadores. Deleting an empty
// store succeeds with a no-action message.
func (c *Controller) DeleteAllIndicatorSets(ctx echo.Context) error {
	total, err := c.DS.DeleteAllMunicipalities()
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao excluir os conjuntos de indicadores.", http.StatusInternalServerError)
	}

	c.invalidateCaches()

	if total == 0 {
		return ctx.JSON(http.StatusOK, map[string]any{
			"status":   "nenhuma ação",
			"mensagem": "Nenhum conjunto de indicadores encontrado para exclusão.",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":   "sucesso",
		"mensagem": fmt.Sprintf("Todos os %d conjuntos de indicadores foram deletados com sucesso.", total),
	})
}

// IndicatorsByMunicipality handles GET /indicadores/por-municipio, returning
// the first municipality whose name contains the fragment.
func (c *Controller) IndicatorsByMunicipality(ctx echo.Context) error {
	fragment := ctx.QueryParam("nome")
	if fragment == "" {
		return c.HandleError(ctx, nil, "Informe o nome (ou parte do nome) do município.", http.StatusBadRequest)
	}

	municipality, err := c.DS.FindMunicipalityByNameLike(fragment)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err,
				fmt.Sprintf("Nenhum município encontrado contendo '%s'.", fragment), http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao buscar o município.", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"municipio":         municipality.Name,
		"uf":                municipality.StateCode,
		"total_indicadores": len(municipality.Indicators),
		"indicadores":       municipality.Indicators,
	})
}
