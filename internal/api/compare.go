// compare.go: indicator comparison and similarity grouping endpoints.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sigi-ilum/sigi-go/internal/matcher"
)

// CompareIndicators handles GET /indicadores/comparar. Exactly one of the
// nome, formula and hash query parameters must be supplied.
func (c *Controller) CompareIndicators(ctx echo.Context) error {
	params := ctx.QueryParams()
	criteria := &matcher.Criteria{}
	criterionLabel := ""

	if params.Has("nome") {
		value := params.Get("nome")
		criteria.Name = &value
		criterionLabel = "nome"
	}
	if params.Has("formula") {
		value := params.Get("formula")
		criteria.NormalizedFormula = &value
		criterionLabel = "formula"
	}
	if params.Has("hash") {
		value := params.Get("hash")
		criteria.Hash = &value
		criterionLabel = "hash"
	}

	matches, err := c.Matcher.FindEquivalent(criteria)
	if err != nil {
		switch {
		case errors.Is(err, matcher.ErrNoCriterion):
			return c.HandleError(ctx, err, "Informe um critério de comparação (nome, formula ou hash).", http.StatusBadRequest)
		case errors.Is(err, matcher.ErrMultipleCriteria):
			return c.HandleError(ctx, err, "Informe apenas um critério por vez (nome, formula ou hash).", http.StatusBadRequest)
		default:
			return c.HandleError(ctx, err, "Erro ao comparar os indicadores.", http.StatusInternalServerError)
		}
	}

	if c.metrics != nil {
		c.metrics.RecordComparison(criterionLabel)
	}

	// No match is a structured 404 body, not an error.
	if len(matches) == 0 {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"mensagem": "Nenhum indicador corresponde à pesquisa.",
		})
	}

	return ctx.JSON(http.StatusOK, matches)
}

// SimilarIndicators handles GET /indicadores/semelhantes, returning groups of
// indicators whose formulas share a hash or normalized text. Results are
// cached until the next write.
func (c *Controller) SimilarIndicators(ctx echo.Context) error {
	criterion := ctx.QueryParam("criterio")
	kind, err := matcher.ParseGroupKind(criterion)
	if err != nil {
		return c.HandleError(ctx, err, "Critério inválido, use 'hash' ou 'formula'.", http.StatusBadRequest)
	}

	cacheKey := "semelhantes:" + criterion
	if cached, found := c.groupCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	start := time.Now()
	groups, err := c.Matcher.FindSimilarGroups(kind)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar indicadores semelhantes.", http.StatusInternalServerError)
	}

	if c.metrics != nil {
		c.metrics.RecordGrouping(criterion, time.Since(start))
	}
	c.groupCache.SetDefault(cacheKey, groups)

	return ctx.JSON(http.StatusOK, groups)
}
