package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigi-ilum/sigi-go/internal/importer"
	"github.com/sigi-ilum/sigi-go/internal/matcher"
)

func TestCompareEndpointByName(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)
	importSample(t, e, "Niterói", "RJ", 2024)

	var matches []matcher.Match
	rec := doRequest(t, e, http.MethodGet, "/indicadores/comparar?nome=disponibilidade", nil, &matches)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, matches, 2)
	assert.Equal(t, "Disponibilidade de Ponto", matches[0].Name)
	assert.NotNil(t, matches[0].Formula)
	// List fields are never null in the wire format.
	assert.NotNil(t, matches[0].Tags)
	assert.NotNil(t, matches[0].Conditions)
}

func TestCompareEndpointByFormulaAndHash(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	var matches []matcher.Match
	rec := doRequest(t, e, http.MethodGet, "/indicadores/comparar?formula=%28pa%2Fpt%29%2A100", nil, &matches)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, matches, 1)

	matches = nil
	rec = doRequest(t, e, http.MethodGet, "/indicadores/comparar?hash=a1b2c3", nil, &matches)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, matches, 1)
}

func TestCompareEndpointCriterionErrors(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	rec := doRequest(t, e, http.MethodGet, "/indicadores/comparar", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/indicadores/comparar?nome=x&hash=y", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An empty criterion value still counts as supplied.
	rec = doRequest(t, e, http.MethodGet, "/indicadores/comparar?nome=&hash=y", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareEndpointNoMatch(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	var body map[string]string
	rec := doRequest(t, e, http.MethodGet, "/indicadores/comparar?nome=inexistente", nil, &body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Nenhum indicador corresponde à pesquisa.", body["mensagem"])
}

func TestSimilarEndpoint(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)
	importSample(t, e, "Santos", "SP", 2024)

	var groups map[string][]matcher.GroupEntry
	rec := doRequest(t, e, http.MethodGet, "/indicadores/semelhantes?criterio=hash", nil, &groups)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, groups, 1)
	assert.Len(t, groups["a1b2c3"], 2)

	groups = nil
	rec = doRequest(t, e, http.MethodGet, "/indicadores/semelhantes?criterio=formula", nil, &groups)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, groups["(pa/pt)*100"], 2)

	rec = doRequest(t, e, http.MethodGet, "/indicadores/semelhantes?criterio=nome", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilarEndpointCacheInvalidatedByWrites(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)
	importSample(t, e, "Santos", "SP", 2024)

	var groups map[string][]matcher.GroupEntry
	rec := doRequest(t, e, http.MethodGet, "/indicadores/semelhantes?criterio=hash", nil, &groups)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, groups["a1b2c3"], 2)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	rec = doRequest(t, e, http.MethodDelete, fmt.Sprintf("/indicadores/%d", sets[0].ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The surviving formula is now a singleton, so the group disappears.
	groups = nil
	rec = doRequest(t, e, http.MethodGet, "/indicadores/semelhantes?criterio=hash", nil, &groups)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, groups)
}

func TestUpdateFormulaEndpoint(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	withFormula := sets[0].Indicators[0].ID
	withoutFormula := sets[0].Indicators[1].ID

	var body map[string]any
	rec := doRequest(t, e, http.MethodPatch,
		fmt.Sprintf("/indicadores/%d/formula?hash=deadbeef&normalizada=x%%2By", withFormula), nil, &body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sucesso", body["status"])

	indicator, err := store.GetIndicator(withFormula)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", *indicator.Formula.Hash)
	assert.Equal(t, "x+y", *indicator.Formula.Normalized)
	// Fields not named in the patch are untouched.
	assert.Equal(t, "(PA / PT) * 100", *indicator.Formula.Raw)

	rec = doRequest(t, e, http.MethodPatch,
		fmt.Sprintf("/indicadores/%d/formula?hash=x", withoutFormula), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodPatch, "/indicadores/9999/formula?hash=x", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceTagsEndpoint(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	id := sets[0].Indicators[0].ID

	var body map[string]any
	rec := doRequest(t, e, http.MethodPut, fmt.Sprintf("/indicadores/%d/tags", id),
		[]byte(`["nova", "lista"]`), &body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sucesso", body["status"])
	assert.ElementsMatch(t, []any{"nova", "lista"}, body["tags_aplicadas"])

	indicator, err := store.GetIndicator(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"nova", "lista"}, indicator.Tags)

	rec = doRequest(t, e, http.MethodPut, fmt.Sprintf("/indicadores/%d/tags", id),
		[]byte(`{"tags": "errado"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodPut, "/indicadores/9999/tags", []byte(`["x"]`), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpointRoundTrips(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	id := sets[0].ID

	rec := doRequest(t, e, http.MethodGet, fmt.Sprintf("/indicadores/exportar/%d", id), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc importer.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Campinas", doc.Municipality)
	require.Len(t, doc.Indicators, 2)
	assert.Equal(t, "a1b2c3", *doc.Indicators[0].Formula.Hash)

	// The exported body is accepted as-is by the import endpoint of a fresh
	// service instance.
	other, _, _ := setupTestEnvironment(t)
	rec = doRequest(t, other, http.MethodPost, "/indicadores/importar", rec.Body.Bytes(), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, e, http.MethodGet, "/indicadores/exportar/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
