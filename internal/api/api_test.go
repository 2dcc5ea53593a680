// api_test.go: HTTP-level tests exercising the full routing stack against a
// real SQLite store.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigi-ilum/sigi-go/internal/conf"
	"github.com/sigi-ilum/sigi-go/internal/datastore"
	"github.com/sigi-ilum/sigi-go/internal/observability"
)

// setupTestEnvironment wires a controller against a temp SQLite store.
func setupTestEnvironment(t *testing.T) (*echo.Echo, *Controller, *datastore.SQLiteStore) {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open(), "Failed to open test database")
	t.Cleanup(func() { _ = store.Close() })

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	e := echo.New()
	controller, err := New(e, store, settings, metrics)
	require.NoError(t, err)

	return e, controller, store
}

// doRequest routes a request through the full echo stack and decodes the JSON
// response into out when out is non-nil.
func doRequest(t *testing.T, e *echo.Echo, method, target string, body []byte, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out),
			"Failed to decode response body: %s", rec.Body.String())
	}
	return rec
}

func sampleDocument(municipality, state string, year int) []byte {
	doc := fmt.Sprintf(`{
		"municipio": %q,
		"uf": %q,
		"edital": "PMI-2023/01",
		"ano_edital": %d,
		"indicadores": [
			{
				"nome_indicador": "Disponibilidade de Ponto",
				"descricao": "percentual de pontos acesos",
				"unidade": "%%",
				"tags": ["iluminacao"],
				"formula": {"bruta": "(PA / PT) * 100", "normalizada": "(pa/pt)*100", "hash": "a1b2c3"},
				"subindicadores": [{"nome": "Pontos acesos"}],
				"condicoes": [{"regra": ">= 98%%", "nota": 10}]
			},
			{"nome": "Tempo de Atendimento"}
		]
	}`, municipality, state, year)
	return []byte(doc)
}

func importSample(t *testing.T, e *echo.Echo, municipality, state string, year int) {
	t.Helper()
	rec := doRequest(t, e, http.MethodPost, "/indicadores/importar", sampleDocument(municipality, state, year), nil)
	require.Equal(t, http.StatusOK, rec.Code, "import failed: %s", rec.Body.String())
}

func TestImportEndpoint(t *testing.T) {
	e, _, store := setupTestEnvironment(t)

	var body map[string]any
	rec := doRequest(t, e, http.MethodPost, "/indicadores/importar", sampleDocument("Campinas", "SP", 2023), &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sucesso", body["status"])
	assert.Equal(t, "Campinas", body["municipio"])
	assert.EqualValues(t, 2, body["total_indicadores"])

	count, err := store.CountMunicipalities()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestImportEndpointMultipartFile(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "indicadores.json")
	require.NoError(t, err)
	_, err = part.Write(sampleDocument("Santos", "SP", 2024))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/indicadores/importar", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Santos", body["municipio"])
}

func TestImportEndpointRejectsDuplicate(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	var errResp ErrorResponse
	rec := doRequest(t, e, http.MethodPost, "/indicadores/importar", sampleDocument("Campinas", "SP", 2023), &errResp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errResp.Message, "já foi importado")
	assert.NotEmpty(t, errResp.CorrelationID)
}

func TestImportEndpointRejectsMalformedBody(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	rec := doRequest(t, e, http.MethodPost, "/indicadores/importar", []byte("{nope"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportEndpointRejectsMissingFields(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	var errResp ErrorResponse
	rec := doRequest(t, e, http.MethodPost, "/indicadores/importar",
		[]byte(`{"municipio": "Campinas", "uf": "", "indicadores": []}`), &errResp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errResp.Error, "uf")
}

func TestListEndpoint(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)
	importSample(t, e, "Niterói", "RJ", 2024)

	var sets []datastore.Municipality
	rec := doRequest(t, e, http.MethodGet, "/indicadores", nil, &sets)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sets, 2)
	// Full subtree comes back, not just scalars.
	require.Len(t, sets[0].Indicators, 2)
	assert.NotNil(t, sets[0].Indicators[0].Formula)

	sets = nil
	rec = doRequest(t, e, http.MethodGet, "/indicadores?uf=RJ", nil, &sets)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sets, 1)
	assert.Equal(t, "Niterói", sets[0].Name)

	// Filters combine; a filtered miss is a 404, not an empty list.
	rec = doRequest(t, e, http.MethodGet, "/indicadores?uf=SP&ano_edital=2024", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/indicadores?ano_edital=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpointEmptyStore(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	var errResp ErrorResponse
	rec := doRequest(t, e, http.MethodGet, "/indicadores", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, errResp.Message, "Nenhum conjunto de indicadores cadastrado")
}

func TestGetEndpoint(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	id := sets[0].ID

	var got datastore.Municipality
	rec := doRequest(t, e, http.MethodGet, fmt.Sprintf("/indicadores/%d", id), nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Campinas", got.Name)
	assert.Len(t, got.Indicators, 2)

	rec = doRequest(t, e, http.MethodGet, "/indicadores/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/indicadores/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEndpointIsShallow(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	id := sets[0].ID

	payload := []byte(`{"municipio": "Campinas", "uf": "SP", "edital": "PMI-2026/02", "ano_edital": 2026}`)
	var body map[string]any
	rec := doRequest(t, e, http.MethodPut, fmt.Sprintf("/indicadores/%d", id), payload, &body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sucesso", body["status"])

	updated, err := store.GetMunicipality(id)
	require.NoError(t, err)
	assert.Equal(t, "PMI-2026/02", *updated.TenderID)
	assert.Equal(t, 2026, *updated.TenderYear)
	// The subtree is untouched by the shallow replace.
	assert.Len(t, updated.Indicators, 2)

	rec = doRequest(t, e, http.MethodPut, "/indicadores/9999", payload, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEndpointCascades(t *testing.T) {
	e, _, store := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)
	importSample(t, e, "Niterói", "RJ", 2024)

	sets, err := store.GetAllMunicipalities()
	require.NoError(t, err)
	id := sets[0].ID

	var body map[string]any
	rec := doRequest(t, e, http.MethodDelete, fmt.Sprintf("/indicadores/%d", id), nil, &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["mensagem"], "deletado com sucesso")

	count, err := store.CountMunicipalities()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	indicators, err := store.CountIndicators()
	require.NoError(t, err)
	assert.EqualValues(t, 2, indicators)

	rec = doRequest(t, e, http.MethodDelete, fmt.Sprintf("/indicadores/%d", id), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAllEndpoint(t *testing.T) {
	e, _, store := setupTestEnvironment(t)

	// Deleting an empty store is a no-op success.
	var body map[string]any
	rec := doRequest(t, e, http.MethodDelete, "/indicadores", nil, &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nenhuma ação", body["status"])

	importSample(t, e, "Campinas", "SP", 2023)
	importSample(t, e, "Niterói", "RJ", 2024)

	body = nil
	rec = doRequest(t, e, http.MethodDelete, "/indicadores", nil, &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sucesso", body["status"])
	assert.Contains(t, body["mensagem"], "2")

	count, err := store.CountMunicipalities()
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestByMunicipalityEndpoint(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "São José dos Campos", "SP", 2023)

	var body map[string]any
	rec := doRequest(t, e, http.MethodGet, "/indicadores/por-municipio?nome="+strings.ReplaceAll("josé dos", " ", "%20"), nil, &body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "São José dos Campos", body["municipio"])
	assert.EqualValues(t, 2, body["total_indicadores"])

	rec = doRequest(t, e, http.MethodGet, "/indicadores/por-municipio?nome=recife", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/indicadores/por-municipio", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	var body map[string]any
	rec := doRequest(t, e, http.MethodGet, "/health", nil, &body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["municipios"])
}

func TestMetricsEndpoint(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)
	importSample(t, e, "Campinas", "SP", 2023)

	rec := doRequest(t, e, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_imports_total")
}
