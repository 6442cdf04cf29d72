package samples

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/valuation"
)

func setupRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(NewService(repo, zap.NewNop()), zap.NewNop())
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestHandler_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(repo)

	body := `{"category":"rural","city":"Uberaba","state":"MG","price":1000000,"total_area":100,"topography":"Plano"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/samples", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var created valuation.Sample
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, valuation.CategoryRural, created.Category)
	assert.Equal(t, "Plano", created.Topography)
	assert.InDelta(t, 10000.0, created.PricePerUnit, 1e-9)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/samples/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/samples/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/samples/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CreateInvalid(t *testing.T) {
	router := setupRouter(NewMemoryRepository())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/samples", bytes.NewBufferString(`{"category":"farm","city":"X","state":"MG","price":1,"total_area":1}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/samples", bytes.NewBufferString(`{"city":"X"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_List(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	router := setupRouter(NewMemoryRepository(
		testSample("a", "Uberaba", "", day),
		testSample("b", "Delta", "", day),
	))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/samples?city=delta&category=rural", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "b", resp.Samples[0].ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/samples?category=farm", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Import(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(repo)

	xlsx := workbook(t,
		[]interface{}{"category", "city", "state", "price", "total_area"},
		[]interface{}{"URBAN", "Curitiba", "PR", "300000", "60"},
	)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "samples.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/samples/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Imported)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/samples/import", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
