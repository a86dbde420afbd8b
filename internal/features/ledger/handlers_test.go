package ledger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/brusliste/internal/httpx"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, store, _ := newTestService(t)
	r := gin.New()
	r.Use(httpx.ErrorHandlingMiddleware())
	NewHandler(svc).Register(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r, store
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerUpsertAndList(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/people", `{"name":"Alice","delta_units":2,"beverage_type":"cola"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var people []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &people))
	require.Len(t, people, 1)
	assert.Equal(t, "Alice", people[0]["name"])
	assert.Equal(t, 2.0, people[0]["outstanding_units"])
	assert.Equal(t, "cola", people[0]["beverage_type"])

	w = doJSON(r, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":20.00`)
	assert.Contains(t, w.Body.String(), `"kind":"purchase"`)
	assert.Contains(t, w.Body.String(), `"person_name":"Alice"`)
}

func TestHandlerUpsertValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/people", `{"name":"Alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"delta_units"`)

	w = doJSON(r, http.MethodPost, "/api/people", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/people", `{"name":"Bob","delta_units":-1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlerSettleAndRemove(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/people", `{"name":"Alice","delta_units":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	id := store.person("Alice").ID
	path := "/api/people/" + jsonInt(id)

	w = doJSON(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, path+"/settle", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outstanding_units":0`)

	w = doJSON(r, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = doJSON(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/people/abc/settle", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerQuickBuyAndRelabel(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/quickbuy", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var tx map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	assert.Equal(t, "quickbuy", tx["kind"])
	assert.Nil(t, tx["person_id"])
	assert.Nil(t, tx["beverage_type"])

	path := "/api/transactions/" + jsonInt(int64(tx["id"].(float64)))
	w = doJSON(r, http.MethodPatch, path, `{"beverage_type":"solo"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"beverage_type":"solo"`)

	w = doJSON(r, http.MethodPatch, "/api/transactions/999", `{"beverage_type":"solo"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerRelabelRequiresField(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/quickbuy", `{"beverage_type":"cola"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/api/transactions/" + jsonInt(store.transactions()[0].ID)

	w = doJSON(r, http.MethodPatch, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"beverage_type"`)
	assert.Equal(t, "cola", *store.transactions()[0].BeverageType)

	w = doJSON(r, http.MethodPatch, path, `{"beverage_type":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.transactions()[0].BeverageType)

	w = doJSON(r, http.MethodPatch, path, `{"beverage_type":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerQuickBuyChunkedEmptyBody(t *testing.T) {
	r, store := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/quickbuy", nil)
	req.Body = io.NopCloser(strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.transactions(), 1)
	assert.Nil(t, store.transactions()[0].BeverageType)

	req = httptest.NewRequest(http.MethodPost, "/api/quickbuy", nil)
	req.Body = io.NopCloser(strings.NewReader(`{"beverage_type":"solo"}`))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "solo", *store.transactions()[1].BeverageType)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/quickbuy", `{"beverage_type":`).Code)
}

func TestHandlerGuardIsApplied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)

	r := gin.New()
	r.Use(httpx.ErrorHandlingMiddleware())
	NewHandler(svc).Register(r.Group("/api"), func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	})

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/api/quickbuy", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/api/people", `{"name":"A","delta_units":1}`).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/people", "").Code)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
