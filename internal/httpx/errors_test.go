package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/brusliste/internal/common"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		typ      string
		field    string
		hideText bool
	}{
		{"validation", common.NewValidationError("name", "пусто"), http.StatusBadRequest, "validation_error", "name", false},
		{"negative balance", &common.ValidationError{Field: "delta_units", Message: "много", Err: common.ErrNegativeBalance}, http.StatusConflict, "conflict", "delta_units", false},
		{"not found", &common.NotFoundError{Entity: "transaction", ID: 7}, http.StatusNotFound, "not_found", "", false},
		{"unauthorized", common.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "", false},
		{"retryable store", &common.StoreError{Op: "x", Err: errors.New("conn reset"), Retryable: true}, http.StatusServiceUnavailable, "service_unavailable", "", true},
		{"store", &common.StoreError{Op: "x", Err: errors.New("check violation")}, http.StatusInternalServerError, "internal_error", "", true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, payload.Type)
			assert.Equal(t, tt.field, payload.Field)
			if tt.hideText {
				assert.NotContains(t, payload.Message, "violation")
				assert.NotContains(t, payload.Message, "conn reset")
			}
		})
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/people/:id", func(c *gin.Context) {
		if _, ok := ParamID(c, "id"); !ok {
			return
		}
		AbortWithError(c, &common.NotFoundError{Entity: "person", ID: 1})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/people/abc", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Type)
	assert.Equal(t, "id", body.Error.Field)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/people/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetryAfterHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/", func(c *gin.Context) {
		AbortWithError(c, &common.StoreError{Op: "x", Err: errors.New("timeout"), Retryable: true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
