package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordTransaction("purchase", 2, 2000)
		m.RecordRejection("negative_balance")
		m.RecordKeyIssued()
		m.RecordJobRun("debtor_reminder", time.Second, true)
	})
	assert.Nil(t, m.Registry())
}

func TestRecordTransaction(t *testing.T) {
	m := New()

	m.RecordTransaction("return", -3, 3000)
	m.RecordTransaction("return", -1, 1000)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerTransactions.WithLabelValues("return")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ledgerUnits.WithLabelValues("return")))
	assert.Equal(t, 4000.0, testutil.ToFloat64(m.ledgerAmount.WithLabelValues("return")))
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/people/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/people/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/people/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "brusliste_http_requests_total"))
}
