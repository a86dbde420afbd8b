package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/features/access"
	"serotonyl.ru/brusliste/internal/features/ledger"
	"serotonyl.ru/brusliste/internal/features/stats"
	"serotonyl.ru/brusliste/internal/metrics"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type memoryKeyStore struct {
	mu     sync.Mutex
	hashes map[string]bool
}

func (m *memoryKeyStore) Insert(ctx context.Context, keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[keyHash] = true
	return nil
}

func (m *memoryKeyStore) Exists(ctx context.Context, keyHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[keyHash], nil
}

func newTestServer(t *testing.T, db Pinger) *Server {
	t.Helper()
	cfg := &config.Config{
		HTTPAddr:          ":0",
		CORSAllowedOrigin: "https://brusliste.vercel.app",
		LedgerUnitPrice:   1000,
		LeaderboardSize:   5,
		AppTimezone:       "UTC",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}
	m := metrics.New()
	accessSvc, err := access.NewService(&memoryKeyStore{hashes: map[string]bool{}}, cfg, m)
	require.NoError(t, err)

	srv := New(cfg, Deps{
		Ledger:  ledger.NewHandler(ledger.NewService(nil, cfg, nil, m)),
		Stats:   stats.NewHandler(stats.NewService(nil, cfg)),
		Access:  access.NewHandler(accessSvc),
		Gate:    accessSvc,
		Metrics: m,
		DB:      db,
	})
	t.Cleanup(func() { srv.limiter.Close() })
	return srv
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := serve(newTestServer(t, fakePinger{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = serve(newTestServer(t, fakePinger{err: errors.New("down")}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMutationsRequireKey(t *testing.T) {
	srv := newTestServer(t, fakePinger{})

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/people"},
		{http.MethodPost, "/api/people/1/settle"},
		{http.MethodDelete, "/api/people/1"},
		{http.MethodPost, "/api/quickbuy"},
		{http.MethodPatch, "/api/transactions/1"},
	} {
		w := serve(srv, route.method, route.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		assert.Equal(t, "https://brusliste.vercel.app", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestIssueKeyIsRateLimited(t *testing.T) {
	srv := newTestServer(t, fakePinger{})

	require.Equal(t, http.StatusCreated, serve(srv, http.MethodPost, "/api/keys").Code)
	require.Equal(t, http.StatusCreated, serve(srv, http.MethodPost, "/api/keys").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(srv, http.MethodPost, "/api/keys").Code)
}

func TestPreflightAndMetrics(t *testing.T) {
	srv := newTestServer(t, fakePinger{})

	w := serve(srv, http.MethodOptions, "/api/people")
	assert.Equal(t, http.StatusOK, w.Code)

	serve(srv, http.MethodGet, "/health")
	w = serve(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `brusliste_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
