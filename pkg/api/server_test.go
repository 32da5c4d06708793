package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromonitor/copernicus/pkg/api"
	"github.com/agromonitor/copernicus/pkg/quota"
	prommetrics "github.com/agromonitor/copernicus/pkg/quota/metrics/prometheus"
	"github.com/agromonitor/copernicus/storage/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T, gateCfg quota.Config) (*api.Server, *memory.Store) {
	t.Helper()
	clock := fixedClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
	if gateCfg.Clock == nil {
		gateCfg.Clock = clock
	}
	store := memory.New(memory.WithNowFunc(clock.Now))

	gate, err := quota.NewGate(store, gateCfg)
	require.NoError(t, err)

	srv, err := api.NewServer(api.Config{Gate: gate})
	require.NoError(t, err)
	return srv, store
}

func TestNewServer_RequiresGate(t *testing.T) {
	_, err := api.NewServer(api.Config{})
	assert.Error(t, err)
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t, quota.Config{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_QuotaStatusJSON(t *testing.T) {
	srv, store := newTestServer(t, quota.Config{})

	st := quota.NewState(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	st.ProcessingUnitsUsed = 2500
	st.RequestsUsed = 40
	require.NoError(t, store.Save(context.Background(), st))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/quota/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status quota.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2500, status.PUUsed)
	assert.Equal(t, 7500, status.PURemaining)
	assert.Equal(t, 40, status.RequestsUsed)
	assert.InDelta(t, 25.0, status.PercentUsed, 0.01)
	// March 10th: 21 full days remain in the month.
	assert.Equal(t, 21, status.DaysRemaining)
}

func TestServer_QuotaStatusBanner(t *testing.T) {
	srv, _ := newTestServer(t, quota.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/quota/status", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "QUOTA STATUS - COPERNICUS DATA SPACE")
}

type brokenStore struct{}

func (brokenStore) Load(ctx context.Context) (*quota.State, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Save(ctx context.Context, st *quota.State) error {
	return errors.New("connection refused")
}

func TestServer_QuotaStatusStoreFailure(t *testing.T) {
	gate, err := quota.NewGate(brokenStore{}, quota.Config{})
	require.NoError(t, err)

	srv, err := api.NewServer(api.Config{Gate: gate})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/quota/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota store unavailable")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := prommetrics.NewMetrics(registry, "copernicus")
	metrics.RecordCheck(true, 30)

	clock := fixedClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
	gate, err := quota.NewGate(memory.New(memory.WithNowFunc(clock.Now)), quota.Config{
		Clock:   clock,
		Metrics: metrics,
	})
	require.NoError(t, err)

	srv, err := api.NewServer(api.Config{
		Gate:           gate,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "copernicus_quota_checks_total")
}
