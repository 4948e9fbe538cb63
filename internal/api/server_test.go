package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/rangescan/internal/metrics"
	"github.com/anstrom/rangescan/internal/scanning"
)

func result(addr string, port uint16) scanning.Result {
	return scanning.Result{Target: scanning.Target{Addr: netip.MustParseAddr(addr), Port: port}}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Liveness(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil, "1.2.3")

	rec := get(t, s.Handler(), "/api/v1/liveness")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
}

func TestServer_Version(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil, "1.2.3")

	rec := get(t, s.Handler(), "/api/v1/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
}

func TestServer_Status(t *testing.T) {
	t.Run("idle without a scan", func(t *testing.T) {
		s := New("127.0.0.1:0", nil, nil, "dev")

		var body StatusResponse
		require.NoError(t, json.Unmarshal(get(t, s.Handler(), "/api/v1/status").Body.Bytes(), &body))
		assert.Equal(t, "idle", body.State)
		assert.Empty(t, body.Open)
	})

	t.Run("running then completed", func(t *testing.T) {
		progress := scanning.NewProgress(nil)
		s := New("127.0.0.1:0", nil, progress, "dev")

		a, b := result("10.0.0.1", 22), result("10.0.0.1", 80)
		progress.OnResult([]scanning.Result{a, b}, b)

		var body StatusResponse
		require.NoError(t, json.Unmarshal(get(t, s.Handler(), "/api/v1/status").Body.Bytes(), &body))
		assert.Equal(t, "running", body.State)
		assert.Equal(t, []string{"10.0.0.1:22", "10.0.0.1:80"}, body.Open)

		progress.OnComplete(&scanning.Summary{ScanID: "abc", Elapsed: 1500 * time.Millisecond})
		require.NoError(t, json.Unmarshal(get(t, s.Handler(), "/api/v1/status").Body.Bytes(), &body))
		assert.Equal(t, "completed", body.State)
		assert.Equal(t, "abc", body.ScanID)
		assert.Equal(t, int64(1500), body.ElapsedMs)
	})
}

func TestServer_Metrics(t *testing.T) {
	pm := metrics.NewPrometheusMetrics()
	pm.ProbeCompleted(metrics.OutcomeOpen, time.Millisecond)
	pm.ResultRecorded()

	s := New("127.0.0.1:0", pm.GetRegistry(), nil, "dev")
	rec := get(t, s.Handler(), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rangescan_probe_total{outcome="open"} 1`)
	assert.Contains(t, rec.Body.String(), "rangescan_scan_open_ports_total 1")
}

func TestServer_MetricsNotRoutedWithoutRegistry(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil, "dev")
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil, "dev")

	for _, path := range []string{"/api/v1/liveness", "/api/v1/status", "/api/v1/version"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/v1/missing").Code)
}

func TestServer_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New("127.0.0.1:0", nil, nil, "dev")
	require.NoError(t, s.Start(ctx))
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/api/v1/liveness")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "alive")

	require.NoError(t, s.Stop())
	_, err = http.Get("http://" + s.Addr() + "/api/v1/liveness")
	assert.Error(t, err)
}

func TestServer_StartBindError(t *testing.T) {
	first := New("127.0.0.1:0", nil, nil, "dev")
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop() }()

	second := New(first.Addr(), nil, nil, "dev")
	assert.Error(t, second.Start(context.Background()))
}
