package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthzHandle(t *testing.T) {
	h := &HealthzServer{Progress: func() Progress {
		return Progress{RunID: "run-1", Tests: 5, Completed: 2, Remaining: 3}
	}}
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, Progress{RunID: "run-1", Tests: 5, Completed: 2, Remaining: 3}, got)
}

func TestHealthzHandleWithoutRun(t *testing.T) {
	rec := httptest.NewRecorder()
	(&HealthzServer{}).Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"run_id":"","tests":0,"completed":0,"remaining":0,"finished":false}`, rec.Body.String())
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "suite_tester_sample_total", Help: "sample"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer((&MetricsServer{Gatherer: reg}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "suite_tester_sample_total 1")
}

func TestNew(t *testing.T) {
	svc := New(Config{HealthzAddr: "127.0.0.1:0", Progress: func() Progress { return Progress{Tests: 1} }})
	assert.NotNil(t, svc.Healthz)
	assert.Equal(t, 1, svc.Healthz.Progress().Tests)
	assert.Nil(t, svc.Metrics)

	svc = New(DefaultConfig())
	assert.NotNil(t, svc.Metrics)

	// Shutting down servers that never started is a no-op
	svc.Shutdown()
}
