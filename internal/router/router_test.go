package router_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/fingerprint"
	"epcsync/internal/handler"
	"epcsync/internal/jobs"
	"epcsync/internal/repository/file"
	"epcsync/internal/router"
	"epcsync/internal/service"
	"epcsync/mocks"
)

func newEngine(t *testing.T) (*gin.Engine, *jobs.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tracker := fingerprint.NewTracker(file.NewRecordRepo(filepath.Join(t.TempDir(), "processed.json")))
	registry := jobs.NewRegistry()
	pipeline := service.NewPipeline(tracker, new(mocks.MockConverter), new(mocks.MockExtractor), new(mocks.MockSubmitter), registry, service.PipelineConfig{})
	queue := service.NewQueueWorker(pipeline, registry, service.QueueConfig{})

	r := router.Setup(router.Handlers{
		Documents: handler.NewDocumentHandler(queue, "", 10),
		Jobs:      handler.NewJobHandler(registry, pipeline),
		Records:   handler.NewRecordHandler(tracker),
		Health:    handler.NewHealthHandler(nil),
	}, []string{"http://localhost:3000"})
	return r, registry
}

func TestRouter_EncodedIdentity(t *testing.T) {
	r, registry := newEngine(t)
	_, err := registry.Create("catalogs/parts.pdf", "parts.pdf")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/catalogs%2Fparts.pdf", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identity":"catalogs/parts.pdf"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/catalogs%2Fparts.pdf/cancel", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newEngine(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// One request through the logger so the request counter has a sample.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "epcsync_http_requests_total"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _ := newEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
