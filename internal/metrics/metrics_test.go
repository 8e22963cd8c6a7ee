package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"epcsync/internal/metrics"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/v1/jobs", "200"))

	metrics.RecordRequest("GET", "/api/v1/jobs", "200", 15*time.Millisecond)

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/v1/jobs", "200"))
	assert.Equal(t, before+1, after)
}

func TestObserveStage(t *testing.T) {
	metrics.ObserveStage("ai_extraction", time.Now().Add(-time.Second))

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.StageDuration))
}
