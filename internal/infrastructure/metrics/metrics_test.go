package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := metrics.Recorder{}

	localBefore := testutil.ToFloat64(metrics.ResultsTotal.WithLabelValues("local"))
	r.Computed(domain.SourceLocal, 3*time.Millisecond)
	assert.Equal(t, localBefore+1, testutil.ToFloat64(metrics.ResultsTotal.WithLabelValues("local")))

	timeoutBefore := testutil.ToFloat64(metrics.RemoteRequestsTotal.WithLabelValues("timeout"))
	r.RemoteCall("timeout", 2*time.Second)
	assert.Equal(t, timeoutBefore+1, testutil.ToFloat64(metrics.RemoteRequestsTotal.WithLabelValues("timeout")))

	hitsBefore := testutil.ToFloat64(metrics.CacheRequestsTotal.WithLabelValues("hit"))
	r.CacheLookup(true)
	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(metrics.CacheRequestsTotal.WithLabelValues("hit")))

	staleBefore := testutil.ToFloat64(metrics.StaleResultsDropped)
	r.StaleResultDropped()
	assert.Equal(t, staleBefore+1, testutil.ToFloat64(metrics.StaleResultsDropped))

	r.SnapshotRefreshed(12, nil)
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.SnapshotTickets))

	errorsBefore := testutil.ToFloat64(metrics.SnapshotRefreshesTotal.WithLabelValues("error"))
	r.SnapshotRefreshed(0, errors.New("boom"))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(metrics.SnapshotRefreshesTotal.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.SnapshotTickets), "failed refresh keeps the gauge")
}
