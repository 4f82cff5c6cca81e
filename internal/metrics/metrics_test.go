package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/five82/scrapedeck/internal/async"
)

var _ async.Observer = (*Metrics)(nil)

func TestMetrics_CountsOutcomes(t *testing.T) {
	m := New()

	m.ObserveFetch("status", nil)
	m.ObserveFetch("status", errors.New("boom"))
	m.ObserveStale("ci_logs")
	m.ObserveMutation("toggle_site", nil)
	m.ObserveMutation("toggle_site", errors.New("rejected"))
	m.ObserveMutation("", nil)

	require.InDelta(t, 2, testutil.ToFloat64(m.pollTicks.WithLabelValues("status")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.pollFailures.WithLabelValues("status")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.stale.WithLabelValues("ci_logs")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.mutations.WithLabelValues("toggle_site", "failure")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.mutations.WithLabelValues("unnamed", "success")), 0)
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveStale("runs")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(string(body), `scrapedeck_stale_responses_total{poller="runs"} 1`))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveFetch("status", nil)
	require.Zero(t, testutil.ToFloat64(b.pollTicks.WithLabelValues("status")))
}
