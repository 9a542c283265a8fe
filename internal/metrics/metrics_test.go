package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New(func() int64 { return 2 })
	m.Candidate("paste", "classified")
	m.Candidate("paste", "classified")
	m.Batch("paste", "paused")
	m.Event("breach", "")

	if got := testutil.ToFloat64(m.candidates.WithLabelValues("paste", "classified")); got != 2 {
		t.Fatalf("candidates = %v", got)
	}
	if got := testutil.ToFloat64(m.batches.WithLabelValues("paste", "paused")); got != 1 {
		t.Fatalf("batches = %v", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("breach", "none")); got != 1 {
		t.Fatalf("events = %v", got)
	}
	if got := testutil.ToFloat64(m.activeDownloads); got != 2 {
		t.Fatalf("active downloads = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.Event("paste", "high")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `leakscanner_events_total{severity="high",source="paste"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Candidate("a", "b")
	m.Batch("a", "b")
	m.Event("a", "b")
}
