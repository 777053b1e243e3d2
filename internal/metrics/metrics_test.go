package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(nil)

	m.ObserveBlock("ssc", "inserted")
	m.ObserveBlock("ssc", "inserted")
	m.ObserveBlock("ssc", "parse_error")
	m.ObserveAdapter("ssc", 2*time.Second, false)
	m.ObserveAdapter("upsc", time.Second, true)
	m.ObserveRun("partial", time.Minute, time.Unix(1760000000, 0))
	m.AddPurged(3)
	m.AddPurged(0)

	if got := testutil.ToFloat64(m.BlocksTotal.WithLabelValues("ssc", "inserted")); got != 2 {
		t.Errorf("blocks_total{ssc,inserted} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AdapterFailures.WithLabelValues("upsc")); got != 1 {
		t.Errorf("adapter failures{upsc} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AdapterFailures.WithLabelValues("ssc")); got != 0 {
		t.Errorf("adapter failures{ssc} = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("partial")); got != 1 {
		t.Errorf("runs_total{partial} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastRunTimestamp); got != 1760000000 {
		t.Errorf("last_run_timestamp_seconds = %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsPurged); got != 3 {
		t.Errorf("records_purged_total = %v, want 3", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.ObserveBlock("ibps", "updated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `exam_events_blocks_total{outcome="updated",source="ibps"} 1`) {
		t.Errorf("metrics output missing blocks_total sample:\n%s", rec.Body.String())
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBlock("x", "inserted")
	m.ObserveAdapter("x", time.Second, true)
	m.ObserveRun("ok", time.Second, time.Now())
	m.AddPurged(1)
	if m.Registry() != nil {
		t.Error("nil Metrics should have no registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil Metrics handler status = %d, want 404", rec.Code)
	}
}
