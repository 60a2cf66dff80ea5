package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	memberauth "github.com/liquorlink/memberauth"
)

type fakeSource struct {
	snapshot memberauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() memberauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: memberauth.MetricsSnapshot{
			Counters:   map[memberauth.MetricID]uint64{},
			Histograms: map[memberauth.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: memberauth.MetricsSnapshot{
			Counters: map[memberauth.MetricID]uint64{
				memberauth.MetricLoginSuccess: 7,
			},
			Histograms: map[memberauth.MetricID][]uint64{
				memberauth.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "memberauth_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "memberauth_login_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "memberauth_login_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "memberauth_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: memberauth.MetricsSnapshot{
			Counters:   map[memberauth.MetricID]uint64{memberauth.MetricLoginSuccess: 1},
			Histograms: map[memberauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: memberauth.MetricsSnapshot{
			Counters: map[memberauth.MetricID]uint64{
				memberauth.MetricLoginSuccess:         1000,
				memberauth.MetricLoginFailure:         40,
				memberauth.MetricLoginLockedOut:       12,
				memberauth.MetricRegistrationSuccess:  800,
				memberauth.MetricRecoveryBegin:        30,
				memberauth.MetricPasswordResetSuccess: 25,
			},
			Histograms: map[memberauth.MetricID][]uint64{
				memberauth.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
