package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExportsMetrics(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()

	Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	required := []string{
		"# HELP cipherlab_requests_total",
		"# HELP cipherlab_request_errors_total",
		"# TYPE cipherlab_request_duration_seconds histogram",
		"# HELP cipherlab_bruteforce_hypotheses_total",
		"# HELP cipherlab_des_blocks_total",
	}
	for _, metric := range required {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected metric %q to be exported, got %q", metric, body)
		}
	}
}

func TestRecordRequestRendersLabels(t *testing.T) {
	before := TotalRequests()
	RecordRequest("http", "/caesar/encrypt", "200")
	ObserveRequestDuration("http", "/caesar/encrypt", 2*time.Millisecond)
	RecordDESBlocks("Encrypt", 3)
	RecordDESBlocks("encrypt", 0)

	if got := TotalRequests(); got != before+1 {
		t.Fatalf("expected total requests %d, got %d", before+1, got)
	}
	if got := desBlocks.value("encrypt"); got < 3 {
		t.Fatalf("expected at least 3 encrypt blocks, got %g", got)
	}

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()
	for _, line := range []string{
		`cipherlab_requests_total{transport="http",endpoint="/caesar/encrypt",status="200"}`,
		`cipherlab_request_duration_seconds_bucket{transport="http",endpoint="/caesar/encrypt",le="0.005"}`,
		`cipherlab_request_duration_seconds_count{transport="http",endpoint="/caesar/encrypt"}`,
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in output, got %q", line, body)
		}
	}
}

func TestTrackInflight(t *testing.T) {
	done := TrackInflight("grpc")
	if got := inflight.values["grpc"]; got != 1 {
		t.Fatalf("expected 1 in-flight request, got %g", got)
	}
	done()
	if got := inflight.values["grpc"]; got != 0 {
		t.Fatalf("expected 0 in-flight requests, got %g", got)
	}
}
