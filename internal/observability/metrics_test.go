package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return c, reg
}

func TestCollectorRecordsPollerMetrics(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ObserveFetch("parking", "ok", 20*time.Millisecond)
	c.ObserveFetch("parking", "error", time.Millisecond)
	c.ObserveFetch("parking", "ok", time.Millisecond)
	c.StaleDiscarded("parking")
	c.SetSnapshotSize("parking", "uni-a", 4)
	c.PollerStarted()
	c.PollerStarted()
	c.PollerStopped()

	if got := testutil.ToFloat64(c.Fetches.WithLabelValues("parking", "ok")); got != 2 {
		t.Fatalf("ok fetches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.StaleDiscards.WithLabelValues("parking")); got != 1 {
		t.Fatalf("stale discards = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.SnapshotSize.WithLabelValues("parking", "uni-a")); got != 4 {
		t.Fatalf("snapshot size = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.ActivePollers); got != 1 {
		t.Fatalf("active pollers = %v, want 1", got)
	}
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	b, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	a.IntentHandled("parking")
	if got := testutil.ToFloat64(b.Intents.WithLabelValues("parking")); got != 1 {
		t.Fatalf("shared intent counter = %v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveFetch("x", "ok", 0)
	c.StaleDiscarded("x")
	c.SetSnapshotSize("x", "y", 1)
	c.IntentHandled("x")
	c.ViewerJoined()
	c.ViewerLeft()
	c.PollerStarted()
	c.PollerStopped()
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	c, _ := newTestCollector(t)

	r := mux.NewRouter()
	r.Use(c.Middleware)
	r.HandleFunc("/api/{category}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/parking", nil))

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/api/{category}", "GET", "418")); got != 1 {
		t.Fatalf("http requests = %v, want 1", got)
	}
}

func TestUnaryInterceptorRecordsCode(t *testing.T) {
	c, _ := newTestCollector(t)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, _ = c.UnaryServerInterceptor()(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	if got := testutil.ToFloat64(c.RPCRequests.WithLabelValues("Health", "Check", "NotFound")); got != 1 {
		t.Fatalf("rpc requests = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, _ := newTestCollector(t)
	c.IntentHandled("food")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `campus_assistant_intents_total{intent="food"} 1`) {
		t.Fatalf("metrics output missing intent counter:\n%s", rr.Body.String())
	}
}

func TestSplitMethod(t *testing.T) {
	cases := []struct{ in, svc, m string }{
		{"/grpc.health.v1.Health/Watch", "Health", "Watch"},
		{"", "unknown", "unknown"},
		{"/onlyone", "unknown", "unknown"},
	}
	for _, tc := range cases {
		s, m := SplitMethod(tc.in)
		if s != tc.svc || m != tc.m {
			t.Errorf("SplitMethod(%q) = %q,%q", tc.in, s, m)
		}
	}
}
