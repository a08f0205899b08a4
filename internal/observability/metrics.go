package observability

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Collector bundles the dashboard's Prometheus metrics: poller fetches,
// snapshot sizes, assistant intents and the HTTP/gRPC surfaces.
type Collector struct {
	gatherer prometheus.Gatherer

	Fetches        *prometheus.CounterVec
	FetchDurations *prometheus.HistogramVec
	StaleDiscards  *prometheus.CounterVec
	SnapshotSize   *prometheus.GaugeVec
	ActivePollers  prometheus.Gauge

	Intents *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
	RPCRequests   *prometheus.CounterVec
	LiveViewers   prometheus.Gauge
}

// NewCollector registers all metrics against reg, defaulting to the global
// registry when nil. Registering twice on the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}
	var err error

	if c.Fetches, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_poll_fetches_total",
		Help: "Source fetches issued by pollers, labeled by category and result.",
	}, []string{"category", "result"}), "campus_poll_fetches_total"); err != nil {
		return nil, err
	}
	if c.FetchDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campus_poll_fetch_duration_seconds",
		Help:    "Source fetch latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"category"}), "campus_poll_fetch_duration_seconds"); err != nil {
		return nil, err
	}
	if c.StaleDiscards, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_poll_stale_discards_total",
		Help: "Fetch completions dropped because a newer fetch already published.",
	}, []string{"category"}), "campus_poll_stale_discards_total"); err != nil {
		return nil, err
	}
	if c.SnapshotSize, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "campus_snapshot_records",
		Help: "Records in the latest published snapshot.",
	}, []string{"category", "scope"}), "campus_snapshot_records"); err != nil {
		return nil, err
	}
	if c.ActivePollers, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campus_active_pollers",
		Help: "Pollers currently running.",
	}), "campus_active_pollers"); err != nil {
		return nil, err
	}
	if c.Intents, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_assistant_intents_total",
		Help: "Utterances handled by the assistant, labeled by classified intent.",
	}, []string{"intent"}), "campus_assistant_intents_total"); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_http_requests_total",
		Help: "HTTP requests served by the gateway, labeled by route, method and status code.",
	}, []string{"route", "method", "code"}), "campus_http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campus_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"}), "campus_http_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.RPCRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_grpc_requests_total",
		Help: "gRPC calls handled, labeled by service, method and status code.",
	}, []string{"service", "method", "code"}), "campus_grpc_requests_total"); err != nil {
		return nil, err
	}
	if c.LiveViewers, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campus_live_viewers",
		Help: "Open websocket live views.",
	}), "campus_live_viewers"); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveFetch records one completed fetch. result is "ok" or "error".
func (c *Collector) ObserveFetch(category, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.Fetches.WithLabelValues(category, result).Inc()
	c.FetchDurations.WithLabelValues(category).Observe(d.Seconds())
}

func (c *Collector) StaleDiscarded(category string) {
	if c == nil {
		return
	}
	c.StaleDiscards.WithLabelValues(category).Inc()
}

func (c *Collector) SetSnapshotSize(category, scope string, n int) {
	if c == nil {
		return
	}
	c.SnapshotSize.WithLabelValues(category, scope).Set(float64(n))
}

// PollerStarted and PollerStopped keep the active poller gauge.
func (c *Collector) PollerStarted() {
	if c != nil {
		c.ActivePollers.Inc()
	}
}

func (c *Collector) PollerStopped() {
	if c != nil {
		c.ActivePollers.Dec()
	}
}

func (c *Collector) IntentHandled(intent string) {
	if c == nil {
		return
	}
	c.Intents.WithLabelValues(intent).Inc()
}

func (c *Collector) ViewerJoined() {
	if c != nil {
		c.LiveViewers.Inc()
	}
}

func (c *Collector) ViewerLeft() {
	if c != nil {
		c.LiveViewers.Dec()
	}
}

// Middleware counts requests per mux route template.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.code)).Inc()
		c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// UnaryServerInterceptor records request counts for unary RPCs.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if c == nil {
			return resp, err
		}
		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		return resp, err
	}
}

// SplitMethod parses "/pkg.Service/Method" into its short service and method
// names, returning "unknown" for parts it cannot find.
func SplitMethod(fullMethod string) (string, string) {
	parts := strings.Split(strings.TrimPrefix(fullMethod, "/"), "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service, method := parts[len(parts)-2], parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
