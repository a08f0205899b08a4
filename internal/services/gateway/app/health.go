package app

import (
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/observability"
)

// HealthServiceName is the gRPC health service of a category.
func HealthServiceName(c entities.Category) string {
	return "campus." + string(c)
}

// Health mirrors poller outcomes into the gRPC health service: a category
// is SERVING after a live fetch, NOT_SERVING after a degraded one or when a
// fetch fails for a scope that never had data.
type Health struct {
	srv *health.Server
	log *slog.Logger

	mu   sync.Mutex
	good map[string]bool
}

func NewHealth(log *slog.Logger) *Health {
	if log == nil {
		log = slog.Default()
	}
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return &Health{srv: srv, log: log, good: make(map[string]bool)}
}

// Server exposes the underlying health server.
func (h *Health) Server() *health.Server { return h.srv }

// OnUpdate fits poller.RegistryConfig.OnUpdate. A degraded snapshot means
// the live source is down, so the category is NOT_SERVING until live data
// returns.
func (h *Health) OnUpdate(s entities.Snapshot) {
	if s.Degraded {
		h.log.Warn("category degraded", "category", s.Category, "scope", s.Scope)
		h.srv.SetServingStatus(HealthServiceName(s.Category), healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.mu.Lock()
	h.good[string(s.Category)+"/"+s.Scope] = true
	h.mu.Unlock()
	h.srv.SetServingStatus(HealthServiceName(s.Category), healthpb.HealthCheckResponse_SERVING)
}

// OnError fits poller.RegistryConfig.OnError.
func (h *Health) OnError(c entities.Category, scope string, err error) {
	h.mu.Lock()
	had := h.good[string(c)+"/"+scope]
	h.mu.Unlock()
	if had {
		return
	}
	h.log.Warn("category not serving", "category", c, "scope", scope, "err", err)
	h.srv.SetServingStatus(HealthServiceName(c), healthpb.HealthCheckResponse_NOT_SERVING)
}

// Shutdown flips every service to NOT_SERVING.
func (h *Health) Shutdown() { h.srv.Shutdown() }

// NewGRPCServer serves the health service with request metrics.
func NewGRPCServer(h *Health, m *observability.Collector) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(m.UnaryServerInterceptor()))
	healthpb.RegisterHealthServer(s, h.srv)
	return s
}
