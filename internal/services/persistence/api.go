package persistence

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// NewRouter exposes the cached readings.
//
//	GET /healthz
//	GET /readyz                      503 until the first snapshot arrives
//	GET /readings/{category}?scope=  last snapshot for that scope
func NewRouter(svc *Service) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		svc.mu.RLock()
		ready := len(svc.latest) > 0
		svc.mu.RUnlock()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"ready": ready, "points_written": svc.Written()})
	}).Methods(http.MethodGet)

	r.HandleFunc("/readings/{category}", func(w http.ResponseWriter, req *http.Request) {
		c, ok := entities.ParseCategory(mux.Vars(req)["category"])
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown category"})
			return
		}
		scope := req.URL.Query().Get("scope")
		if scope == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scope is required"})
			return
		}
		snap, ok := svc.Latest(scope, c)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no readings yet"})
			return
		}
		w.Header().Set("X-Data-Source", "cache")
		writeJSON(w, http.StatusOK, snap)
	}).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
