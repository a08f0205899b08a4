package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/observability"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/assistant"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/auth"
)

// Snapshots is the slice of poller.Registry the gateway needs.
type Snapshots interface {
	Snapshot(ctx context.Context, category entities.Category, scope string) (entities.Snapshot, error)
	Acquire(category entities.Category, scope string) *poller.Lease
}

type Config struct {
	Snapshots Snapshots
	Auth      auth.Authenticator
	Assistant *assistant.Router
	Metrics   *observability.Collector // optional
	// Ready reports whether the service can answer; nil is always ready.
	Ready func() error

	HTTPTimeout time.Duration
	// AllowedOrigins enables CORS for the browser dashboard.
	AllowedOrigins []string

	Logger *slog.Logger
}

// Gateway is the HTTP face of the dashboard.
type Gateway struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	g := &Gateway{cfg: cfg, log: cfg.Logger}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// Router wires every route. Specific /api routes are registered before the
// /api/{category} catch-all.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(g.cfg.Metrics.Middleware)

	r.HandleFunc("/healthz", g.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", g.HandleReady).Methods(http.MethodGet)
	if g.cfg.Metrics != nil {
		r.Handle("/metrics", g.cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/commute", g.withUser(g.HandleCommute)).Methods(http.MethodGet)
	api.HandleFunc("/classrooms", g.withUser(g.HandleClassrooms)).Methods(http.MethodGet)
	api.HandleFunc("/destinations", g.withUser(g.HandleDestinations)).Methods(http.MethodGet)
	api.HandleFunc("/lifts/recommend", g.withUser(g.HandleLiftRecommend)).Methods(http.MethodGet)
	api.HandleFunc("/assistant", g.HandleAssistant).Methods(http.MethodPost)
	api.HandleFunc("/{category}", g.withUser(g.HandleCategory)).Methods(http.MethodGet)

	r.HandleFunc("/ws/{category}", g.HandleLive).Methods(http.MethodGet)
	return r
}

// Handler is Router with CORS and panic recovery applied.
func (g *Gateway) Handler() http.Handler {
	var h http.Handler = g.Router()
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
	if len(g.cfg.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(g.cfg.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(h)
	}
	return h
}

// AccessLogged is Handler behind a combined-format access log on out. Query
// tokens are moved out of the URL before the log sees the request.
func (g *Gateway) AccessLogged(out io.Writer) http.Handler {
	return TokenFromQuery(handlers.CombinedLoggingHandler(out, g.Handler()))
}

// TokenFromQuery moves a ?token= credential into the Authorization header
// and strips it from the URL. An explicit header wins.
func TokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("token") {
			next.ServeHTTP(w, r)
			return
		}
		r = r.Clone(r.Context())
		if tok := q.Get("token"); tok != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+tok)
		}
		q.Del("token")
		r.URL.RawQuery = q.Encode()
		r.RequestURI = r.URL.RequestURI()
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range g.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
