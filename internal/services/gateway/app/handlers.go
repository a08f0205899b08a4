package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/aggregator"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/assistant"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/lift"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/auth"
)

type userHandler func(w http.ResponseWriter, r *http.Request, u entities.User)

// withUser answers 401 unless the request carries a known bearer token.
func (g *Gateway) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.UserFromRequest(g.cfg.Auth, r)
		if !ok {
			writeError(w, http.StatusUnauthorized, assistant.MsgSignIn)
			return
		}
		h(w, r, u)
	}
}

func (g *Gateway) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if g.cfg.Ready != nil {
		if err := g.cfg.Ready(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (g *Gateway) snapshot(w http.ResponseWriter, r *http.Request, c entities.Category, scope string) (entities.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()
	s, err := g.cfg.Snapshots.Snapshot(ctx, c, scope)
	if err != nil {
		g.log.Warn("snapshot unavailable", "category", c, "scope", scope, "err", err)
		writeError(w, http.StatusServiceUnavailable, "no "+string(c)+" data available")
		return entities.Snapshot{}, false
	}
	return s, true
}

// HandleCategory serves the parking, library and food pages.
func (g *Gateway) HandleCategory(w http.ResponseWriter, r *http.Request, u entities.User) {
	c, ok := entities.ParseCategory(mux.Vars(r)["category"])
	if !ok || !c.IsSeating() {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	s, ok := g.snapshot(w, r, c, u.Scope)
	if !ok {
		return
	}
	sum, _ := aggregator.Summarize(s)
	writeJSON(w, http.StatusOK, sum)
}

func (g *Gateway) HandleCommute(w http.ResponseWriter, r *http.Request, u entities.User) {
	s, ok := g.snapshot(w, r, entities.CategoryCommute, u.Scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, commuteView(s))
}

// HandleClassrooms accepts q, building and available=true.
func (g *Gateway) HandleClassrooms(w http.ResponseWriter, r *http.Request, u entities.User) {
	s, ok := g.snapshot(w, r, entities.CategoryClassroom, u.Scope)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := entities.ClassroomFilter{
		Query:         q.Get("q"),
		Building:      q.Get("building"),
		AvailableOnly: q.Get("available") == "true",
	}
	items := f.Filter(s.Classrooms)
	free := 0
	for _, c := range items {
		if c.IsAvailable {
			free++
		}
	}
	writeJSON(w, http.StatusOK, ClassroomView{Scope: u.Scope, Items: items, Free: free})
}

func (g *Gateway) HandleDestinations(w http.ResponseWriter, r *http.Request, u entities.User) {
	s, ok := g.snapshot(w, r, entities.CategoryDestination, u.Scope)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items := lift.FindDestinations(s.Destinations, q, limit)
	if items == nil {
		items = []entities.Destination{}
	}
	writeJSON(w, http.StatusOK, DestinationView{Query: q, Items: items})
}

var errBadRequest = errors.New("bad request")

// HandleLiftRecommend ranks a building's lifts for a trip. The target is
// either ?destination=<label> or ?building=&floor=; from defaults to 1.
func (g *Gateway) HandleLiftRecommend(w http.ResponseWriter, r *http.Request, u entities.User) {
	q := r.URL.Query()
	from, err := intParam(q.Get("from"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be an integer")
		return
	}

	var dst entities.Destination
	if label := strings.TrimSpace(q.Get("destination")); label != "" {
		catalog, ok := g.snapshot(w, r, entities.CategoryDestination, u.Scope)
		if !ok {
			return
		}
		d, found := lift.LookupDestination(catalog.Destinations, label)
		if !found {
			writeError(w, http.StatusNotFound, "unknown destination "+label)
			return
		}
		dst = d
	} else {
		floor, err := intParam(q.Get("floor"), 0)
		if err != nil || q.Get("floor") == "" || q.Get("building") == "" {
			writeError(w, http.StatusBadRequest, "destination or building and floor required")
			return
		}
		dst = entities.Destination{Building: q.Get("building"), Floor: floor}
	}

	s, ok := g.snapshot(w, r, entities.CategoryElevator, u.Scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, liftView(lift.RankInBuilding(s.Elevators, dst, from), dst, from))
}

func intParam(v string, def int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errBadRequest
	}
	return n, nil
}

type assistantRequest struct {
	Text string `json:"text"`
}

// HandleAssistant does not require sign-in: the router answers signed-out
// users itself.
func (g *Gateway) HandleAssistant(w http.ResponseWriter, r *http.Request) {
	if g.cfg.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant disabled")
		return
	}
	var req assistantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var user *entities.User
	if u, ok := auth.UserFromRequest(g.cfg.Auth, r); ok {
		user = &u
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*g.cfg.HTTPTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, g.cfg.Assistant.Respond(ctx, user, req.Text))
}
