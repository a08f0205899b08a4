package app

import (
	"encoding/json"
	"net/http"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/aggregator"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/lift"
)

// ---------- Response payloads ----------

type CommuteItem struct {
	entities.CommuteReading
	Badge string `json:"badge"`
}

type CommuteView struct {
	Scope string        `json:"scope"`
	Seq   uint64        `json:"seq"`
	Items []CommuteItem `json:"items"`
}

type ClassroomView struct {
	Scope string               `json:"scope"`
	Items []entities.Classroom `json:"items"`
	Free  int                  `json:"free"`
}

type DestinationView struct {
	Query string                 `json:"query"`
	Items []entities.Destination `json:"items"`
}

type LiftCard struct {
	entities.ScoredElevator
	Band lift.Band `json:"band"`
}

type LiftView struct {
	Destination entities.Destination `json:"destination"`
	From        int                  `json:"from"`
	Lifts       []LiftCard           `json:"lifts"`
	Best        *LiftCard            `json:"best,omitempty"`
}

// LiveMessage is one WebSocket frame.
type LiveMessage struct {
	Category entities.Category `json:"category"`
	Seq      uint64            `json:"seq"`
	Data     any               `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// ---------- Builders ----------

func commuteView(s entities.Snapshot) CommuteView {
	v := CommuteView{Scope: s.Scope, Seq: s.Seq, Items: make([]CommuteItem, 0, len(s.Commute))}
	for _, c := range s.Commute {
		v.Items = append(v.Items, CommuteItem{CommuteReading: c, Badge: c.Level.Badge()})
	}
	return v
}

func liftView(ranked []entities.ScoredElevator, dst entities.Destination, from int) LiftView {
	v := LiftView{Destination: dst, From: from, Lifts: make([]LiftCard, 0, len(ranked))}
	for _, s := range ranked {
		v.Lifts = append(v.Lifts, LiftCard{ScoredElevator: s, Band: lift.BandFor(s.Score)})
	}
	if len(v.Lifts) > 0 {
		best := v.Lifts[0]
		v.Best = &best
	}
	return v
}

// viewOf renders a snapshot the way its REST route does.
func viewOf(s entities.Snapshot) any {
	switch {
	case s.Category.IsSeating():
		sum, _ := aggregator.Summarize(s)
		return sum
	case s.Category == entities.CategoryCommute:
		return commuteView(s)
	case s.Category == entities.CategoryClassroom:
		return ClassroomView{Scope: s.Scope, Items: append([]entities.Classroom{}, s.Classrooms...), Free: len(entities.ClassroomFilter{AvailableOnly: true}.Filter(s.Classrooms))}
	case s.Category == entities.CategoryElevator:
		return s.Elevators
	case s.Category == entities.CategoryDestination:
		return s.Destinations
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
