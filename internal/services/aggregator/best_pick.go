// Package aggregator picks the best (or worst) parking lot, library zone or
// food stall out of a snapshot and classifies records into display tiers.
package aggregator

import (
	"sort"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// ScoreFunc rates a valid record; higher is better.
type ScoreFunc func(entities.ResourceRecord) float64

// RateScore is available/total, used for parking and library.
func RateScore(r entities.ResourceRecord) float64 {
	return r.AvailabilityRate()
}

// FoodScore is the free-seat percentage minus five points per queued person.
func FoodScore(r entities.ResourceRecord) float64 {
	return r.AvailabilityRate()*100 - float64(r.QueueLength)*5
}

// ScoreFor returns the scoring rule of a seating category.
func ScoreFor(c entities.Category) (ScoreFunc, bool) {
	switch c {
	case entities.CategoryParking, entities.CategoryLibrary:
		return RateScore, true
	case entities.CategoryFood:
		return FoodScore, true
	}
	return nil, false
}

// Usable drops records that cannot be scored (zero capacity, available
// outside [0, capacity], negative queue). It never reorders.
func Usable(records []entities.ResourceRecord) []entities.ResourceRecord {
	out := make([]entities.ResourceRecord, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Scored pairs a record with its score.
type Scored struct {
	Record entities.ResourceRecord `json:"record"`
	Score  float64                 `json:"score"`
}

// BestPick returns the highest scoring usable record. Ties keep the first
// one encountered. ok is false when nothing is usable.
func BestPick(records []entities.ResourceRecord, score ScoreFunc) (best entities.ResourceRecord, ok bool) {
	s, ok := pick(records, score, func(a, b float64) bool { return a > b })
	return s.Record, ok
}

// WorstPick is BestPick with the comparison reversed.
func WorstPick(records []entities.ResourceRecord, score ScoreFunc) (entities.ResourceRecord, bool) {
	s, ok := pick(records, score, func(a, b float64) bool { return a < b })
	return s.Record, ok
}

func pick(records []entities.ResourceRecord, score ScoreFunc, better func(a, b float64) bool) (Scored, bool) {
	var (
		cur   Scored
		found bool
	)
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		s := score(r)
		if !found || better(s, cur.Score) {
			cur, found = Scored{Record: r, Score: s}, true
		}
	}
	return cur, found
}

// Ranked scores every usable record and sorts them best first; equal
// scores keep input order.
func Ranked(records []entities.ResourceRecord, score ScoreFunc) []Scored {
	usable := Usable(records)
	out := make([]Scored, len(usable))
	for i, r := range usable {
		out[i] = Scored{Record: r, Score: score(r)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Top returns at most n entries of Ranked.
func Top(records []entities.ResourceRecord, score ScoreFunc, n int) []Scored {
	r := Ranked(records, score)
	if n >= 0 && len(r) > n {
		r = r[:n]
	}
	return r
}
