// Package lift ranks elevators for a trip from the requester's floor to a
// destination room.
package lift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

const (
	baseScore = 100

	distancePenaltyPerFloor = 5

	nearlyFullPenalty = 30 // occupancy above 80%
	busyPenalty       = 15 // occupancy above 50%

	longQueuePerPerson  = 3 // queue above 5
	shortQueuePerPerson = 2

	idleBonus       = 15
	comingBonus     = 20
	wrongDirPenalty = 10
)

// Score rates one elevator for a trip from currentFloor to dst.
// Elevators in another building score 0.
func Score(e entities.Elevator, dst entities.Destination, currentFloor int) entities.ScoredElevator {
	if e.Building != dst.Building {
		return entities.ScoredElevator{Elevator: e, Score: 0, Explanation: []string{"different building"}}
	}

	score := baseScore
	why := make([]string, 0, 4)

	dist := abs(e.CurrentFloor - currentFloor)
	score -= distancePenaltyPerFloor * dist
	why = append(why, fmt.Sprintf("%d floors away", dist))

	// Capacity <= 0 cannot carry anyone; rate it as full.
	rate := 1.0
	if e.Capacity > 0 {
		rate = float64(e.Occupancy) / float64(e.Capacity)
	}
	switch {
	case rate > 0.8:
		score -= nearlyFullPenalty
		why = append(why, "nearly full")
	case rate > 0.5:
		score -= busyPenalty
		why = append(why, "moderately occupied")
	default:
		why = append(why, "good space available")
	}

	q := e.QueueLength
	switch {
	case q > 5:
		score -= longQueuePerPerson * q
		why = append(why, fmt.Sprintf("%d people waiting", q))
	case q > 0:
		score -= shortQueuePerPerson * q
		why = append(why, fmt.Sprintf("%d in queue", q))
	default:
		why = append(why, "no queue")
	}

	towardRequester := (e.Direction == entities.DirectionUp && e.CurrentFloor < currentFloor) ||
		(e.Direction == entities.DirectionDown && e.CurrentFloor > currentFloor)
	towardDestination := (e.Direction == entities.DirectionUp && dst.Floor > currentFloor) ||
		(e.Direction == entities.DirectionDown && dst.Floor < currentFloor)
	switch {
	case e.Direction == entities.DirectionIdle:
		score += idleBonus
		why = append(why, "idle and ready")
	case towardRequester && towardDestination:
		score += comingBonus
		why = append(why, "coming your way")
	case !towardDestination:
		score -= wrongDirPenalty
		why = append(why, "wrong direction")
	}

	if score < 0 {
		score = 0
	}
	return entities.ScoredElevator{Elevator: e, Score: score, Explanation: why}
}

// Rank scores every valid elevator and sorts best first. Equal scores keep
// the input order; rows that fail Valid are dropped.
func Rank(elevators []entities.Elevator, dst entities.Destination, currentFloor int) []entities.ScoredElevator {
	out := make([]entities.ScoredElevator, 0, len(elevators))
	for _, e := range elevators {
		if !e.Valid() {
			continue
		}
		out = append(out, Score(e, dst, currentFloor))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// RankInBuilding drops elevators outside the destination building before
// ranking, which is what the lift page shows.
func RankInBuilding(elevators []entities.Elevator, dst entities.Destination, currentFloor int) []entities.ScoredElevator {
	same := make([]entities.Elevator, 0, len(elevators))
	for _, e := range elevators {
		if e.Building == dst.Building {
			same = append(same, e)
		}
	}
	return Rank(same, dst, currentFloor)
}

// Band is the colour band of a score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandFair
	default:
		return BandPoor
	}
}

// MaxDestinationResults caps FindDestinations.
const MaxDestinationResults = 5

// FindDestinations returns catalog entries whose label or building contains
// query (case-insensitive), in catalog order. An empty query matches nothing.
func FindDestinations(catalog []entities.Destination, query string, limit int) []entities.Destination {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 || limit > MaxDestinationResults {
		limit = MaxDestinationResults
	}
	out := make([]entities.Destination, 0, limit)
	for _, d := range catalog {
		if strings.Contains(strings.ToLower(d.Label), q) || strings.Contains(strings.ToLower(d.Building), q) {
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// LookupDestination finds a destination by exact label, ignoring case.
func LookupDestination(catalog []entities.Destination, label string) (entities.Destination, bool) {
	for _, d := range catalog {
		if strings.EqualFold(d.Label, strings.TrimSpace(label)) {
			return d, true
		}
	}
	return entities.Destination{}, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
