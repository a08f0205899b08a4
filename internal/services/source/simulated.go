package source

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
)

// Simulated perturbs the snapshots of a base source with a bounded random
// walk, so a demo dashboard moves without real sensors. State is kept per
// record across fetches.
type Simulated struct {
	base poller.Source

	mu    sync.Mutex
	rng   *rand.Rand
	last  time.Time
	now   func() time.Time
	avail map[string]float64 // resource id -> available, fractional
	queue map[string]int
	lifts map[string]entities.Elevator

	// DriftPerMin is the largest availability change per minute, as a
	// share of capacity.
	DriftPerMin float64
	// MaxFloor bounds simulated elevator travel.
	MaxFloor int
}

func NewSimulated(base poller.Source, seed int64) *Simulated {
	return &Simulated{
		base:        base,
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
		avail:       make(map[string]float64),
		queue:       make(map[string]int),
		lifts:       make(map[string]entities.Elevator),
		DriftPerMin: 0.05,
		MaxFloor:    12,
	}
}

func (s *Simulated) Fetch(ctx context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
	snap, err := s.base.Fetch(ctx, c, scope)
	if err != nil {
		return entities.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	dtMin := 1.0
	if !s.last.IsZero() {
		dtMin = math.Max(0, now.Sub(s.last).Minutes())
	}
	s.last = now

	for i := range snap.Resources {
		s.walkResource(&snap.Resources[i], dtMin, now)
	}
	for i := range snap.Elevators {
		s.walkElevator(&snap.Elevators[i])
	}
	snap.FetchedAt = now
	return snap, nil
}

func (s *Simulated) walkResource(r *entities.ResourceRecord, dtMin float64, now time.Time) {
	if r.TotalCapacity <= 0 {
		return
	}
	key := r.Scope + "/" + string(r.Category) + "/" + r.ID
	cur, ok := s.avail[key]
	if !ok {
		cur = float64(r.Available)
	}
	step := s.DriftPerMin * dtMin * float64(r.TotalCapacity)
	cur = clamp(cur+(s.rng.Float64()*2-1)*step, 0, float64(r.TotalCapacity))
	s.avail[key] = cur
	r.Available = int(math.Round(cur))

	if r.Category == entities.CategoryFood {
		q, ok := s.queue[key]
		if !ok {
			q = r.QueueLength
		}
		q += s.rng.Intn(3) - 1
		if q < 0 {
			q = 0
		}
		s.queue[key] = q
		r.QueueLength = q
	}
	r.LastUpdated = now
}

// walkElevator moves the car one floor in its direction, reversing at the
// ends, and jitters load and queue.
func (s *Simulated) walkElevator(e *entities.Elevator) {
	key := e.Scope + "/" + e.ID
	st, ok := s.lifts[key]
	if !ok {
		st = *e
	}
	switch st.Direction {
	case entities.DirectionUp:
		st.CurrentFloor++
		if st.CurrentFloor >= s.MaxFloor {
			st.CurrentFloor, st.Direction = s.MaxFloor, entities.DirectionDown
		}
	case entities.DirectionDown:
		st.CurrentFloor--
		if st.CurrentFloor <= 1 {
			st.CurrentFloor, st.Direction = 1, entities.DirectionIdle
		}
	default:
		if s.rng.Intn(3) == 0 {
			st.Direction = entities.DirectionUp
		}
	}
	if st.Capacity > 0 {
		st.Occupancy = int(clamp(float64(st.Occupancy+s.rng.Intn(5)-2), 0, float64(st.Capacity)))
	}
	st.QueueLength += s.rng.Intn(3) - 1
	if st.QueueLength < 0 {
		st.QueueLength = 0
	}
	s.lifts[key] = st
	e.CurrentFloor, e.Direction = st.CurrentFloor, st.Direction
	e.Occupancy, e.QueueLength = st.Occupancy, st.QueueLength
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
