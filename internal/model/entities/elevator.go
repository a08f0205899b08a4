package entities

import (
	"encoding/json"
	"strings"
)

// Direction is the travel direction of an elevator car.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionIdle Direction = "idle"
)

// ParseDirection maps unknown values to idle.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return DirectionUp
	case "down":
		return DirectionDown
	default:
		return DirectionIdle
	}
}

// Elevator is one lift car as reported by the building feed.
type Elevator struct {
	ID            string    `json:"id" yaml:"id"`
	Scope         string    `json:"scope" yaml:"scope"`
	Building      string    `json:"building" yaml:"building"`
	Label         string    `json:"label" yaml:"label"` // lift id shown to users, e.g. "L2"
	CurrentFloor  int       `json:"current_floor" yaml:"current_floor"`
	Direction     Direction `json:"direction" yaml:"direction"`
	Occupancy     int       `json:"occupancy" yaml:"occupancy"`
	Capacity      int       `json:"capacity" yaml:"capacity"`
	QueueLength   int       `json:"queue_length" yaml:"queue_length"`
	EstimatedWait int       `json:"estimated_wait" yaml:"estimated_wait"` // seconds
}

// DisplayName prefers the lift label and falls back to the id.
func (e Elevator) DisplayName() string {
	if e.Label != "" {
		return e.Label
	}
	return e.ID
}

// UnmarshalJSON accepts the lifts table columns (lift_id, queue_count,
// current_occupancy, estimated_wait_time) besides the canonical names.
func (e *Elevator) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	e.ID = firstString(m, "id")
	e.Scope = firstString(m, "scope", "university_id")
	e.Building = firstString(m, "building")
	e.Label = firstString(m, "label", "lift_id")
	floor, floorOK := firstInt(m, "current_floor", "floor")
	e.CurrentFloor = floor
	e.Direction = ParseDirection(firstString(m, "direction"))
	occ, occOK := firstInt(m, "occupancy", "current_occupancy")
	e.Occupancy = occ
	if !floorOK || !occOK {
		e.Occupancy = -1
	}
	e.Capacity, _ = firstInt(m, "capacity")
	e.QueueLength = optionalInt(m, "queue_length", "queue_count")
	e.EstimatedWait = optionalInt(m, "estimated_wait", "estimated_wait_time")
	return nil
}

// Valid reports whether the lift can be ranked. The decoder sets Occupancy to
// -1 when the floor or occupancy column cannot be read. Capacity <= 0 is
// still valid and ranks as full.
func (e Elevator) Valid() bool {
	return e.Building != "" && e.Occupancy >= 0 && e.QueueLength >= 0 && e.EstimatedWait >= 0
}

// Destination is a room the requester wants to reach.
type Destination struct {
	Building string `json:"building" yaml:"building"`
	Floor    int    `json:"floor" yaml:"floor"`
	Label    string `json:"label" yaml:"label"` // room identifier, e.g. "C721"
}

// UnmarshalJSON accepts the classrooms catalog shape (room_number).
func (d *Destination) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	d.Building = firstString(m, "building")
	d.Floor, _ = firstInt(m, "floor", "target_floor")
	d.Label = firstString(m, "label", "room_number")
	return nil
}

// ScoredElevator is an elevator with its recommendation score and the
// ordered reasons that produced it.
type ScoredElevator struct {
	Elevator
	Score       int      `json:"score"`
	Explanation []string `json:"explanation"`
}
