package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// Classroom is a bookable room and its current availability.
type Classroom struct {
	Scope          string     `json:"scope" yaml:"scope"`
	Building       string     `json:"building" yaml:"building"`
	Floor          int        `json:"floor" yaml:"floor"`
	RoomNumber     string     `json:"room_number" yaml:"room_number"`
	Capacity       int        `json:"capacity" yaml:"capacity"`
	IsAvailable    bool       `json:"is_available" yaml:"is_available"`
	AvailableUntil *time.Time `json:"available_until,omitempty" yaml:"available_until"`
	Facilities     []string   `json:"facilities,omitempty" yaml:"facilities"`
}

func (c *Classroom) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	c.Scope = firstString(m, "scope", "university_id")
	c.Building = firstString(m, "building")
	c.Floor, _ = firstInt(m, "floor")
	c.RoomNumber = firstString(m, "room_number", "label")
	c.Capacity, _ = firstInt(m, "capacity")
	c.IsAvailable = firstBool(m, "is_available", "available")
	if t := firstTime(m, "available_until"); !t.IsZero() {
		c.AvailableUntil = &t
	}
	if raw, ok := m["facilities"].([]any); ok {
		for _, f := range raw {
			if s, ok := f.(string); ok {
				c.Facilities = append(c.Facilities, s)
			}
		}
	}
	return nil
}

// ClassroomFilter narrows a classroom list the way the classrooms page does.
type ClassroomFilter struct {
	Query         string // substring of room number or building
	Building      string // exact building, "" or "all" for any
	AvailableOnly bool
}

// Filter returns the classrooms matching f, preserving order.
func (f ClassroomFilter) Filter(rooms []Classroom) []Classroom {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Classroom, 0, len(rooms))
	for _, r := range rooms {
		if f.AvailableOnly && !r.IsAvailable {
			continue
		}
		if f.Building != "" && f.Building != "all" && r.Building != f.Building {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(r.RoomNumber), q) &&
			!strings.Contains(strings.ToLower(r.Building), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}
