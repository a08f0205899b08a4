package entities

import "time"

// Snapshot is the full record set of one category for one scope as of a
// single successful fetch. Only the slice matching Category is populated.
type Snapshot struct {
	Category  Category  `json:"category"`
	Scope     string    `json:"scope"`
	Seq       uint64    `json:"seq"` // monotonic per scheduler, 0 for one-shot fetches
	FetchedAt time.Time `json:"fetched_at"`
	// Degraded marks data served from a cache or fixtures while the live
	// source is failing.
	Degraded bool `json:"degraded,omitempty"`

	Resources    []ResourceRecord `json:"resources,omitempty"`
	Elevators    []Elevator       `json:"elevators,omitempty"`
	Destinations []Destination    `json:"destinations,omitempty"`
	Commute      []CommuteReading `json:"commute,omitempty"`
	Classrooms   []Classroom      `json:"classrooms,omitempty"`
}

// Len is the number of records carried for the snapshot's category.
func (s Snapshot) Len() int {
	switch s.Category {
	case CategoryElevator:
		return len(s.Elevators)
	case CategoryDestination:
		return len(s.Destinations)
	case CategoryCommute:
		return len(s.Commute)
	case CategoryClassroom:
		return len(s.Classrooms)
	default:
		return len(s.Resources)
	}
}

// Empty reports whether there is nothing to show.
func (s Snapshot) Empty() bool { return s.Len() == 0 }

// Clone returns a copy whose slices do not alias s, so a consumer can hold
// it without seeing the next refresh.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Resources = append([]ResourceRecord(nil), s.Resources...)
	out.Elevators = append([]Elevator(nil), s.Elevators...)
	out.Destinations = append([]Destination(nil), s.Destinations...)
	out.Commute = append([]CommuteReading(nil), s.Commute...)
	out.Classrooms = append([]Classroom(nil), s.Classrooms...)
	return out
}

// User is the signed-in caller; Scope partitions every lookup.
type User struct {
	ID    string `json:"id"`
	Scope string `json:"scope"`
}
