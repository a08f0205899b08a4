package entities

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Category identifies one kind of campus resource served by the dashboard.
type Category string

const (
	CategoryParking     Category = "parking"
	CategoryLibrary     Category = "library"
	CategoryFood        Category = "food"
	CategoryElevator    Category = "elevator"
	CategoryDestination Category = "destination"
	CategoryCommute     Category = "commute"
	CategoryClassroom   Category = "classroom"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryParking,
	CategoryLibrary,
	CategoryFood,
	CategoryElevator,
	CategoryDestination,
	CategoryCommute,
	CategoryClassroom,
}

// ParseCategory accepts the canonical name plus the aliases used by the
// legacy dashboard routes (e.g. "lift", "canteen", "traffic").
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parking", "parking_lots":
		return CategoryParking, true
	case "library", "library_seats", "library-seats":
		return CategoryLibrary, true
	case "food", "canteen", "canteen-seats", "food_stalls":
		return CategoryFood, true
	case "elevator", "elevators", "lift", "lifts":
		return CategoryElevator, true
	case "destination", "destinations":
		return CategoryDestination, true
	case "commute", "traffic", "poi_traffic":
		return CategoryCommute, true
	case "classroom", "classrooms":
		return CategoryClassroom, true
	}
	return "", false
}

// IsSeating reports whether records of this category are ResourceRecords.
func (c Category) IsSeating() bool {
	return c == CategoryParking || c == CategoryLibrary || c == CategoryFood
}

// ResourceRecord is a parking lot, library zone or food stall.
type ResourceRecord struct {
	ID            string    `json:"id" yaml:"id"`
	Scope         string    `json:"scope" yaml:"scope"`       // organizational tenant (university)
	Category      Category  `json:"category" yaml:"category"` // parking | library | food
	Name          string    `json:"name" yaml:"name"`         // zone or stall name
	TotalCapacity int       `json:"total_capacity" yaml:"total_capacity"`
	Available     int       `json:"available" yaml:"available"`
	QueueLength   int       `json:"queue_length,omitempty" yaml:"queue_length"` // food only
	Amenities     []string  `json:"amenities,omitempty" yaml:"amenities"`       // library only
	LastUpdated   time.Time `json:"last_updated" yaml:"last_updated"`
}

// Valid reports whether the record can be scored: capacity must be positive,
// 0 <= available <= capacity and the queue non-negative.
func (r ResourceRecord) Valid() bool {
	return r.TotalCapacity > 0 &&
		r.Available >= 0 &&
		r.Available <= r.TotalCapacity &&
		r.QueueLength >= 0
}

// AvailabilityRate is available/total in [0..1]. Zero for invalid capacity.
func (r ResourceRecord) AvailabilityRate() float64 {
	if r.TotalCapacity <= 0 {
		return 0
	}
	return float64(r.Available) / float64(r.TotalCapacity)
}

// OccupancyPercent is the rounded share of capacity in use.
func (r ResourceRecord) OccupancyPercent() int {
	if r.TotalCapacity <= 0 {
		return 0
	}
	return int(math.Round(float64(r.TotalCapacity-r.Available) / float64(r.TotalCapacity) * 100))
}

// UnmarshalJSON accepts both the canonical field names and the column names
// of the upstream tables (total_spaces, available_seats, zone, ...), with
// numbers possibly encoded as strings.
func (r *ResourceRecord) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	r.ID = firstString(m, "id")
	r.Scope = firstString(m, "scope", "university_id")
	r.Category = Category(firstString(m, "category"))
	r.Name = firstString(m, "name", "zone", "stall_name", "zone_name")
	r.TotalCapacity, _ = firstInt(m, "total_capacity", "total_spaces", "total_seats")
	var ok bool
	if r.Available, ok = firstInt(m, "available", "available_spaces", "available_seats"); !ok {
		// missing or unreadable: fail Valid instead of reading as full
		r.Available = -1
	}
	r.QueueLength = optionalInt(m, "queue_length", "queue_count")
	if raw, ok := m["amenities"].([]any); ok {
		r.Amenities = r.Amenities[:0]
		for _, a := range raw {
			if s, ok := a.(string); ok {
				r.Amenities = append(r.Amenities, s)
			}
		}
	}
	r.LastUpdated = firstTime(m, "last_updated", "timestamp")
	return nil
}

// ---------- tolerant decoding helpers ----------

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch x := v.(type) {
			case string:
				if strings.TrimSpace(x) != "" {
					return x
				}
			case float64:
				return strconv.FormatFloat(x, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		mv, ok := m[k]
		if !ok {
			continue
		}
		switch x := mv.(type) {
		case float64:
			return x, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, true
			}
		case bool:
			if x {
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

func firstInt(m map[string]any, keys ...string) (int, bool) {
	f, ok := firstNumber(m, keys...)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// optionalInt reads a count that may be absent: absent or null is 0, present
// but unreadable is -1.
func optionalInt(m map[string]any, keys ...string) int {
	if n, ok := firstInt(m, keys...); ok {
		return n
	}
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return -1
		}
	}
	return 0
}

func firstBool(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch x := m[k].(type) {
		case bool:
			return x
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b
			}
		}
	}
	return false
}

func firstTime(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
