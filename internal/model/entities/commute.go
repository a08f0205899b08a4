package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// TrafficLevel is the congestion bucket reported for a commute route.
type TrafficLevel string

const (
	TrafficLow      TrafficLevel = "low"
	TrafficModerate TrafficLevel = "moderate"
	TrafficHeavy    TrafficLevel = "heavy"
	TrafficSevere   TrafficLevel = "severe"
	TrafficUnknown  TrafficLevel = "unknown"
)

// ParseTrafficLevel maps anything unrecognised to unknown.
func ParseTrafficLevel(s string) TrafficLevel {
	switch TrafficLevel(strings.ToLower(strings.TrimSpace(s))) {
	case TrafficLow:
		return TrafficLow
	case TrafficModerate:
		return TrafficModerate
	case TrafficHeavy:
		return TrafficHeavy
	case TrafficSevere:
		return TrafficSevere
	default:
		return TrafficUnknown
	}
}

// Severity orders levels; unknown sorts below low.
func (l TrafficLevel) Severity() int {
	switch l {
	case TrafficLow:
		return 1
	case TrafficModerate:
		return 2
	case TrafficHeavy:
		return 3
	case TrafficSevere:
		return 4
	default:
		return 0
	}
}

// Badge is the label shown next to a route.
func (l TrafficLevel) Badge() string {
	switch l {
	case TrafficLow:
		return "Light Traffic"
	case TrafficModerate:
		return "Moderate Traffic"
	case TrafficHeavy:
		return "Heavy Traffic"
	case TrafficSevere:
		return "Severe Congestion"
	default:
		return "Unknown"
	}
}

// CommuteReading is the latest congestion reading for a point of interest.
type CommuteReading struct {
	POIID       string       `json:"poi_id" yaml:"poi_id"`
	Scope       string       `json:"scope" yaml:"scope"`
	Name        string       `json:"name" yaml:"name"`
	ETAMinutes  float64      `json:"eta_minutes" yaml:"eta_minutes"`
	Level       TrafficLevel `json:"level" yaml:"level"`
	LastUpdated time.Time    `json:"last_updated" yaml:"last_updated"`
}

// UnmarshalJSON accepts the poi_traffic columns (commute_time_minutes,
// traffic_level).
func (c *CommuteReading) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	c.POIID = firstString(m, "poi_id", "id")
	c.Scope = firstString(m, "scope", "university_id")
	c.Name = firstString(m, "name")
	c.ETAMinutes, _ = firstNumber(m, "eta_minutes", "commute_time_minutes")
	c.Level = ParseTrafficLevel(firstString(m, "level", "traffic_level"))
	c.LastUpdated = firstTime(m, "last_updated")
	return nil
}
