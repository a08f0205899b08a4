package aggregator

import (
	"fmt"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// Tier is the availability badge of a record.
type Tier string

const (
	TierPlenty   Tier = "plenty"
	TierModerate Tier = "moderate"
	TierLimited  Tier = "limited"
	TierFull     Tier = "full"
)

// Classify maps a record to its tier: availability above 50%, above 25%,
// above 0% or none. Food additionally needs fewer than 3 queued for the top
// tier and fewer than 5 for the second. Invalid capacity is full.
func Classify(c entities.Category, r entities.ResourceRecord) Tier {
	if r.TotalCapacity <= 0 {
		return TierFull
	}
	rate := float64(r.Available) / float64(r.TotalCapacity) * 100
	food := c == entities.CategoryFood
	switch {
	case rate > 50 && (!food || r.QueueLength < 3):
		return TierPlenty
	case rate > 25 && (!food || r.QueueLength < 5):
		return TierModerate
	case rate > 0:
		return TierLimited
	default:
		return TierFull
	}
}

// Badge is the label the dashboard prints for a tier.
func Badge(c entities.Category, t Tier) string {
	if c == entities.CategoryFood {
		switch t {
		case TierPlenty:
			return "Great Choice"
		case TierModerate:
			return "Good"
		case TierLimited:
			return "Busy"
		default:
			return "Very Busy"
		}
	}
	switch t {
	case TierPlenty:
		return "Plenty Available"
	case TierModerate:
		return "Moderate"
	case TierLimited:
		return "Limited"
	default:
		return "Full"
	}
}

// QueueBadge renders a food stall queue.
func QueueBadge(q int) string {
	if q <= 0 {
		return "No Queue"
	}
	return fmt.Sprintf("%d waiting", q)
}
