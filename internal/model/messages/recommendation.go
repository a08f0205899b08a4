package messages

import (
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// RecommendationEvent is published after every refresh that yields a best pick.
type RecommendationEvent struct {
	Scope     string                  `json:"scope"`
	Category  entities.Category       `json:"category"`
	Seq       uint64                  `json:"seq"`
	Best      entities.ResourceRecord `json:"best"`
	Score     float64                 `json:"score"`
	Tier      string                  `json:"tier"`  // plenty | moderate | limited | full
	Badge     string                  `json:"badge"` // label shown on the card
	Records   int                     `json:"records"`
	Skipped   int                     `json:"skipped"` // malformed records left out of scoring
	Timestamp time.Time               `json:"timestamp"`
}
