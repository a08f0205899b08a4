package aggregator

import (
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// Card is one record as rendered on a category page.
type Card struct {
	entities.ResourceRecord
	Score            float64 `json:"score"`
	Tier             Tier    `json:"tier"`
	Badge            string  `json:"badge"`
	OccupancyPercent int     `json:"occupancy_percent"`
	QueueBadge       string  `json:"queue_badge,omitempty"`
}

// Summary is a category page: every card in source order plus the best pick.
type Summary struct {
	Category entities.Category `json:"category"`
	Scope    string            `json:"scope"`
	Seq      uint64            `json:"seq"`
	Items    []Card            `json:"items"`
	Best     *Card             `json:"best,omitempty"`
	Skipped  int               `json:"skipped"`
	Degraded bool              `json:"degraded,omitempty"`
}

// NewCard scores and classifies a single record.
func NewCard(c entities.Category, r entities.ResourceRecord, score ScoreFunc) Card {
	t := Classify(c, r)
	card := Card{
		ResourceRecord:   r,
		Tier:             t,
		Badge:            Badge(c, t),
		OccupancyPercent: r.OccupancyPercent(),
	}
	if r.Valid() {
		card.Score = score(r)
	}
	if c == entities.CategoryFood {
		card.QueueBadge = QueueBadge(r.QueueLength)
	}
	return card
}

// Summarize builds the page for a seating snapshot. Invalid records are
// shown but never become the best pick.
func Summarize(s entities.Snapshot) (Summary, bool) {
	score, ok := ScoreFor(s.Category)
	if !ok {
		return Summary{}, false
	}
	sum := Summary{Category: s.Category, Scope: s.Scope, Seq: s.Seq, Degraded: s.Degraded, Items: make([]Card, 0, len(s.Resources))}
	for _, r := range s.Resources {
		if !r.Valid() {
			sum.Skipped++
		}
		sum.Items = append(sum.Items, NewCard(s.Category, r, score))
	}
	if best, ok := BestPick(s.Resources, score); ok {
		card := NewCard(s.Category, best, score)
		sum.Best = &card
	}
	return sum, true
}
