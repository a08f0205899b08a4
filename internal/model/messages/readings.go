package messages

import "github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"

// ReadingsFilter subscribes to every campus feed.
const ReadingsFilter = "campus/readings/#"

// ReadingsTopic carries full snapshots of one category for one scope; the
// payload is an entities.Snapshot.
func ReadingsTopic(scope string, c entities.Category) string {
	return "campus/readings/" + scope + "/" + string(c)
}
