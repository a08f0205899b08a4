package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/aggregator"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/lift"
)

const (
	MsgSignIn     = "Please sign in to check live campus data."
	MsgHelp       = "I can help you with classrooms, lifts, traffic, parking, library, food stalls, and course planning!"
	MsgCoursePlan = "Opening your course planner."
	MsgGreeting   = "Hi! Ask me about parking, the library, food stalls, lifts, classrooms or traffic."
	MsgThanks     = "You're welcome!"

	summaryLimit = 3
)

// MsgNoData is the reply for an empty snapshot of noun.
func MsgNoData(noun string) string {
	return fmt.Sprintf("Sorry, no %s data is available right now.", noun)
}

// SnapshotReader returns the latest snapshot of a category for a scope.
// poller.Registry satisfies it.
type SnapshotReader interface {
	Snapshot(ctx context.Context, category entities.Category, scope string) (entities.Snapshot, error)
}

// Responder answers utterances no rule matched.
type Responder interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IntentObserver counts handled intents.
type IntentObserver interface {
	IntentHandled(intent string)
}

// Reply is what the assistant says back.
type Reply struct {
	Intent   Intent            `json:"intent"`
	Text     string            `json:"text"`
	Category entities.Category `json:"category,omitempty"`
}

type Config struct {
	Snapshots SnapshotReader
	Responder Responder // optional
	Rules     []Rule    // defaults to DefaultRules
	Metrics   IntentObserver
	Logger    *slog.Logger
}

// Router classifies utterances and renders answers from live snapshots.
type Router struct {
	rules     []Rule
	snapshots SnapshotReader
	responder Responder
	metrics   IntentObserver
	log       *slog.Logger
}

func New(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules
	}
	return &Router{
		rules:     cfg.Rules,
		snapshots: cfg.Snapshots,
		responder: cfg.Responder,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
}

func (r *Router) Classify(utterance string) Intent {
	return Classify(r.rules, utterance)
}

// Respond answers utterance on behalf of user. A nil user is signed out.
// Respond never fails: every error path becomes a message.
func (r *Router) Respond(ctx context.Context, user *entities.User, utterance string) Reply {
	intent := r.Classify(utterance)
	if r.metrics != nil {
		r.metrics.IntentHandled(string(intent))
	}
	lower := strings.ToLower(utterance)

	switch intent {
	case IntentGreeting:
		return Reply{Intent: intent, Text: MsgGreeting}
	case IntentThanks:
		return Reply{Intent: intent, Text: MsgThanks}
	case IntentCoursePlan:
		return Reply{Intent: intent, Text: MsgCoursePlan}
	case IntentUnmatched:
		return Reply{Intent: intent, Text: r.freeText(ctx, utterance)}
	}

	cat := categoryOf(intent)
	reply := Reply{Intent: intent, Category: cat}
	if user == nil || user.Scope == "" {
		reply.Text = MsgSignIn
		return reply
	}
	snap, ok := r.fetch(ctx, cat, user.Scope)
	if !ok {
		reply.Text = MsgNoData(nounOf(cat))
		return reply
	}

	switch intent {
	case IntentTraffic:
		reply.Text = renderCommute(snap.Commute, modeOf(lower))
	case IntentElevator:
		reply.Text = r.renderElevators(ctx, snap.Elevators, user.Scope, lower)
	case IntentClassroom:
		reply.Text = renderClassrooms(snap.Classrooms, modeOf(lower))
	default:
		reply.Text = renderResources(cat, snap.Resources, modeOf(lower))
	}
	return reply
}

func (r *Router) fetch(ctx context.Context, c entities.Category, scope string) (entities.Snapshot, bool) {
	if r.snapshots == nil {
		return entities.Snapshot{}, false
	}
	snap, err := r.snapshots.Snapshot(ctx, c, scope)
	if err != nil {
		r.log.Warn("snapshot unavailable", "category", c, "scope", scope, "err", err)
		return entities.Snapshot{}, false
	}
	switch c {
	case entities.CategoryCommute:
		return snap, len(snap.Commute) > 0
	case entities.CategoryElevator:
		return snap, len(usableLifts(snap.Elevators)) > 0
	case entities.CategoryDestination:
		return snap, len(snap.Destinations) > 0
	case entities.CategoryClassroom:
		return snap, len(snap.Classrooms) > 0
	}
	// invalid records cannot be scored; a snapshot of only those is empty
	return snap, len(aggregator.Usable(snap.Resources)) > 0
}

func (r *Router) freeText(ctx context.Context, utterance string) string {
	if r.responder == nil {
		return MsgHelp
	}
	text, err := r.responder.Complete(ctx, utterance)
	if err != nil {
		r.log.Warn("responder failed", "err", err)
		return MsgHelp
	}
	if strings.TrimSpace(text) == "" {
		return MsgHelp
	}
	return strings.TrimSpace(text)
}

func categoryOf(i Intent) entities.Category {
	switch i {
	case IntentTraffic:
		return entities.CategoryCommute
	case IntentParking:
		return entities.CategoryParking
	case IntentLibrary:
		return entities.CategoryLibrary
	case IntentFood:
		return entities.CategoryFood
	case IntentElevator:
		return entities.CategoryElevator
	case IntentClassroom:
		return entities.CategoryClassroom
	}
	return ""
}

func nounOf(c entities.Category) string {
	switch c {
	case entities.CategoryCommute:
		return "traffic"
	case entities.CategoryFood:
		return "food stall"
	case entities.CategoryElevator:
		return "lift"
	default:
		return string(c)
	}
}

func unitOf(c entities.Category) string {
	if c == entities.CategoryParking {
		return "spaces"
	}
	return "seats"
}

func renderResources(c entities.Category, records []entities.ResourceRecord, m mode) string {
	score, _ := aggregator.ScoreFor(c)
	unit := unitOf(c)
	switch m {
	case modeBest:
		best, _ := aggregator.BestPick(records, score)
		return fmt.Sprintf("%s is your best bet: %d of %d %s free%s (%s).",
			best.Name, best.Available, best.TotalCapacity, unit, queueSuffix(c, best), tierBadge(c, best))
	case modeWorst:
		worst, _ := aggregator.WorstPick(records, score)
		return fmt.Sprintf("Avoid %s: only %d of %d %s free%s (%s).",
			worst.Name, worst.Available, worst.TotalCapacity, unit, queueSuffix(c, worst), tierBadge(c, worst))
	}
	top := aggregator.Top(records, score, summaryLimit)
	parts := make([]string, 0, len(top))
	for _, s := range top {
		parts = append(parts, fmt.Sprintf("%s %d/%d free%s", s.Record.Name, s.Record.Available, s.Record.TotalCapacity, queueSuffix(c, s.Record)))
	}
	return fmt.Sprintf("%s right now: %s.", titleOf(c), strings.Join(parts, ", "))
}

func tierBadge(c entities.Category, r entities.ResourceRecord) string {
	return aggregator.Badge(c, aggregator.Classify(c, r))
}

func queueSuffix(c entities.Category, r entities.ResourceRecord) string {
	if c != entities.CategoryFood {
		return ""
	}
	if r.QueueLength == 0 {
		return ", no queue"
	}
	return fmt.Sprintf(", %d in queue", r.QueueLength)
}

func titleOf(c entities.Category) string {
	switch c {
	case entities.CategoryParking:
		return "Parking"
	case entities.CategoryLibrary:
		return "Library"
	case entities.CategoryFood:
		return "Food stalls"
	}
	return string(c)
}

// renderCommute: best is the shortest known ETA, worst the heaviest traffic
// with ETA breaking ties. Readings keep source order in the summary.
func renderCommute(readings []entities.CommuteReading, m mode) string {
	switch m {
	case modeBest:
		best := readings[0]
		for _, r := range readings[1:] {
			if r.ETAMinutes < best.ETAMinutes {
				best = r
			}
		}
		return fmt.Sprintf("Fastest route is via %s: %s, %s.", best.Name, minutes(best.ETAMinutes), best.Level.Badge())
	case modeWorst:
		worst := readings[0]
		for _, r := range readings[1:] {
			ws, rs := worst.Level.Severity(), r.Level.Severity()
			if rs > ws || (rs == ws && r.ETAMinutes > worst.ETAMinutes) {
				worst = r
			}
		}
		return fmt.Sprintf("Avoid %s: %s, %s.", worst.Name, worst.Level.Badge(), minutes(worst.ETAMinutes))
	}
	n := min(summaryLimit, len(readings))
	parts := make([]string, 0, n)
	for _, r := range readings[:n] {
		parts = append(parts, fmt.Sprintf("%s %s (%s)", r.Name, minutes(r.ETAMinutes), r.Level.Badge()))
	}
	return fmt.Sprintf("Traffic right now: %s.", strings.Join(parts, ", "))
}

func minutes(m float64) string {
	return strconv.Itoa(int(m+0.5)) + " min"
}

var floorRe = regexp.MustCompile(`\bfloor\s+(-?\d+)`)

// floorOf reads "floor N" from the utterance. The default is the ground
// floor entrance, 1.
func floorOf(lower string) int {
	if m := floorRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}

// destinationIn finds the longest catalog label mentioned in the utterance,
// so that "C1001" wins over "C100".
func destinationIn(catalog []entities.Destination, lower string) (entities.Destination, bool) {
	var found entities.Destination
	ok := false
	for _, d := range catalog {
		label := strings.ToLower(strings.TrimSpace(d.Label))
		if label == "" || !containsWord(lower, label) {
			continue
		}
		if !ok || len(d.Label) > len(found.Label) {
			found, ok = d, true
		}
	}
	return found, ok
}

// containsWord reports whether word occurs in s not glued to other letters
// or digits.
func containsWord(s, word string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(word)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func usableLifts(elevators []entities.Elevator) []entities.Elevator {
	out := make([]entities.Elevator, 0, len(elevators))
	for _, e := range elevators {
		if e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

func (r *Router) renderElevators(ctx context.Context, elevators []entities.Elevator, scope, lower string) string {
	elevators = usableLifts(elevators)
	catalog, ok := r.fetch(ctx, entities.CategoryDestination, scope)
	if ok {
		if dst, found := destinationIn(catalog.Destinations, lower); found {
			ranked := lift.RankInBuilding(elevators, dst, floorOf(lower))
			if len(ranked) == 0 {
				return fmt.Sprintf("Sorry, no lifts in building %s are reporting right now.", dst.Building)
			}
			if modeOf(lower) == modeWorst {
				w := ranked[len(ranked)-1]
				return fmt.Sprintf("Avoid %s: %s.", w.DisplayName(), strings.Join(w.Explanation, ", "))
			}
			b := ranked[0]
			return fmt.Sprintf("Take %s to %s (floor %d): score %d, %s.",
				b.DisplayName(), dst.Label, dst.Floor, b.Score, strings.Join(b.Explanation, ", "))
		}
	}

	// no destination: shortest waits first, ties to the emptier car
	sorted := append([]entities.Elevator(nil), elevators...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EstimatedWait != sorted[j].EstimatedWait {
			return sorted[i].EstimatedWait < sorted[j].EstimatedWait
		}
		return sorted[i].Occupancy*max(sorted[j].Capacity, 1) < sorted[j].Occupancy*max(sorted[i].Capacity, 1)
	})
	switch modeOf(lower) {
	case modeBest:
		b := sorted[0]
		return fmt.Sprintf("%s in %s has the shortest wait: about %ds, %d/%d aboard.",
			b.DisplayName(), b.Building, b.EstimatedWait, b.Occupancy, b.Capacity)
	case modeWorst:
		w := sorted[len(sorted)-1]
		return fmt.Sprintf("Avoid %s in %s: about %ds wait, %d/%d aboard.",
			w.DisplayName(), w.Building, w.EstimatedWait, w.Occupancy, w.Capacity)
	}
	n := min(summaryLimit, len(sorted))
	parts := make([]string, 0, n)
	for _, e := range sorted[:n] {
		parts = append(parts, fmt.Sprintf("%s in %s at floor %d (%d/%d aboard)", e.DisplayName(), e.Building, e.CurrentFloor, e.Occupancy, e.Capacity))
	}
	return fmt.Sprintf("Lifts right now: %s. Tell me the room you are heading to for a recommendation.", strings.Join(parts, ", "))
}

// renderClassrooms: best is the largest free room, worst lists the rooms in
// use.
func renderClassrooms(rooms []entities.Classroom, m mode) string {
	if m == modeWorst {
		busy := make([]string, 0, len(rooms))
		for _, c := range rooms {
			if !c.IsAvailable {
				busy = append(busy, c.RoomNumber)
			}
		}
		switch len(busy) {
		case 0:
			return "Every classroom is free right now."
		case 1:
			return fmt.Sprintf("Avoid %s: it is in use right now.", busy[0])
		}
		busy = busy[:min(summaryLimit, len(busy))]
		return fmt.Sprintf("Avoid %s: they are in use right now.", strings.Join(busy, ", "))
	}
	free := entities.ClassroomFilter{AvailableOnly: true}.Filter(rooms)
	if len(free) == 0 {
		return "No classrooms are free right now."
	}
	if m == modeBest {
		best := free[0]
		for _, c := range free[1:] {
			if c.Capacity > best.Capacity {
				best = c
			}
		}
		return fmt.Sprintf("%s in %s is free, with %d seats.", best.RoomNumber, best.Building, best.Capacity)
	}
	n := min(summaryLimit, len(free))
	labels := make([]string, 0, n)
	for _, c := range free[:n] {
		labels = append(labels, c.RoomNumber)
	}
	noun := "classrooms are"
	if len(free) == 1 {
		noun = "classroom is"
	}
	return fmt.Sprintf("%d %s free right now: %s.", len(free), noun, strings.Join(labels, ", "))
}
