package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
)

type fakeReader struct {
	snaps map[entities.Category]entities.Snapshot
	err   error
	calls int
}

func (f *fakeReader) Snapshot(_ context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return entities.Snapshot{}, f.err
	}
	if scope != "uni-a" {
		return entities.Snapshot{Category: c, Scope: scope}, nil
	}
	return f.snaps[c], nil
}

type fakeResponder struct {
	text string
	err  error
	got  string
}

func (f *fakeResponder) Complete(_ context.Context, prompt string) (string, error) {
	f.got = prompt
	return f.text, f.err
}

type countIntents map[string]int

func (c countIntents) IntentHandled(i string) { c[i]++ }

func campus() *fakeReader {
	return &fakeReader{snaps: map[entities.Category]entities.Snapshot{
		entities.CategoryParking: {Category: entities.CategoryParking, Resources: []entities.ResourceRecord{
			{ID: "lot-a", Name: "North Lot", TotalCapacity: 100, Available: 80},
			{ID: "lot-b", Name: "South Lot", TotalCapacity: 50, Available: 10},
			{ID: "lot-c", Name: "Broken Lot", TotalCapacity: 0, Available: 5},
		}},
		entities.CategoryFood: {Category: entities.CategoryFood, Resources: []entities.ResourceRecord{
			{ID: "stall-x", Name: "Noodle Bar", TotalCapacity: 20, Available: 15},
			{ID: "stall-y", Name: "Grill", TotalCapacity: 20, Available: 4, QueueLength: 6},
		}},
		entities.CategoryLibrary: {Category: entities.CategoryLibrary, Resources: []entities.ResourceRecord{
			{ID: "z0", Name: "Ghost Zone", TotalCapacity: 0},
		}},
		entities.CategoryCommute: {Category: entities.CategoryCommute, Commute: []entities.CommuteReading{
			{POIID: "p1", Name: "Main Gate", ETAMinutes: 12, Level: entities.TrafficLow},
			{POIID: "p2", Name: "Ring Road", ETAMinutes: 25, Level: entities.TrafficHeavy},
		}},
		entities.CategoryElevator: {Category: entities.CategoryElevator, Elevators: []entities.Elevator{
			{ID: "E2", Building: "B1", CurrentFloor: 1, Occupancy: 9, Capacity: 10, QueueLength: 8, Direction: entities.DirectionIdle, EstimatedWait: 90},
			{ID: "E1", Building: "B1", CurrentFloor: 3, Occupancy: 2, Capacity: 10, Direction: entities.DirectionUp, EstimatedWait: 30},
			// unreadable row: must never be suggested
			{ID: "E9", Building: "B1", CurrentFloor: 1, Occupancy: -1, Capacity: 10, Direction: entities.DirectionIdle},
		}},
		entities.CategoryDestination: {Category: entities.CategoryDestination, Destinations: []entities.Destination{
			{Building: "B1", Floor: 10, Label: "C1001"},
			{Building: "B1", Floor: 1, Label: "C100"},
		}},
		entities.CategoryClassroom: {Category: entities.CategoryClassroom, Classrooms: []entities.Classroom{
			{Building: "B1", RoomNumber: "B1-201", Capacity: 40, IsAvailable: true},
			{Building: "B1", RoomNumber: "B1-202", Capacity: 80, IsAvailable: true},
			{Building: "B2", RoomNumber: "B2-101", Capacity: 120, IsAvailable: false},
		}},
	}}
}

var alice = &entities.User{ID: "alice", Scope: "uni-a"}

func newRouter(r SnapshotReader, resp Responder) *Router {
	return New(Config{Snapshots: r, Responder: resp, Logger: logging.Discard()})
}

func TestRespondRequiresSignIn(t *testing.T) {
	reader := campus()
	rt := newRouter(reader, nil)
	for _, u := range []string{"parking please", "is the library busy", "traffic", "which lift", "free classroom"} {
		got := rt.Respond(context.Background(), nil, u)
		if got.Text != MsgSignIn {
			t.Errorf("%q: text = %q", u, got.Text)
		}
	}
	if reader.calls != 0 {
		t.Fatalf("reader called %d times while signed out", reader.calls)
	}
	// no lookup needed
	if got := rt.Respond(context.Background(), nil, "open my course plan"); got.Text != MsgCoursePlan {
		t.Fatalf("course plan = %q", got.Text)
	}
}

func TestRespondNoData(t *testing.T) {
	rt := newRouter(campus(), nil)
	other := &entities.User{ID: "bob", Scope: "uni-b"}
	if got := rt.Respond(context.Background(), other, "parking"); got.Text != "Sorry, no parking data is available right now." {
		t.Fatalf("text = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), other, "what should I eat"); got.Text != "Sorry, no food stall data is available right now." {
		t.Fatalf("text = %q", got.Text)
	}
	// only zero-capacity records
	if got := rt.Respond(context.Background(), alice, "library seats"); got.Text != MsgNoData("library") {
		t.Fatalf("text = %q", got.Text)
	}

	failing := newRouter(&fakeReader{err: errors.New("upstream down")}, nil)
	if got := failing.Respond(context.Background(), alice, "traffic"); got.Text != MsgNoData("traffic") {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestRespondResources(t *testing.T) {
	rt := newRouter(campus(), nil)
	cases := []struct {
		in, want string
	}{
		{"recommend a parking lot", "North Lot is your best bet: 80 of 100 spaces free (Plenty Available)."},
		{"which parking lot to avoid", "Avoid South Lot: only 10 of 50 spaces free (Limited)."},
		{"parking", "Parking right now: North Lot 80/100 free, South Lot 10/50 free."},
		{"best place to eat", "Noodle Bar is your best bet: 15 of 20 seats free, no queue (Great Choice)."},
		{"worst food stall", "Avoid Grill: only 4 of 20 seats free, 6 in queue (Busy)."},
	}
	for _, tc := range cases {
		if got := rt.Respond(context.Background(), alice, tc.in); got.Text != tc.want {
			t.Errorf("%q:\n got %q\nwant %q", tc.in, got.Text, tc.want)
		}
	}
}

func TestRespondTraffic(t *testing.T) {
	rt := newRouter(campus(), nil)
	got := rt.Respond(context.Background(), alice, "how's the traffic")
	if got.Intent != IntentTraffic || got.Category != entities.CategoryCommute {
		t.Fatalf("reply = %+v", got)
	}
	if want := "Traffic right now: Main Gate 12 min (Light Traffic), Ring Road 25 min (Heavy Traffic)."; got.Text != want {
		t.Fatalf("summary = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), alice, "best route home"); got.Text != "Fastest route is via Main Gate: 12 min, Light Traffic." {
		t.Fatalf("best = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), alice, "traffic to avoid"); got.Text != "Avoid Ring Road: Heavy Traffic, 25 min." {
		t.Fatalf("worst = %q", got.Text)
	}
}

func TestRespondElevator(t *testing.T) {
	rt := newRouter(campus(), nil)

	got := rt.Respond(context.Background(), alice, "Which lift should I take to C1001 from floor 2?")
	if want := "Take E1 to C1001 (floor 10): score 95, 1 floors away, good space available, no queue."; got.Text != want {
		t.Fatalf("best:\n got %q\nwant %q", got.Text, want)
	}
	got = rt.Respond(context.Background(), alice, "lift to avoid for C1001 from floor 2")
	if want := "Avoid E2: 1 floors away, nearly full, 8 people waiting, idle and ready."; got.Text != want {
		t.Fatalf("worst:\n got %q\nwant %q", got.Text, want)
	}

	got = rt.Respond(context.Background(), alice, "where are the lifts")
	if !strings.HasPrefix(got.Text, "Lifts right now: E1 in B1 at floor 3 (2/10 aboard), E2 in B1") {
		t.Fatalf("summary = %q", got.Text)
	}
	if strings.Contains(got.Text, "E9") {
		t.Fatalf("unreadable lift listed: %q", got.Text)
	}
}

func TestRespondElevatorWithoutDestination(t *testing.T) {
	rt := newRouter(campus(), nil)
	if got := rt.Respond(context.Background(), alice, "recommend a lift"); got.Text != "E1 in B1 has the shortest wait: about 30s, 2/10 aboard." {
		t.Fatalf("best = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), alice, "which lift to avoid"); got.Text != "Avoid E2 in B1: about 90s wait, 9/10 aboard." {
		t.Fatalf("worst = %q", got.Text)
	}

	broken := &fakeReader{snaps: map[entities.Category]entities.Snapshot{
		entities.CategoryElevator: {Category: entities.CategoryElevator, Elevators: []entities.Elevator{
			{ID: "E9", Building: "B1", Occupancy: -1, Capacity: 10},
		}},
	}}
	if got := newRouter(broken, nil).Respond(context.Background(), alice, "recommend a lift"); got.Text != MsgNoData("lift") {
		t.Fatalf("only unreadable lifts = %q", got.Text)
	}
}

func TestDestinationInPrefersLongestLabel(t *testing.T) {
	catalog := campus().snaps[entities.CategoryDestination].Destinations
	d, ok := destinationIn(catalog, "take me to c1001")
	if !ok || d.Label != "C1001" {
		t.Fatalf("got %+v, %v", d, ok)
	}
	d, ok = destinationIn(catalog, "room c100 please")
	if !ok || d.Label != "C100" {
		t.Fatalf("got %+v, %v", d, ok)
	}
	if _, ok := destinationIn(catalog, "c10"); ok {
		t.Fatalf("partial label matched")
	}
}

func TestRespondClassroom(t *testing.T) {
	rt := newRouter(campus(), nil)
	if got := rt.Respond(context.Background(), alice, "any free classroom?"); got.Text != "2 classrooms are free right now: B1-201, B1-202." {
		t.Fatalf("summary = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), alice, "best empty room"); got.Text != "B1-202 in B1 is free, with 80 seats." {
		t.Fatalf("best = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), alice, "which room to avoid"); got.Text != "Avoid B2-101: it is in use right now." {
		t.Fatalf("worst = %q", got.Text)
	}
}

func TestRespondUnmatched(t *testing.T) {
	if got := newRouter(campus(), nil).Respond(context.Background(), alice, "tell me a joke"); got.Text != MsgHelp {
		t.Fatalf("nil responder = %q", got.Text)
	}

	failing := &fakeResponder{err: errors.New("timeout")}
	if got := newRouter(campus(), failing).Respond(context.Background(), alice, "tell me a joke"); got.Text != MsgHelp {
		t.Fatalf("failing responder = %q", got.Text)
	}

	blank := &fakeResponder{text: "  "}
	if got := newRouter(campus(), blank).Respond(context.Background(), alice, "tell me a joke"); got.Text != MsgHelp {
		t.Fatalf("blank responder = %q", got.Text)
	}

	ok := &fakeResponder{text: " Why did the student bring a ladder? "}
	got := newRouter(campus(), ok).Respond(context.Background(), nil, "tell me a joke")
	if got.Intent != IntentUnmatched || got.Text != "Why did the student bring a ladder?" {
		t.Fatalf("reply = %+v", got)
	}
	if ok.got != "tell me a joke" {
		t.Fatalf("prompt = %q", ok.got)
	}
}

func TestRespondGreetingAndMetrics(t *testing.T) {
	seen := countIntents{}
	rt := New(Config{Snapshots: campus(), Metrics: seen, Logger: logging.Discard()})
	if got := rt.Respond(context.Background(), nil, "hello"); got.Text != MsgGreeting {
		t.Fatalf("greeting = %q", got.Text)
	}
	if got := rt.Respond(context.Background(), nil, "thank you"); got.Text != MsgThanks {
		t.Fatalf("thanks = %q", got.Text)
	}
	rt.Respond(context.Background(), alice, "parking")
	if seen["greeting"] != 1 || seen["thanks"] != 1 || seen["parking"] != 1 {
		t.Fatalf("intents = %v", seen)
	}
}
