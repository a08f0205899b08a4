package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
)

func loadTestStatic(t *testing.T) *Static {
	t.Helper()
	s, err := LoadStatic("testdata/fixtures.yaml")
	if err != nil {
		t.Fatalf("LoadStatic: %v", err)
	}
	return s
}

func TestStaticFiltersByScope(t *testing.T) {
	s := loadTestStatic(t)
	ctx := context.Background()

	a, err := s.Fetch(ctx, entities.CategoryParking, "uni-a")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(a.Resources) != 2 {
		t.Fatalf("uni-a parking = %d records", len(a.Resources))
	}
	for _, r := range a.Resources {
		if r.Scope != "uni-a" || r.Category != entities.CategoryParking {
			t.Fatalf("record not stamped: %+v", r)
		}
	}
	b, _ := s.Fetch(ctx, entities.CategoryParking, "uni-b")
	if len(b.Resources) != 1 || b.Resources[0].ID != "lot-z" {
		t.Fatalf("uni-b parking = %+v", b.Resources)
	}
	none, _ := s.Fetch(ctx, entities.CategoryParking, "uni-c")
	if !none.Empty() {
		t.Fatalf("unknown scope returned data")
	}
}

func TestStaticCategories(t *testing.T) {
	s := loadTestStatic(t)
	ctx := context.Background()

	el, _ := s.Fetch(ctx, entities.CategoryElevator, "uni-a")
	if len(el.Elevators) != 2 || el.Elevators[0].Direction != entities.DirectionUp {
		t.Fatalf("elevators = %+v", el.Elevators)
	}
	cm, _ := s.Fetch(ctx, entities.CategoryCommute, "uni-a")
	if len(cm.Commute) != 1 || cm.Commute[0].Level != entities.TrafficHeavy {
		t.Fatalf("commute = %+v", cm.Commute)
	}
	ds, _ := s.Fetch(ctx, entities.CategoryDestination, "uni-a")
	if len(ds.Destinations) != 1 || ds.Destinations[0].Floor != 10 {
		t.Fatalf("destinations = %+v", ds.Destinations)
	}
	if _, err := s.Fetch(ctx, entities.Category("weather"), "uni-a"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	s := loadTestStatic(t)
	a, _ := s.Fetch(context.Background(), entities.CategoryParking, "uni-a")
	a.Resources[0].Available = -1
	b, _ := s.Fetch(context.Background(), entities.CategoryParking, "uni-a")
	if b.Resources[0].Available != 80 {
		t.Fatalf("fixture mutated through snapshot")
	}
}

func TestHTTPDecodesAliasedColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parking_lots" || r.URL.Query().Get("university_id") != "uni-a" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"lot-a","university_id":"uni-a","zone":"North","total_spaces":"100","available_spaces":80},
			{"id":"lot-x","university_id":"uni-b","zone":"Elsewhere","total_spaces":5,"available_spaces":5}
		]`))
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{BaseURL: srv.URL + "/", APIKey: "k", Logger: logging.Discard()})
	snap, err := h.Fetch(context.Background(), entities.CategoryParking, "uni-a")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(snap.Resources) != 1 {
		t.Fatalf("records = %+v", snap.Resources)
	}
	r := snap.Resources[0]
	if r.Name != "North" || r.TotalCapacity != 100 || r.Available != 80 || r.Category != entities.CategoryParking {
		t.Fatalf("decoded record = %+v", r)
	}
}

func TestHTTPWrappedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"e1","lift_id":"L1","building":"B1","current_floor":"4","direction":"DOWN","current_occupancy":3,"capacity":10}]}`))
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{BaseURL: srv.URL, Logger: logging.Discard()})
	snap, err := h.Fetch(context.Background(), entities.CategoryElevator, "uni-a")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(snap.Elevators) != 1 || snap.Elevators[0].Label != "L1" || snap.Elevators[0].CurrentFloor != 4 ||
		snap.Elevators[0].Direction != entities.DirectionDown || !snap.Elevators[0].Valid() {
		t.Fatalf("elevators = %+v", snap.Elevators)
	}
}

func TestHTTPStatusErrorTripsBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{BaseURL: srv.URL, BreakerFailures: 2, BreakerOpenFor: time.Hour, Logger: logging.Discard()})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := h.Fetch(ctx, entities.CategoryFood, "uni-a"); !errors.Is(err, ErrUpstreamStatus) {
			t.Fatalf("err = %v, want ErrUpstreamStatus", err)
		}
	}
	if _, err := h.Fetch(ctx, entities.CategoryFood, "uni-a"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("upstream hit %d times, want 2", hits.Load())
	}
	if h.Breaker(entities.CategoryFood).State() != gobreaker.StateOpen {
		t.Fatalf("food breaker not open")
	}
	if _, err := h.Fetch(ctx, entities.Category("weather"), "uni-a"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v", err)
	}
}

const fluxCSV = `#datatype,string,long,string,string,string,double,double,double
#group,false,false,true,true,false,false,false,false
#default,_result,,,,,,,
,result,table,id,scope,name,available,queue_length,total_capacity
,,0,stall-x,uni-a,Noodle Bar,15,0,20
,,0,stall-y,uni-a,Grill,20,6,20

`

func TestInfluxLatest(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/query" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(fluxCSV))
	}))
	defer srv.Close()

	client := influxdb2.NewClient(srv.URL, "token")
	defer client.Close()
	src := NewInflux(client, InfluxConfig{Org: "campus", Bucket: "live", Logger: logging.Discard()})

	snap, err := src.Fetch(context.Background(), entities.CategoryFood, "uni-a")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(snap.Resources) != 2 {
		t.Fatalf("records = %+v", snap.Resources)
	}
	y := snap.Resources[1]
	if y.ID != "stall-y" || y.QueueLength != 6 || y.TotalCapacity != 20 || y.Category != entities.CategoryFood {
		t.Fatalf("decoded = %+v", y)
	}
	if !strings.Contains(gotQuery, `campus_food`) || !strings.Contains(gotQuery, `uni-a`) {
		t.Fatalf("query did not target measurement/scope: %s", gotQuery)
	}
}

func TestBuildLatestFlux(t *testing.T) {
	q := buildLatestFlux("live", "campus_parking", "uni-a", 30*time.Second)
	for _, want := range []string{`from(bucket: "live")`, `range(start: -1m)`, `r._measurement == "campus_parking"`, `r.scope == "uni-a"`, `last()`, `pivot(`} {
		if !strings.Contains(q, want) {
			t.Errorf("flux missing %q:\n%s", want, q)
		}
	}
}

func TestSimulatedStaysWithinBounds(t *testing.T) {
	sim := NewSimulated(loadTestStatic(t), 42)
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	sim.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		now = now.Add(5 * time.Minute)
		snap, err := sim.Fetch(context.Background(), entities.CategoryFood, "uni-a")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		for _, r := range snap.Resources {
			if !r.Valid() {
				t.Fatalf("simulated record invalid: %+v", r)
			}
		}
		el, _ := sim.Fetch(context.Background(), entities.CategoryElevator, "uni-a")
		for _, e := range el.Elevators {
			if e.CurrentFloor < 1 || e.CurrentFloor > sim.MaxFloor || e.Occupancy < 0 || e.Occupancy > e.Capacity {
				t.Fatalf("simulated elevator out of bounds: %+v", e)
			}
		}
	}
}

type failingSource struct{ calls int }

func (f *failingSource) Fetch(context.Context, entities.Category, string) (entities.Snapshot, error) {
	f.calls++
	if f.calls > 1 {
		return entities.Snapshot{}, errors.New("down")
	}
	return entities.Snapshot{Resources: []entities.ResourceRecord{{ID: "cached", TotalCapacity: 1}}}, nil
}

func TestFallbackServesLastGoodThenSecondary(t *testing.T) {
	primary := &failingSource{}
	f := &Fallback{Primary: primary, Secondary: loadTestStatic(t), Logger: logging.Discard()}
	ctx := context.Background()

	if s, err := f.Fetch(ctx, entities.CategoryParking, "uni-a"); err != nil || s.Resources[0].ID != "cached" || s.Degraded {
		t.Fatalf("first fetch = %+v, %v", s, err)
	}

	// the outage is still an error, carrying a usable snapshot
	var degraded *poller.DegradedError
	s, err := f.Fetch(ctx, entities.CategoryParking, "uni-a")
	if !errors.As(err, &degraded) || s.Resources[0].ID != "cached" || !s.Degraded {
		t.Fatalf("last good not served: %+v, %v", s, err)
	}
	s, err = f.Fetch(ctx, entities.CategoryParking, "uni-b")
	if !errors.As(err, &degraded) || s.Resources[0].ID != "lot-z" || !s.Degraded {
		t.Fatalf("secondary not used: %+v, %v", s, err)
	}
	if !strings.Contains(err.Error(), "down") {
		t.Fatalf("primary error lost: %v", err)
	}

	var _ poller.Source = f
}

func TestFallbackWithoutSecondaryFails(t *testing.T) {
	f := &Fallback{Primary: &failingSource{calls: 1}, Logger: logging.Discard()}
	_, err := f.Fetch(context.Background(), entities.CategoryParking, "uni-a")
	var degraded *poller.DegradedError
	if err == nil || errors.As(err, &degraded) {
		t.Fatalf("err = %v, want a plain failure", err)
	}
}
