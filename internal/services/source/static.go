package source

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// ScopeFixture holds every category for one scope.
type ScopeFixture struct {
	Parking      []entities.ResourceRecord `yaml:"parking"`
	Library      []entities.ResourceRecord `yaml:"library"`
	Food         []entities.ResourceRecord `yaml:"food"`
	Elevators    []entities.Elevator       `yaml:"elevators"`
	Destinations []entities.Destination    `yaml:"destinations"`
	Commute      []entities.CommuteReading `yaml:"commute"`
	Classrooms   []entities.Classroom      `yaml:"classrooms"`
}

// Fixtures maps scope to its records.
type Fixtures map[string]ScopeFixture

// Static serves in-memory fixtures, typically loaded from YAML.
type Static struct {
	mu       sync.RWMutex
	fixtures Fixtures
	now      func() time.Time
}

func NewStatic(f Fixtures) *Static {
	if f == nil {
		f = Fixtures{}
	}
	return &Static{fixtures: f, now: time.Now}
}

// ParseFixtures decodes the YAML fixture format:
//
//	uni-a:
//	  parking:
//	    - {id: lot-a, name: North Lot, total_capacity: 100, available: 80}
func ParseFixtures(b []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

// LoadStatic reads a YAML fixture file.
func LoadStatic(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	f, err := ParseFixtures(b)
	if err != nil {
		return nil, err
	}
	return NewStatic(f), nil
}

// Replace swaps the served fixtures.
func (s *Static) Replace(f Fixtures) {
	s.mu.Lock()
	s.fixtures = f
	s.mu.Unlock()
}

// Scopes lists the scopes present in the fixtures.
func (s *Static) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.fixtures))
	for k := range s.fixtures {
		out = append(out, k)
	}
	return out
}

func (s *Static) Fetch(_ context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
	s.mu.RLock()
	fx := s.fixtures[scope]
	s.mu.RUnlock()

	snap := entities.Snapshot{Category: c, Scope: scope, FetchedAt: s.now()}
	switch c {
	case entities.CategoryParking:
		snap.Resources = fx.Parking
	case entities.CategoryLibrary:
		snap.Resources = fx.Library
	case entities.CategoryFood:
		snap.Resources = fx.Food
	case entities.CategoryElevator:
		snap.Elevators = fx.Elevators
	case entities.CategoryDestination:
		snap.Destinations = fx.Destinations
	case entities.CategoryCommute:
		snap.Commute = fx.Commute
	case entities.CategoryClassroom:
		snap.Classrooms = fx.Classrooms
	default:
		return entities.Snapshot{}, fmt.Errorf("static source: %w: %q", ErrUnknownCategory, c)
	}
	// Clone so callers never alias the fixture slices.
	snap = snap.Clone()
	stampCategory(&snap, c)
	keepScope(&snap, scope)
	return snap, nil
}
