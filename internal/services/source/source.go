// Package source implements the snapshot sources pollers read from.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
)

var (
	// ErrUnknownCategory is returned for categories a source does not serve.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUpstreamStatus wraps non-2xx upstream answers.
	ErrUpstreamStatus = errors.New("upstream status")
)

var (
	_ poller.Source = (*Static)(nil)
	_ poller.Source = (*HTTP)(nil)
	_ poller.Source = (*Influx)(nil)
	_ poller.Source = (*Simulated)(nil)
	_ poller.Source = (*Fallback)(nil)
)

// Fallback serves Primary and, when it fails, the last good snapshot for
// the same key or else Secondary. Those come back Degraded together with a
// *poller.DegradedError so the outage still counts as a failed fetch.
type Fallback struct {
	Primary   poller.Source
	Secondary poller.Source
	Logger    *slog.Logger

	mu       sync.Mutex
	lastGood map[string]entities.Snapshot
}

func (f *Fallback) Fetch(ctx context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
	k := string(c) + "/" + scope
	s, err := f.Primary.Fetch(ctx, c, scope)
	if err == nil {
		f.mu.Lock()
		if f.lastGood == nil {
			f.lastGood = make(map[string]entities.Snapshot)
		}
		f.lastGood[k] = s.Clone()
		f.mu.Unlock()
		return s, nil
	}

	log := f.Logger
	if log == nil {
		log = slog.Default()
	}
	f.mu.Lock()
	cached, ok := f.lastGood[k]
	f.mu.Unlock()
	if ok {
		log.Warn("primary source failed, serving last good snapshot", "category", string(c), "scope", scope, "err", err)
		cached = cached.Clone()
		cached.Degraded = true
		return cached, &poller.DegradedError{Err: err}
	}
	if f.Secondary == nil {
		return entities.Snapshot{}, err
	}
	log.Warn("primary source failed, using secondary", "category", string(c), "scope", scope, "err", err)
	s2, err2 := f.Secondary.Fetch(ctx, c, scope)
	if err2 != nil {
		return entities.Snapshot{}, fmt.Errorf("primary: %v; secondary: %w", err, err2)
	}
	s2.Degraded = true
	return s2, &poller.DegradedError{Err: err}
}

// keepScope drops records of other scopes and stamps unscoped ones.
func keepScope(s *entities.Snapshot, scope string) {
	rs := s.Resources[:0]
	for _, r := range s.Resources {
		if r.Scope == "" {
			r.Scope = scope
		}
		if r.Scope == scope {
			rs = append(rs, r)
		}
	}
	s.Resources = rs

	es := s.Elevators[:0]
	for _, e := range s.Elevators {
		if e.Scope == "" {
			e.Scope = scope
		}
		if e.Scope == scope {
			es = append(es, e)
		}
	}
	s.Elevators = es

	cs := s.Commute[:0]
	for _, c := range s.Commute {
		if c.Scope == "" {
			c.Scope = scope
		}
		if c.Scope == scope {
			cs = append(cs, c)
		}
	}
	s.Commute = cs

	rooms := s.Classrooms[:0]
	for _, r := range s.Classrooms {
		if r.Scope == "" {
			r.Scope = scope
		}
		if r.Scope == scope {
			rooms = append(rooms, r)
		}
	}
	s.Classrooms = rooms
}

// stampCategory fills Category on resource records that lack it.
func stampCategory(s *entities.Snapshot, c entities.Category) {
	for i := range s.Resources {
		if s.Resources[i].Category == "" {
			s.Resources[i].Category = c
		}
	}
}
