package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

type RegistryConfig struct {
	Source    Source
	Clock     Clock
	Logger    *slog.Logger
	Metrics   Metrics
	Intervals map[entities.Category]time.Duration

	// OnUpdate and OnError observe every poller the registry runs.
	OnUpdate func(entities.Snapshot)
	OnError  func(category entities.Category, scope string, err error)
}

type key struct {
	category entities.Category
	scope    string
}

type entry struct {
	poller *Poller
	refs   int

	mu   sync.Mutex
	subs map[*Lease]chan entities.Snapshot
}

// Registry runs at most one Poller per (category, scope) and shares it
// between every view holding a Lease on it.
type Registry struct {
	cfg RegistryConfig
	log *slog.Logger
	ctx context.Context

	mu      sync.Mutex
	entries map[key]*entry
}

// NewRegistry builds a registry whose pollers live at most as long as ctx.
func NewRegistry(ctx context.Context, cfg RegistryConfig) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{cfg: cfg, log: log, ctx: ctx, entries: make(map[key]*entry)}
}

// Lease keeps a poller alive and receives its updates.
type Lease struct {
	reg     *Registry
	k       key
	entry   *entry
	updates chan entities.Snapshot
	once    sync.Once
}

// Acquire starts the poller for (category, scope) if none is running and
// returns a lease on it.
func (r *Registry) Acquire(category entities.Category, scope string) *Lease {
	k := key{category, scope}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[k]
	if !ok {
		e = &entry{subs: make(map[*Lease]chan entities.Snapshot)}
		r.entries[k] = e
	}
	e.refs++
	l := &Lease{reg: r, k: k, entry: e, updates: make(chan entities.Snapshot, 1)}
	e.mu.Lock()
	e.subs[l] = l.updates
	e.mu.Unlock()

	// Subscribe before the first fetch so the lease sees it.
	if !ok {
		e.poller = Start(r.ctx, r.cfg.Source, Options{
			Category: category,
			Scope:    scope,
			Interval: r.interval(category),
			Clock:    r.cfg.Clock,
			Logger:   r.log,
			Metrics:  r.cfg.Metrics,
			OnUpdate: func(s entities.Snapshot) { r.fanOut(e, s) },
			OnError: func(err error) {
				if r.cfg.OnError != nil {
					r.cfg.OnError(category, scope, err)
				}
			},
		})
	}
	return l
}

func (r *Registry) interval(c entities.Category) time.Duration {
	if d, ok := r.cfg.Intervals[c]; ok && d > 0 {
		return d
	}
	return DefaultInterval(c)
}

// fanOut delivers s to every lease, replacing an unread older snapshot.
func (r *Registry) fanOut(e *entry, s entities.Snapshot) {
	if r.cfg.OnUpdate != nil {
		r.cfg.OnUpdate(s)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.Clone():
		default:
		}
	}
}

// Updates yields each new snapshot. Only the newest unread one is kept.
func (l *Lease) Updates() <-chan entities.Snapshot { return l.updates }

// Latest returns the shared poller's current snapshot.
func (l *Lease) Latest() (entities.Snapshot, bool) { return l.entry.poller.Latest() }

// Release drops the lease. The last release cancels the poller.
func (l *Lease) Release() {
	l.once.Do(func() { l.reg.release(l) })
}

func (r *Registry) release(l *Lease) {
	l.entry.mu.Lock()
	delete(l.entry.subs, l)
	l.entry.mu.Unlock()

	r.mu.Lock()
	l.entry.refs--
	last := l.entry.refs == 0
	if last && r.entries[l.k] == l.entry {
		delete(r.entries, l.k)
	}
	r.mu.Unlock()

	if last {
		l.entry.poller.Cancel()
		r.log.Debug("last lease released", "category", string(l.k.category), "scope", l.k.scope)
	}
}

// Snapshot returns the running poller's latest snapshot for (category,
// scope), or performs one direct fetch when no poller has data.
func (r *Registry) Snapshot(ctx context.Context, category entities.Category, scope string) (entities.Snapshot, error) {
	r.mu.Lock()
	e, ok := r.entries[key{category, scope}]
	r.mu.Unlock()
	if ok {
		if s, have := e.poller.Latest(); have {
			return s, nil
		}
	}
	s, err := r.cfg.Source.Fetch(ctx, category, scope)
	var degraded *DegradedError
	if errors.As(err, &degraded) {
		s.Degraded = true
	} else if err != nil {
		return entities.Snapshot{}, err
	}
	s.Category, s.Scope = category, scope
	if s.FetchedAt.IsZero() {
		s.FetchedAt = r.cfg.Clock.Now()
	}
	return s, nil
}

// Active counts running pollers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close cancels every poller regardless of outstanding leases.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[key]*entry)
	r.mu.Unlock()
	for _, e := range entries {
		e.poller.Cancel()
	}
}
