// Package poller keeps one category's snapshot for one scope fresh by
// re-fetching it on a fixed interval.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// Source fetches the full record set of a category for a scope.
type Source interface {
	Fetch(ctx context.Context, category entities.Category, scope string) (entities.Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, category entities.Category, scope string) (entities.Snapshot, error)

func (f SourceFunc) Fetch(ctx context.Context, category entities.Category, scope string) (entities.Snapshot, error) {
	return f(ctx, category, scope)
}

// DegradedError comes back from a Source together with a usable snapshot
// that is not live data (a cached copy or fixtures). The poller applies the
// snapshot, marks it Degraded and still reports the error.
type DegradedError struct {
	Err error
}

func (e *DegradedError) Error() string { return "degraded: " + e.Err.Error() }
func (e *DegradedError) Unwrap() error { return e.Err }

// Metrics receives poller observations. *observability.Collector implements it.
type Metrics interface {
	ObserveFetch(category, result string, d time.Duration)
	StaleDiscarded(category string)
	SetSnapshotSize(category, scope string, n int)
	PollerStarted()
	PollerStopped()
}

type Options struct {
	Category entities.Category
	Scope    string
	Interval time.Duration

	Clock   Clock
	Logger  *slog.Logger
	Metrics Metrics

	// OnUpdate is called, in sequence order, with every snapshot that
	// becomes the latest one.
	OnUpdate func(entities.Snapshot)
	// OnError is called for every failed fetch. The previous snapshot is kept.
	OnError func(error)
}

// Poller owns one timer loop and the latest snapshot it produced.
type Poller struct {
	opts Options
	src  Source
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	stopped atomic.Bool
	issued  atomic.Uint64
	fetches sync.WaitGroup

	// deliver serialises apply+OnUpdate so callbacks observe increasing seq.
	deliver sync.Mutex
	mu      sync.RWMutex
	latest  entities.Snapshot
	applied uint64
	have    bool
}

// Start issues the first fetch immediately and then one per Interval until
// Cancel is called or ctx is done.
func Start(ctx context.Context, src Source, opts Options) *Poller {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval(opts.Category)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("category", string(opts.Category), "scope", opts.Scope)

	pctx, cancel := context.WithCancel(ctx)
	p := &Poller{
		opts:   opts,
		src:    src,
		log:    log,
		ctx:    pctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if opts.Metrics != nil {
		opts.Metrics.PollerStarted()
	}

	ticker := opts.Clock.NewTicker(opts.Interval)
	p.issue()
	go p.loop(ticker)
	log.Debug("poller started", "interval", opts.Interval)
	return p
}

func (p *Poller) loop(ticker Ticker) {
	defer close(p.done)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C():
			if p.ctx.Err() != nil {
				return
			}
			p.issue()
		}
	}
}

// issue stamps a fetch with the next sequence number and runs it.
// Overlapping fetches are allowed; only the newest completion is applied.
func (p *Poller) issue() {
	seq := p.issued.Add(1)
	p.fetches.Add(1)
	go func() {
		defer p.fetches.Done()
		p.fetch(seq)
	}()
}

func (p *Poller) fetch(seq uint64) {
	cat := string(p.opts.Category)
	start := p.opts.Clock.Now()
	// In-flight fetches are not aborted by Cancel; their result is dropped.
	snap, err := p.src.Fetch(context.WithoutCancel(p.ctx), p.opts.Category, p.opts.Scope)
	elapsed := p.opts.Clock.Now().Sub(start)

	var degraded *DegradedError
	if err != nil && !errors.As(err, &degraded) {
		if p.opts.Metrics != nil {
			p.opts.Metrics.ObserveFetch(cat, "error", elapsed)
		}
		if p.stopped.Load() {
			return
		}
		p.log.Warn("fetch failed, keeping previous snapshot", "seq", seq, "err", err)
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
		return
	}
	result := "ok"
	if degraded != nil {
		result = "degraded"
		snap.Degraded = true
	}
	if p.opts.Metrics != nil {
		p.opts.Metrics.ObserveFetch(cat, result, elapsed)
	}

	p.deliver.Lock()
	defer p.deliver.Unlock()
	if p.stopped.Load() {
		return
	}

	snap.Category = p.opts.Category
	snap.Scope = p.opts.Scope
	snap.Seq = seq
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = p.opts.Clock.Now()
	}

	p.mu.Lock()
	if seq <= p.applied {
		p.mu.Unlock()
		p.log.Debug("discarding stale fetch", "seq", seq, "applied", p.applied)
		if p.opts.Metrics != nil {
			p.opts.Metrics.StaleDiscarded(cat)
		}
		return
	}
	p.latest, p.applied, p.have = snap, seq, true
	p.mu.Unlock()

	if p.opts.Metrics != nil {
		p.opts.Metrics.SetSnapshotSize(cat, p.opts.Scope, snap.Len())
	}
	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(snap.Clone())
	}
	if degraded != nil {
		p.log.Warn("serving degraded snapshot", "seq", seq, "err", err)
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
	}
}

// Latest returns a copy of the newest applied snapshot.
func (p *Poller) Latest() (entities.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.have {
		return entities.Snapshot{}, false
	}
	return p.latest.Clone(), true
}

// Category and Scope identify what the poller refreshes.
func (p *Poller) Category() entities.Category { return p.opts.Category }
func (p *Poller) Scope() string               { return p.opts.Scope }

// Cancel stops future fetches. When it returns the timer loop has exited.
// Safe to call more than once.
func (p *Poller) Cancel() {
	p.once.Do(func() {
		p.stopped.Store(true)
		p.cancel()
		<-p.done
		if p.opts.Metrics != nil {
			p.opts.Metrics.PollerStopped()
		}
		p.log.Debug("poller cancelled")
	})
}

// Done is closed once the timer loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

// waitFetches blocks until every issued fetch returned.
func (p *Poller) waitFetches() { p.fetches.Wait() }

// DefaultInterval is the refresh period used when none is configured.
func DefaultInterval(c entities.Category) time.Duration {
	switch c {
	case entities.CategoryElevator:
		return 10 * time.Second
	case entities.CategoryCommute, entities.CategoryClassroom:
		return 30 * time.Second
	case entities.CategoryDestination:
		return 60 * time.Second
	default:
		return 15 * time.Second
	}
}
