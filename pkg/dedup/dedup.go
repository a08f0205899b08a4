// Package dedup drops repeated deliveries of the same message within a TTL.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper remembers keys until they expire. Safe for concurrent use.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	now  func() time.Time
}

// New builds a Deduper. Zero values fall back to 10 minutes and 10000 keys.
func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time), now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (d *Deduper) WithClock(now func() time.Time) *Deduper {
	d.now = now
	return d
}

// KeyOf derives a key from a session and raw payload.
func KeyOf(session string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(session))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// ShouldProcess reports whether key is new (or expired) and marks it seen.
// An empty key is always processed.
func (d *Deduper) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now)
	}
	return true
}

// Len returns the number of remembered keys, expired ones included.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// evict drops expired keys first, then the ones closest to expiry.
func (d *Deduper) evict(now time.Time) {
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}
	for len(d.seen) > d.max {
		var oldest string
		var oldestExp time.Time
		for k, exp := range d.seen {
			if oldest == "" || exp.Before(oldestExp) {
				oldest, oldestExp = k, exp
			}
		}
		delete(d.seen, oldest)
	}
}
