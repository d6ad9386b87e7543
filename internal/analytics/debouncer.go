package analytics

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultWindow is how long repeat events for the same key are ignored.
const DefaultWindow = 5 * time.Second

// Debouncer remembers when each key last passed and rejects repeats inside the window.
// The least recently used keys are evicted once maxKeys is reached.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	seen   *lru.Cache[string, time.Time]
	now    func() time.Time
}

// NewDebouncer returns a debouncer. A nil now uses time.Now.
func NewDebouncer(window time.Duration, maxKeys int, now func() time.Time) *Debouncer {
	if maxKeys < 1 {
		maxKeys = 1
	}
	if now == nil {
		now = time.Now
	}
	// lru.New only fails for a non-positive size.
	seen, _ := lru.New[string, time.Time](maxKeys)
	return &Debouncer{window: window, seen: seen, now: now}
}

// Allow reports whether key may proceed and, if so, records it as seen now.
// Rejected calls do not extend the window.
func (d *Debouncer) Allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen.Get(key); ok && now.Sub(last) < d.window {
		return false
	}
	d.seen.Add(key, now)
	return true
}

// Reset forgets every key.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Purge()
}

// Len is the number of keys currently remembered.
func (d *Debouncer) Len() int {
	return d.seen.Len()
}
