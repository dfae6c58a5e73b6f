// Package cache holds small in-process caches for values that are cheap to
// recompute but read on every page load, such as unread alert counts.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store with expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Sweeper is implemented by caches that can drop expired entries in bulk.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps registered caches until stopped.
type Janitor struct {
	mu      sync.Mutex
	caches  []Sweeper
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (j *Janitor) Register(c Sweeper) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start launches the sweep loop. Calling it twice is a no-op.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	j.running = true
	go j.loop(interval)
}

func (j *Janitor) loop(interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.SweepAll(); n > 0 {
				slog.Debug("Cache sweep", "component", "cache", "removed", n)
			}
		case <-j.stop:
			return
		}
	}
}

// SweepAll sweeps every registered cache once and returns the number of
// entries removed.
func (j *Janitor) SweepAll() int {
	j.mu.Lock()
	caches := append([]Sweeper(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.Sweep()
	}
	return total
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	running := j.running
	j.running = false
	j.mu.Unlock()
	if !running {
		return
	}
	close(j.stop)
	<-j.done
}
