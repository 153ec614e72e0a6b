// Package replay prevents a payment proof nonce from being accepted
// more than once. Admission is an atomic check-and-set: under any
// interleaving of concurrent requests bearing the same nonce, exactly
// one caller observes acceptance.
//
// Three implementations are provided: an in-process map for single
// instances, Redis for fleets sharing one registry, and SQLite for
// single instances that must survive restarts.
package replay

import (
	"context"
	"sync"
	"time"
)

// Guard is the nonce admission registry.
type Guard interface {
	// Admit records the nonce if unseen. It returns true exactly once
	// per nonce within the retention window; every other call returns
	// false. A non-nil error means admission could not be decided and
	// the request must not proceed.
	Admit(ctx context.Context, nonce string) (bool, error)

	// Close releases the guard's resources.
	Close() error
}

// sweepInterval is how often expired entries are purged.
const sweepInterval = time.Minute

// MemoryGuard is an in-process Guard backed by a mutex-protected map.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewMemoryGuard creates a MemoryGuard retaining nonces for ttl. The
// ttl must cover the challenge TTL plus a safety margin so a nonce can
// never be reused within its original validity window.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	g := &MemoryGuard{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go g.sweep()
	return g
}

// Admit implements Guard.
func (g *MemoryGuard) Admit(_ context.Context, nonce string) (bool, error) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, seen := g.entries[nonce]; seen && now.Before(expiry) {
		return false, nil
	}
	g.entries[nonce] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case now := <-ticker.C:
			g.mu.Lock()
			for nonce, expiry := range g.entries {
				if now.After(expiry) {
					delete(g.entries, nonce)
				}
			}
			g.mu.Unlock()
		}
	}
}

// Close stops the background sweeper.
func (g *MemoryGuard) Close() error {
	g.once.Do(func() { close(g.done) })
	return nil
}
