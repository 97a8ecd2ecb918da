// Package gate bounds how many verification flows run at once per profile
// type. Each type owns an independent permit pool, so exhausting one program
// never blocks another.
package gate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"veriflow/internal/verification/models"
)

// DefaultCapacity is the permit count per profile type unless configured.
const DefaultCapacity = 3

// Gate is the per-profile-type admission control. Pools are created lazily
// under the mutex; Acquire and Release on a pool are lock-free after that.
type Gate struct {
	mu       sync.Mutex
	pools    map[models.ProfileType]*semaphore.Weighted
	capacity int64
}

// New builds a gate with the given permit capacity per profile type.
// Non-positive capacities fall back to the default.
func New(capacity int64) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{
		pools:    make(map[models.ProfileType]*semaphore.Weighted),
		capacity: capacity,
	}
}

// Acquire blocks until a permit for the profile type is free or ctx is done.
// Every successful Acquire must be paired with exactly one Release, on every
// exit path; callers defer the release immediately after acquiring.
func (g *Gate) Acquire(ctx context.Context, t models.ProfileType) error {
	return g.pool(t).Acquire(ctx, 1)
}

// TryAcquire grabs a permit without blocking, reporting success.
func (g *Gate) TryAcquire(t models.ProfileType) bool {
	return g.pool(t).TryAcquire(1)
}

// Release returns a permit to the profile type's pool.
func (g *Gate) Release(t models.ProfileType) {
	g.pool(t).Release(1)
}

func (g *Gate) pool(t models.ProfileType) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pools[t]
	if !ok {
		p = semaphore.NewWeighted(g.capacity)
		g.pools[t] = p
	}
	return p
}
