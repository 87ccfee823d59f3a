package usecase

import (
	"sync"
	"time"

	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

const DefaultPreloadCooldown = 10 * time.Second

// PreloadGuard is the process-wide deduplication state of the preloader. At most
// one run holds the lock at a time. Each acquisition gets a ticket and only the
// current ticket can release, so a run whose lock the watchdog already released
// cannot free a newer run's lock.
type PreloadGuard struct {
	mu        sync.Mutex
	running   bool
	ticket    uint64
	completed map[types.UserID]time.Time
	cooldown  time.Duration
	now       func() time.Time
}

func NewPreloadGuard(cooldown time.Duration, now func() time.Time) *PreloadGuard {
	if now == nil {
		now = time.Now
	}
	return &PreloadGuard{
		completed: make(map[types.UserID]time.Time),
		cooldown:  cooldown,
		now:       now,
	}
}

// TryAcquire takes the lock. It returns false when another run holds it.
func (g *PreloadGuard) TryAcquire() (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return 0, false
	}
	g.ticket++
	g.running = true
	return g.ticket, true
}

// Release frees the lock if ticket still owns it. It reports whether it did.
func (g *PreloadGuard) Release(ticket uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running || g.ticket != ticket {
		return false
	}
	g.running = false
	return true
}

func (g *PreloadGuard) MarkCompleted(userID types.UserID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[userID] = g.now()
}

// RecentlyCompleted reports whether userID finished a run within the cool-down
func (g *PreloadGuard) RecentlyCompleted(userID types.UserID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.completed[userID]
	if !ok {
		return false
	}
	return g.now().Sub(at) < g.cooldown
}

func (g *PreloadGuard) IsPreloading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Reset forgets completed users and frees the lock. Outstanding tickets become stale.
func (g *PreloadGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.running = false
	g.ticket++
	g.completed = make(map[types.UserID]time.Time)
}
