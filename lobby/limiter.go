package lobby

import (
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig holds configuration for per-player action limiting
type LimiterConfig struct {
	ActionsPerSecond float64       // Rate limit: actions per second
	BurstSize        int           // Maximum burst size
	CleanupInterval  time.Duration // How often inactive limiters expire
}

// DefaultLimiterConfig is restrictive enough to stop rapid-fire
// duplicate submissions without getting in the way of normal play.
var DefaultLimiterConfig = LimiterConfig{
	ActionsPerSecond: 5.0,
	BurstSize:        10,
	CleanupInterval:  5 * time.Minute,
}

type playerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ActionLimiter manages per-player token buckets. Inactive entries
// are pruned lazily on use, so no background goroutine is needed.
type ActionLimiter struct {
	limiters  map[string]*playerLimiter
	mu        sync.Mutex
	config    LimiterConfig
	lastPrune time.Time
}

func NewActionLimiter(config LimiterConfig) *ActionLimiter {
	return &ActionLimiter{
		limiters:  make(map[string]*playerLimiter),
		config:    config,
		lastPrune: time.Now(),
	}
}

// Allow checks if an action from the given player should be allowed
func (al *ActionLimiter) Allow(player string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()

	now := time.Now()
	al.pruneLocked(now)

	entry, exists := al.limiters[player]
	if !exists {
		entry = &playerLimiter{
			limiter: rate.NewLimiter(rate.Limit(al.config.ActionsPerSecond), al.config.BurstSize),
		}
		al.limiters[player] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.Allow()
	if !allowed {
		log.Printf("[RATELIMIT] Action rate limit exceeded for player: %s", player)
	}
	return allowed
}

// pruneLocked removes limiters that haven't been used recently
func (al *ActionLimiter) pruneLocked(now time.Time) {
	if now.Sub(al.lastPrune) < al.config.CleanupInterval {
		return
	}
	al.lastPrune = now
	cutoff := now.Add(-al.config.CleanupInterval)
	removed := 0
	for player, entry := range al.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(al.limiters, player)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[RATELIMIT] Cleaned up %d inactive action limiters", removed)
	}
}

// LimiterCount returns the number of active limiters (for monitoring)
func (al *ActionLimiter) LimiterCount() int {
	al.mu.Lock()
	defer al.mu.Unlock()
	return len(al.limiters)
}
