package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds the number of keys tracked before idle keys are swept
const DefaultMaxKeys = 10_000

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localRateLimiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	maxKeys int
	now     func() time.Time

	sync.Mutex
	entries map[string]*entry
}

// NewLocalRateLimiter returns an in memory limiter. Keys unused for longer
// than it takes to refill a full burst are forgotten once more than
// DefaultMaxKeys keys are tracked.
func NewLocalRateLimiter(limit rate.Limit, burst int) Limiter {
	return newLocalRateLimiter(limit, burst, DefaultMaxKeys, time.Now)
}

// NewWindowRateLimiter returns an in memory limiter allowing count operations
// per key within each window, refilled continuously.
func NewWindowRateLimiter(count int, window time.Duration) Limiter {
	if count <= 0 {
		count = 1
	}
	return NewLocalRateLimiter(rate.Every(window/time.Duration(count)), count)
}

func newLocalRateLimiter(limit rate.Limit, burst, maxKeys int, now func() time.Time) *localRateLimiter {
	idle := time.Minute
	if limit > 0 && limit != rate.Inf {
		idle = time.Duration(float64(burst) / float64(limit) * float64(time.Second))
	}

	return &localRateLimiter{
		limit:   limit,
		burst:   burst,
		idle:    idle,
		maxKeys: maxKeys,
		now:     now,
		entries: make(map[string]*entry),
	}
}

// Allow implements limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.Lock()
	defer l.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= l.maxKeys {
			l.sweep(now)
		}

		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1), nil
}

// sweep drops keys whose limiter has fully refilled, since a fresh limiter
// behaves identically
func (l *localRateLimiter) sweep(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.entries, key)
		}
	}
}
