package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type attempt struct {
	lim  *rate.Limiter
	seen time.Time
}

// LoginLimiter throttles login attempts per username with a token bucket.
type LoginLimiter struct {
	mu    sync.Mutex
	seen  map[string]*attempt
	r     rate.Limit
	burst int
}

func NewLoginLimiter(rps float64, burst int) *LoginLimiter {
	ll := &LoginLimiter{
		seen:  make(map[string]*attempt),
		r:     rate.Limit(rps),
		burst: burst,
	}
	// cleanup stale entries every minute
	go func() {
		for {
			time.Sleep(time.Minute)
			ll.mu.Lock()
			for name, a := range ll.seen {
				if time.Since(a.seen) > 3*time.Minute {
					delete(ll.seen, name)
				}
			}
			ll.mu.Unlock()
		}
	}()
	return ll
}

func (ll *LoginLimiter) Allow(username string) bool {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	a, ok := ll.seen[username]
	if !ok {
		a = &attempt{lim: rate.NewLimiter(ll.r, ll.burst)}
		ll.seen[username] = a
	}
	a.seen = time.Now()
	return a.lim.Allow()
}
