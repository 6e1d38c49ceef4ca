package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"motoparts-backend/pkg/logger"
	"motoparts-backend/pkg/utils"
)

const generalBudget = "general"

// budget is a token-bucket setting shared by every request of one kind.
type budget struct {
	name   string
	method string
	prefix string
	limit  rate.Limit
	burst  int
}

func (b budget) matches(r *http.Request) bool {
	return (b.method == "" || r.Method == b.method) && strings.HasPrefix(r.URL.Path, b.prefix)
}

func (b budget) retryAfter() string {
	if b.limit <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(b.limit))))
}

type bucketKey struct {
	ip     string
	budget string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles each client IP. Requests matching a narrower budget, such as
// checkout, draw from their own bucket.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[bucketKey]*bucket
	general  budget
	narrower []budget
	ttl      time.Duration
	now      func() time.Time

	stop context.CancelFunc
	done chan struct{}
}

// NewRateLimiter allows limit requests per second per client IP with the given burst.
// Buckets idle for clientTTL are dropped every cleanupPeriod until ctx ends or
// Shutdown is called.
func NewRateLimiter(ctx context.Context, limit rate.Limit, burst int, cleanupPeriod, clientTTL time.Duration) *RateLimiter {
	ctx, stop := context.WithCancel(ctx)
	rl := &RateLimiter{
		buckets: make(map[bucketKey]*bucket),
		general: budget{name: generalBudget, limit: limit, burst: burst},
		ttl:     clientTTL,
		now:     time.Now,
		stop:    stop,
		done:    make(chan struct{}),
	}
	go rl.evictLoop(ctx, cleanupPeriod)
	return rl
}

// Limit registers a separate budget for requests with the given method (empty for
// any) whose path starts with prefix. The first matching budget wins.
func (rl *RateLimiter) Limit(name, method, prefix string, limit rate.Limit, burst int) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.narrower = append(rl.narrower, budget{name: name, method: method, prefix: prefix, limit: limit, burst: burst})
	return rl
}

func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			b, lim := rl.take(ip, r)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(b.burst))
			if !lim.Allow() {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", b.retryAfter())
				logger.WithContext(r.Context()).Warn().
					Str("ip", ip).
					Str("budget", b.name).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")
				utils.WriteError(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.Tokens())))

			next.ServeHTTP(w, r)
		})
	}
}

// take returns the budget the request falls under and the client's bucket for it.
func (rl *RateLimiter) take(ip string, r *http.Request) (budget, *rate.Limiter) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.general
	for _, n := range rl.narrower {
		if n.matches(r) {
			b = n
			break
		}
	}

	key := bucketKey{ip: ip, budget: b.name}
	bk, ok := rl.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		rl.buckets[key] = bk
	}
	bk.lastSeen = rl.now()
	return b, bk.limiter
}

func (rl *RateLimiter) evictLoop(ctx context.Context, every time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.ttl)
	evicted := 0
	for key, bk := range rl.buckets {
		if bk.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			evicted++
		}
	}
	return evicted
}

// Shutdown stops eviction and waits for the loop to exit.
func (rl *RateLimiter) Shutdown() {
	rl.stop()
	<-rl.done
}
