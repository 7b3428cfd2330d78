package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type limiterTable[K comparable] struct {
	mu       sync.Mutex
	limiters map[K]*keyedLimiter
	rps      float64
	burst    int
}

func newLimiterTable[K comparable](ctx context.Context, rps float64, burst int) *limiterTable[K] {
	t := &limiterTable[K]{
		limiters: make(map[K]*keyedLimiter),
		rps:      rps,
		burst:    burst,
	}

	// Background cleanup of stale limiters to bound memory.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.mu.Lock()
				cutoff := time.Now().Add(-30 * time.Minute)
				for k, kl := range t.limiters {
					if kl.lastAccess.Before(cutoff) {
						delete(t.limiters, k)
					}
				}
				t.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return t
}

func (t *limiterTable[K]) limiterFor(key K) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	kl, ok := t.limiters[key]
	if !ok {
		kl = &keyedLimiter{
			limiter:    rate.NewLimiter(rate.Limit(t.rps), t.burst),
			lastAccess: time.Now(),
		}
		t.limiters[key] = kl
	} else {
		kl.lastAccess = time.Now()
	}
	return kl.limiter
}

// RateLimitByIP applies per-IP rate limiting for unauthenticated
// endpoints such as login and signup. Relies on chi's RealIP having
// normalized r.RemoteAddr.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	table := newLimiterTable[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !table.limiterFor(r.RemoteAddr).Allow() {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-tenant rate limiting on authenticated routes.
// Domain verification in particular hits the registrar API, which has
// its own quotas; this keeps one coach from exhausting them.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	table := newLimiterTable[uuid.UUID](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := TenantIDFromContext(r.Context())
			if !ok {
				// No tenant in context; skip rate limiting.
				next.ServeHTTP(w, r)
				return
			}

			if !table.limiterFor(tenantID).Allow() {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
