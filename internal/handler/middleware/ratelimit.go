package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client IP.
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	lastGC   time.Time
}

func newLimiterStore(limit rate.Limit, burst int) *limiterStore {
	return &limiterStore{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		lastGC:   time.Now(),
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastGC) > limiterIdleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(s.visitors, k)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimit allows rps requests per second per client IP with the given burst.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	return rateLimit(rate.Limit(rps), burst)
}

// RateLimitPerMinute is the stricter limiter used on credential endpoints.
func RateLimitPerMinute(n int) gin.HandlerFunc {
	return rateLimit(rate.Every(time.Minute/time.Duration(max(n, 1))), max(n, 1))
}

func rateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	store := newLimiterStore(limit, burst)
	limitHeader := strconv.FormatFloat(float64(limit), 'f', -1, 64)

	return func(c *gin.Context) {
		limiter := store.get(c.ClientIP())
		c.Header("X-RateLimit-Limit", limitHeader)

		if !limiter.Allow() {
			retryAfter := 1
			if limit > 0 {
				retryAfter = int(max(1, 1/float64(limit)))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
