package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/quartzcap/dataroom/internal/pkg/response"
)

// tokenWindowCacheSize bounds limiter memory: untrusted callers can probe
// arbitrary tokens, so per-token state lives in an LRU rather than a plain
// map.
const tokenWindowCacheSize = 4096

type tokenWindow struct {
	mu   sync.Mutex
	hits []time.Time
}

type slidingLimiter struct {
	limit  int
	window time.Duration
	cache  *lru.Cache[string, *tokenWindow]
	now    func() time.Time
}

// RateLimitByToken applies a sliding-window limit keyed by the shared-link
// token in the route. Responses over the limit carry a Retry-After header.
func RateLimitByToken(limit int, window time.Duration) gin.HandlerFunc {
	cache, _ := newWindowCache()
	limiter := &slidingLimiter{
		limit:  limit,
		window: window,
		cache:  cache,
		now:    time.Now,
	}
	return limiter.handle
}

func (l *slidingLimiter) handle(c *gin.Context) {
	if l.limit <= 0 || l.window <= 0 {
		c.Next()
		return
	}
	token := c.Param("token")
	if token == "" {
		c.Next()
		return
	}
	retryAfter, ok := l.allow(token)
	if !ok {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
		response.Error(c, http.StatusTooManyRequests, "rate_limited", http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	c.Next()
}

// allow reports whether the token may proceed and, if not, how long until
// the oldest hit leaves the window.
func (l *slidingLimiter) allow(token string) (time.Duration, bool) {
	w, ok := l.cache.Get(token)
	if !ok {
		w = &tokenWindow{}
		// Racing a concurrent insert just means two windows briefly exist;
		// PeekOrAdd keeps the surviving one authoritative.
		if prev, found, _ := l.cache.PeekOrAdd(token, w); found {
			w = prev
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	kept := w.hits[:0]
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	w.hits = kept
	if len(w.hits) >= l.limit {
		return w.hits[0].Add(l.window).Sub(now), false
	}
	w.hits = append(w.hits, now)
	return 0, true
}

func newWindowCache() (*lru.Cache[string, *tokenWindow], error) {
	return lru.New[string, *tokenWindow](tokenWindowCacheSize)
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
