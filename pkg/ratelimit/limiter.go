// Package ratelimit implements fixed-window admission control keyed by
// client identity and HTTP method. Windows roll over lazily on the next
// request; a background sweep purges expired entries.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"confide/pkg/metrics"
)

const rejectMessage = "Too many requests, please try again later"

// Rule is a (limit, window) pair for one method class or route override.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Config holds the method-class rules. Post covers all mutating verbs
// (POST/PUT/PATCH/DELETE); Get covers GET and anything else.
type Config struct {
	Post Rule
	Get  Rule
}

func DefaultConfig() Config {
	return Config{
		Post: Rule{Limit: 5, Window: time.Minute},
		Get:  Rule{Limit: 50, Window: time.Minute},
	}
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter owns the window counters. All mutation happens under mu, so a
// request observes a single atomic count/resetAt transition per call.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	cfg     Config

	now           func() time.Time
	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

type Option func(*Limiter)

// WithClock replaces the time source, for window-rollover tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func WithSweepInterval(interval time.Duration) Option {
	return func(l *Limiter) {
		if interval > 0 {
			l.sweepInterval = interval
		}
	}
}

func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		entries:       make(map[string]*entry),
		cfg:           cfg,
		now:           time.Now,
		sweepInterval: time.Minute,
		stop:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	go l.sweepLoop()

	return l
}

// Stop halts the background sweep. Entries already admitted keep their
// windows; only the periodic purge stops.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow records one request against key under rule. When the request is
// rejected, retryAfter carries the whole seconds until the window resets.
func (l *Limiter) Allow(key string, rule Rule) (admitted bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(rule.Window)}
		return true, 0
	}

	if e.count >= rule.Limit {
		return false, int(math.Ceil(e.resetAt.Sub(now).Seconds()))
	}

	e.count++
	return true, 0
}

// Middleware applies the method-class rules, keyed by client and verb.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		key := clientID(c) + ":" + method
		l.handle(c, key, l.ruleForMethod(method))
	}
}

// Override applies a custom rule to the routes it is attached to,
// independent of the method-class table. Entries are keyed by route path
// so the override never shares a window with the defaults.
func (l *Limiter) Override(limit int, window time.Duration) gin.HandlerFunc {
	rule := Rule{Limit: limit, Window: window}
	return func(c *gin.Context) {
		key := clientID(c) + ":" + c.FullPath()
		l.handle(c, key, rule)
	}
}

func (l *Limiter) handle(c *gin.Context, key string, rule Rule) {
	admitted, retryAfter := l.Allow(key, rule)
	if !admitted {
		metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"statusCode": http.StatusTooManyRequests,
			"message":    rejectMessage,
			"retryAfter": retryAfter,
		})
		c.Abort()
		return
	}

	metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
	c.Next()
}

func (l *Limiter) ruleForMethod(method string) Rule {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return l.cfg.Post
	default:
		return l.cfg.Get
	}
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of live window entries, for stats and tests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func clientID(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	if ip := c.RemoteIP(); ip != "" {
		return ip
	}
	return "unknown"
}
