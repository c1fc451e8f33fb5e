package api

import (
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RouteClass groups endpoints that share one per-IP budget
type RouteClass int

const (
	RouteRead  RouteClass = iota // State, stats, events and frames
	RouteInput                   // Key down/up
	RouteWorld                   // Enemy spawns and level restarts
	routeClasses
)

func (c RouteClass) String() string {
	switch c {
	case RouteInput:
		return "input"
	case RouteWorld:
		return "world"
	default:
		return "read"
	}
}

// Budget is a token bucket: PerSecond refill, Burst capacity
type Budget struct {
	PerSecond float64
	Burst     int
}

// BudgetFor returns a budget of rps with two seconds of burst
func BudgetFor(rps float64) Budget {
	return Budget{PerSecond: rps, Burst: max(1, int(math.Ceil(rps*2)))}
}

// RateLimitConfig gives every route class its own per-IP budget, so a
// client polling state cannot starve its own key events.
type RateLimitConfig struct {
	Read        Budget
	Input       Budget        // Held keys repeat while playing
	World       Budget        // Each spawn grows the simulation
	IdleTimeout time.Duration // Clients quiet this long lose their buckets
	TrustProxy  bool          // Take the client IP from X-Forwarded-For / X-Real-IP
}

// DefaultRateLimitConfig is used for every zero field of a RateLimitConfig
var DefaultRateLimitConfig = RateLimitConfig{
	Read:        Budget{PerSecond: 20, Burst: 40},
	Input:       Budget{PerSecond: 60, Burst: 120},
	World:       Budget{PerSecond: 2, Burst: 5},
	IdleTimeout: 10 * time.Minute,
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.Read.PerSecond <= 0 {
		c.Read = DefaultRateLimitConfig.Read
	}
	if c.Input.PerSecond <= 0 {
		c.Input = DefaultRateLimitConfig.Input
	}
	if c.World.PerSecond <= 0 {
		c.World = DefaultRateLimitConfig.World
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultRateLimitConfig.IdleTimeout
	}
	return c
}

func (c RateLimitConfig) budget(class RouteClass) Budget {
	switch class {
	case RouteInput:
		return c.Input
	case RouteWorld:
		return c.World
	default:
		return c.Read
	}
}

// clientBuckets holds one limiter per route class for a single IP
type clientBuckets struct {
	buckets  [routeClasses]*rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter applies per-IP, per-route-class budgets to HTTP requests
type IPRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBuckets
	config   RateLimitConfig
	rejected [routeClasses]atomic.Uint64
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a limiter and starts its idle-client sweep
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		clients:  make(map[string]*clientBuckets),
		config:   cfg.withDefaults(),
		stopChan: make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweep goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow spends one token of ip's budget for class
func (rl *IPRateLimiter) Allow(ip string, class RouteClass) bool {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &clientBuckets{}
		for i := range c.buckets {
			b := rl.config.budget(RouteClass(i))
			c.buckets[i] = rate.NewLimiter(rate.Limit(b.PerSecond), b.Burst)
		}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	limiter := c.buckets[class]
	rl.mu.Unlock()

	if limiter.Allow() {
		return true
	}
	rl.rejected[class].Add(1)
	return false
}

// Limit returns middleware charging every request to class
func (rl *IPRateLimiter) Limit(class RouteClass) func(http.Handler) http.Handler {
	reason := "rate_limit_" + class.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(ClientIP(r, rl.config.TrustProxy), class) {
				RecordConnectionRejected(reason)
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Rejected returns how many requests of class were refused
func (rl *IPRateLimiter) Rejected(class RouteClass) uint64 {
	return rl.rejected[class].Load()
}

// Clients returns how many IPs currently hold buckets
func (rl *IPRateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case now := <-ticker.C:
			rl.sweep(now.Add(-rl.config.IdleTimeout))
		}
	}
}

// sweep drops clients not seen since cutoff
func (rl *IPRateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// ClientIP returns the caller's IP. Proxy headers are only honored with
// trustProxy, since any client can set them.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ConnLimiter caps concurrent websocket connections per IP
type ConnLimiter struct {
	mu       sync.Mutex
	open     map[string]int
	maxPerIP int
}

// NewConnLimiter creates a limiter allowing maxPerIP connections per IP
func NewConnLimiter(maxPerIP int) *ConnLimiter {
	return &ConnLimiter{open: make(map[string]int), maxPerIP: maxPerIP}
}

// Acquire reserves a connection slot for ip
func (c *ConnLimiter) Acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open[ip] >= c.maxPerIP {
		return false
	}
	c.open[ip]++
	return true
}

// Release frees a slot taken by Acquire
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open[ip] <= 1 {
		delete(c.open, ip)
		return
	}
	c.open[ip]--
}

// Open returns the connections ip currently holds
func (c *ConnLimiter) Open(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[ip]
}

// IsAllowedOrigin accepts browser pages served from this machine
func IsAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
