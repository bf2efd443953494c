// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/gotitgames/catalog/internal/core"
)

const (
	// PolicyGlobal covers every request by client address.
	PolicyGlobal = "global"
	// PolicyPersonal covers the authenticated /me routes per user.
	PolicyPersonal = "personal"
	// PolicySync covers admin-triggered provider syncs per job.
	PolicySync = "sync"

	keyPrefix = "gotit:ratelimit:"
)

// Policy is one named limit. Key returns the bucket within the policy.
type Policy struct {
	Name  string
	Limit redis_rate.Limit
	Key   func(*http.Request) string
}

type RateLimitConfig struct {
	Policies []Policy
	Clock    core.Clock
	Logger   *slog.Logger
}

// RateLimiter enforces named policies through redis_rate. While redis is
// unreachable each policy falls back to an in-process token bucket per key.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	policies map[string]Policy
	logger   *slog.Logger
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	policies := make(map[string]Policy, len(cfg.Policies))
	for _, p := range cfg.Policies {
		if p.Key == nil {
			p.Key = KeyByIP
		}
		if p.Limit.Period <= 0 {
			p.Limit.Period = time.Minute
		}
		policies[p.Name] = p
	}

	var limiter *redis_rate.Limiter
	if rdb != nil {
		limiter = redis_rate.NewLimiter(rdb)
	}

	return &RateLimiter{
		limiter:  limiter,
		fallback: newLocalLimiter(cfg.Clock),
		policies: policies,
		logger:   cfg.Logger,
	}
}

// Handler returns the middleware for the named policy. It panics on an
// unknown name since policies are fixed at startup. A policy with a
// non-positive rate passes every request.
func (rl *RateLimiter) Handler(name string) func(http.Handler) http.Handler {
	policy, ok := rl.policies[name]
	if !ok {
		panic(fmt.Sprintf("rate limit policy %q not configured", name))
	}
	if policy.Limit.Rate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyPrefix + policy.Name + ":" + policy.Key(r)
			res := rl.allow(r.Context(), key, policy.Limit)

			setRateLimitHeaders(w, res, policy.Limit)

			if res.Allowed == 0 {
				rl.logger.Info("rate limited",
					"policy", policy.Name,
					"key", key,
					"path", r.URL.Path,
				)
				core.TooManyRequests(w, res.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	if rl.limiter != nil {
		res, err := rl.limiter.Allow(ctx, key, limit)
		if err == nil {
			return res
		}
		rl.logger.Debug("redis rate limiter unavailable, using local bucket",
			"key", key,
			"error", err,
		)
	}
	return rl.fallback.allow(key, limit)
}

// KeyByIP uses the last X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return "ip:" + strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ip:" + xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// KeyByUser falls back to the client address for anonymous requests.
func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return KeyByIP(r)
}

// KeyBySyncJob buckets by the job URL parameter, shared by every admin.
func KeyBySyncJob(r *http.Request) string {
	job := chi.URLParam(r, "job")
	if job == "" {
		job = strings.Trim(r.URL.Path, "/")
	}
	return "job:" + job
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))
}

const (
	sweepInterval = 5 * time.Minute
	bucketTTL     = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per key. Idle buckets are swept on
// access rather than by a background goroutine.
type localLimiter struct {
	clock core.Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLocalLimiter(clock core.Clock) *localLimiter {
	return &localLimiter{
		clock:     clock,
		buckets:   make(map[string]*bucket),
		lastSweep: clock.Now(),
	}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	now := l.clock.Now()
	perSec := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) >= bucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(perSec), limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: limit.Period / time.Duration(limit.Rate),
	}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = res.ResetAfter
	}
	res.Remaining = max(int(b.limiter.TokensAt(now)), 0)

	return res
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Hour}
}
