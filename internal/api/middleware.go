package api

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// permanentRedirect is the Cache-Control sent with 301s.
const permanentRedirect = "max-age=31536000, public"

// legacyPaths maps retired URLs to their replacements.
var legacyPaths = map[string]string{
	"/news":     "/",
	"/articles": "/",
	"/blog":     "/",
	"/posts":    "/",
	"/se":       "/sweden",
	"/no":       "/norway",
	"/dk":       "/denmark",
	"/fi":       "/finland",
	"/is":       "/iceland",
}

// RedirectMiddleware strips trailing slashes and forwards retired paths,
// both with a permanent redirect.
func RedirectMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		target := ""
		if path != "/" && strings.HasSuffix(path, "/") {
			target = strings.TrimSuffix(path, "/")
			if q := c.Request.URL.RawQuery; q != "" {
				target += "?" + q
			}
		} else if to, ok := legacyPaths[path]; ok {
			target = to
		}

		if target == "" {
			c.Next()
			return
		}
		c.Header("Cache-Control", permanentRedirect)
		c.Redirect(http.StatusMovedPermanently, target)
		c.Abort()
	}
}

var (
	staticAsset = regexp.MustCompile(`\.(css|js|png|jpg|jpeg|gif|webp|svg|ico|woff|woff2)$`)
	countryPage = regexp.MustCompile(`^(/api/pages/country)?/(sweden|norway|denmark|finland|iceland)$`)
)

// CacheControlFor returns the Cache-Control policy for a successful
// response at path, or "" to leave the handler's choice alone.
func CacheControlFor(path string) string {
	switch {
	case staticAsset.MatchString(path):
		return "public, max-age=31536000, immutable"
	case strings.HasPrefix(path, "/article/"), strings.HasPrefix(path, "/api/pages/article/"):
		return "public, max-age=3600, s-maxage=7200"
	case countryPage.MatchString(path):
		return "public, max-age=1800, s-maxage=3600"
	}
	return ""
}

// SecurityHeadersMiddleware adds security and cache headers to 200
// responses only.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &okHeaderWriter{
			ResponseWriter: c.Writer,
			cacheControl:   CacheControlFor(c.Request.URL.Path),
		}
		c.Next()
	}
}

// okHeaderWriter decorates headers at the moment the status is committed,
// when it is finally known.
type okHeaderWriter struct {
	gin.ResponseWriter
	cacheControl string
	done         bool
}

func (w *okHeaderWriter) decorate() {
	if w.done || w.Written() {
		return
	}
	w.done = true
	if w.Status() != http.StatusOK {
		return
	}
	h := w.Header()
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
	h.Set("X-XSS-Protection", "1; mode=block")
	if w.cacheControl != "" {
		h.Set("Cache-Control", w.cacheControl)
	}
}

func (w *okHeaderWriter) WriteHeaderNow() {
	w.decorate()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *okHeaderWriter) Write(b []byte) (int, error) {
	w.decorate()
	return w.ResponseWriter.Write(b)
}

func (w *okHeaderWriter) WriteString(s string) (int, error) {
	w.decorate()
	return w.ResponseWriter.WriteString(s)
}

const (
	limiterIdle  = 10 * time.Minute
	sweepEvery   = 5 * time.Minute
	minRetryWait = 1
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles clients by IP address.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > sweepEvery {
		for k, l := range rl.limiters {
			if now.Sub(l.lastSeen) > limiterIdle {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	if l, ok := rl.limiters[ip]; ok {
		l.lastSeen = now
		return l.limiter
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: now}
	return l
}

// Middleware rejects over-limit clients with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			wait := max(int(time.Duration(float64(time.Second)/float64(rl.limit)).Seconds()), minRetryWait)
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
