// Package api is the HTTP surface of the site: page-data documents, the
// legacy JSON endpoints, SEO artifacts, reader subscriptions and the
// editor-only admin actions.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	infragin "github.com/nordicstoday/nordics-today/infrastructure/gin"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/infrastructure/metrics"
	"github.com/nordicstoday/nordics-today/internal/contribute"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/pages"
	"github.com/nordicstoday/nordics-today/internal/push"
	"github.com/nordicstoday/nordics-today/internal/seo"
)

const (
	serviceName        = "nordics-today"
	defaultReadTimeout = 15 * time.Second
	// Admin sends fan out to the whole list and can run long.
	defaultWriteTimeout = 5 * time.Minute
	defaultIdleTimeout  = 90 * time.Second
	healthCheckTimeout  = 2 * time.Second
)

// ArticleReader is the slice of the article service the JSON API reads.
type ArticleReader interface {
	FetchArticles(ctx context.Context, f domain.ArticleFilters, page, limit int) (domain.ArticleListResponse, error)
	ListArticles(ctx context.Context, f domain.ArticleFilters, limit, offset int) ([]domain.ProcessedArticle, error)
}

// Subscriptions handles newsletter signups.
type Subscriptions interface {
	Subscribe(ctx context.Context, email, name, source string) (string, error)
	Unsubscribe(ctx context.Context, email string) (string, error)
}

// Mailer sends one message to every active subscriber.
type Mailer interface {
	Send(ctx context.Context, m newsletter.Message) (newsletter.Result, error)
}

// DigestRunner composes and sends the weekly digest.
type DigestRunner interface {
	Run(ctx context.Context) (newsletter.DigestResult, error)
}

// Push manages browser subscriptions and broadcasts.
type Push interface {
	Subscribe(ctx context.Context, sub domain.PushSubscription, userAgent string) error
	Unsubscribe(ctx context.Context, endpoint string) error
	Broadcast(ctx context.Context, n push.Notification) (push.Result, error)
}

// Submissions files opinion pieces.
type Submissions interface {
	Submit(ctx context.Context, f contribute.Form) (string, error)
}

// Purger empties the read-through cache.
type Purger interface {
	Purge() int
}

// Deps are the services behind the routes. Nil optional services leave
// their routes answering 503.
type Deps struct {
	Articles   ArticleReader
	Pages      *pages.Loader
	SEO        *seo.Builder
	Newsletter Subscriptions
	Mailer     Mailer
	Digest     DigestRunner
	Push       Push
	Contribute Submissions
	Cache      Purger

	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTP

	// JWTSecret guards /api/admin. Empty leaves it open.
	JWTSecret string
	// WriteLimiter throttles the public write endpoints. Nil disables it.
	WriteLimiter *RateLimiter
}

// Router holds the API dependencies.
type Router struct {
	deps Deps
	log  logger.Logger
}

func NewRouter(deps Deps, log logger.Logger) *Router {
	return &Router{deps: deps, log: log}
}

// requestLog is the logger the request-id middleware scoped to this request,
// or the router's own when the chain did not set one.
func (r *Router) requestLog(c *gin.Context) logger.Logger {
	if l, ok := logger.Scoped(c.Request.Context()); ok {
		return l
	}
	return r.log
}

// ServerOptions carries listener settings for NewServer.
type ServerOptions struct {
	Port        int
	Debug       bool
	Version     string
	CORSOrigins []string
	DBPing      func(context.Context) error
	RedisPing   func(context.Context) error
}

// NewServer builds the HTTP server on the shared gin builder.
func (r *Router) NewServer(opts ServerOptions) *infragin.Server {
	b := infragin.NewServerBuilder(serviceName, opts.Port).
		WithLogger(r.log).
		WithDebug(opts.Debug).
		WithVersion(opts.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithCORS(infragin.CORSConfig{
			Enabled:        true,
			AllowedOrigins: opts.CORSOrigins,
		}).
		WithMiddleware(r.Middleware()...).
		WithRoutes(r.RegisterRoutes)

	if opts.DBPing != nil {
		b = b.WithDatabaseHealthCheck(withTimeout(opts.DBPing))
	}
	if opts.RedisPing != nil {
		b = b.WithRedisHealthCheck(withTimeout(opts.RedisPing))
	}
	return b.Build()
}

func withTimeout(ping func(context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()
		return ping(ctx)
	}
}

// Middleware is the site chain that runs after the shared server chain.
func (r *Router) Middleware() []gin.HandlerFunc {
	mw := []gin.HandlerFunc{RedirectMiddleware()}
	if r.deps.HTTP != nil {
		mw = append(mw, r.deps.HTTP.Middleware())
	}
	return append(mw, SecurityHeadersMiddleware())
}

// RegisterRoutes mounts every route on e. Health routes come from the
// server builder.
func (r *Router) RegisterRoutes(e *gin.Engine) {
	// SEO artifacts
	e.GET("/sitemap.xml", r.sitemapIndex)
	e.GET("/sitemap-pages.xml", r.pagesSitemap)
	e.GET("/sitemap-articles.xml", r.articlesSitemap)
	e.GET("/news-sitemap.xml", r.newsSitemap)
	e.GET("/rss.xml", r.rssFeed)
	e.GET("/robots.txt", r.robots)

	if r.deps.Gatherer != nil {
		e.GET("/metrics", metrics.Handler(r.deps.Gatherer))
	}

	api := e.Group("/api")
	api.GET("/articles", r.legacyArticles)
	api.GET("/search", r.searchGet)
	api.POST("/search", r.searchPost)

	p := api.Group("/pages")
	p.GET("/home", r.homePage)
	p.GET("/country/:country", r.countryPage)
	p.GET("/country/:country/:category", r.countryCategoryPage)
	p.GET("/category/:category", r.categoryPage)
	p.GET("/city/:city", r.cityPage)
	p.GET("/article/:slug", r.articlePage)
	p.GET("/search", r.searchPage)
	p.GET("/author/:slug", r.authorPage)

	writes := api.Group("")
	if r.deps.WriteLimiter != nil {
		writes.Use(r.deps.WriteLimiter.Middleware())
	}
	writes.POST("/newsletter/subscribe", r.subscribe)
	writes.POST("/newsletter/unsubscribe", r.unsubscribe)
	writes.POST("/push/subscribe", r.pushSubscribe)
	writes.DELETE("/push/subscribe", r.pushUnsubscribe)
	writes.POST("/contribute", r.contribute)

	admin := infragin.ProtectedGroup(api, "/admin", r.deps.JWTSecret)
	admin.POST("/newsletter/send", r.sendNewsletter)
	admin.POST("/newsletter/digest", r.sendDigest)
	admin.POST("/push/send", r.sendPush)
	admin.POST("/cache/purge", r.purgeCache)
}
