// Package articles is the read path for published articles: a read-through
// cache in front of concurrent count and data queries, with a fallback
// chain that degrades instead of failing.
package articles

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/cache"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
	"github.com/nordicstoday/nordics-today/internal/query"
)

// Defaults.
const (
	DefaultLimit       = 20
	FeaturedLimit      = 5
	TrendingLimit      = 10
	AuthorLimit        = 24
	TrendingWindow     = 24 * time.Hour
	DefaultViewTimeout = 5 * time.Second
)

// Cache key prefixes.
const (
	prefixList     = "articles"
	prefixFeatured = "featured"
	prefixTrending = "trending"
	prefixArticle  = "article"
)

const tracerName = "articles"

// Messages carried in ArticleListResponse.Error by the fallback chain.
const (
	MsgDegraded    = "Some features may be limited due to a temporary issue"
	MsgUnavailable = "Unable to load articles at this time. Please try again later."
)

// Repository runs query descriptors. Errors it returns are classified with
// database.IsDataLayerError.
type Repository interface {
	Count(ctx context.Context, d query.Descriptor) (int, error)
	List(ctx context.Context, d query.Descriptor) ([]domain.Article, error)
	One(ctx context.Context, d query.Descriptor) (*domain.Article, error)
}

// ViewCounter bumps an article's view counter.
type ViewCounter interface {
	IncrementViewCount(ctx context.Context, articleID string) error
}

// Service serves processed articles. Cached responses are shared between
// callers and must be treated as read-only.
type Service struct {
	repo        Repository
	views       ViewCounter
	cache       *cache.Store
	pipeline    enrich.Pipeline
	log         logger.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	viewTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPipeline replaces the enrichment pipeline, typically to pin its clock.
func WithPipeline(p enrich.Pipeline) Option {
	return func(s *Service) { s.pipeline = p }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithViewCounter enables TrackView.
func WithViewCounter(v ViewCounter) Option {
	return func(s *Service) { s.views = v }
}

func WithViewTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.viewTimeout = d
		}
	}
}

// NewService wires a Service. Without WithMetrics, metrics go to a private
// registry.
func NewService(repo Repository, store *cache.Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		cache:       store,
		pipeline:    enrich.New(),
		log:         log,
		tracer:      otel.Tracer(tracerName),
		viewTimeout: DefaultViewTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return s
}

// Cache exposes the store for administrative purges.
func (s *Service) Cache() *cache.Store {
	return s.cache
}

func (s *Service) timed(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.QueryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}
