package articles

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/cache"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
	"github.com/nordicstoday/nordics-today/internal/query"
)

// FetchFeaturedArticles returns the newest illustrated news stories. Errors
// are logged and yield an empty slice.
func (s *Service) FetchFeaturedArticles(ctx context.Context, limit int) []domain.ProcessedArticle {
	if limit < 1 {
		limit = FeaturedLimit
	}
	return s.rail(ctx, prefixFeatured, limit, enrich.DefaultExcerptLength, query.Featured(limit))
}

// FetchTrendingArticles returns the most viewed news stories of the last
// day with short excerpts. Errors are logged and yield an empty slice.
func (s *Service) FetchTrendingArticles(ctx context.Context, limit int) []domain.ProcessedArticle {
	if limit < 1 {
		limit = TrendingLimit
	}
	since := s.pipeline.Clock().Add(-TrendingWindow)
	return s.rail(ctx, prefixTrending, limit, enrich.CondensedExcerptLength, query.Trending(since, limit))
}

func (s *Service) rail(ctx context.Context, prefix string, limit, excerptLen int, d query.Descriptor) []domain.ProcessedArticle {
	key := cache.Key(prefix, cache.P("limit", limit))

	ctx, span := s.tracer.Start(ctx, "articles."+prefix,
		trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	if cached, ok := cache.Lookup[[]domain.ProcessedArticle](s.cache, key); ok {
		s.metrics.lookup(prefix, true)
		return cached
	}
	s.metrics.lookup(prefix, false)

	var rows []domain.Article
	err := s.timed(prefix, func() error {
		var err error
		rows, err = s.repo.List(ctx, d)
		return err
	})
	if err != nil {
		span.RecordError(err)
		s.log.Error("Failed to fetch article rail",
			logger.String("rail", prefix),
			logger.Error(err))
		return []domain.ProcessedArticle{}
	}

	out := s.pipeline.ProcessAll(rows, excerptLen)
	s.cache.Set(key, out)
	return out
}

// FetchArticleBySlug returns the article with slug, or nil when there is
// none. Errors are data-layer failures.
func (s *Service) FetchArticleBySlug(ctx context.Context, slug string) (*domain.ProcessedArticle, error) {
	key := cache.Key(prefixArticle, cache.P("slug", slug))

	ctx, span := s.tracer.Start(ctx, "articles.by_slug",
		trace.WithAttributes(attribute.String("slug", slug)))
	defer span.End()

	if cached, ok := cache.Lookup[*domain.ProcessedArticle](s.cache, key); ok {
		s.metrics.lookup(prefixArticle, true)
		return cached, nil
	}
	s.metrics.lookup(prefixArticle, false)

	var a *domain.Article
	err := s.timed("by_slug", func() error {
		var err error
		a, err = s.repo.One(ctx, query.BySlug(slug))
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p := s.pipeline.Process(*a, enrich.DefaultExcerptLength)
	s.cache.Set(key, &p)
	return &p, nil
}

// ListArticles reads one offset/limit window of f without counting,
// caching or falling back. Errors are returned as is.
func (s *Service) ListArticles(ctx context.Context, f domain.ArticleFilters, limit, offset int) ([]domain.ProcessedArticle, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	_, d := query.Build(f, limit, offset)

	var rows []domain.Article
	err := s.timed("list_window", func() error {
		var err error
		rows, err = s.repo.List(ctx, d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessAll(rows, enrich.DefaultExcerptLength), nil
}

// FetchArticlesByAuthor lists an author's stories, newest first. It is not
// cached.
func (s *Service) FetchArticlesByAuthor(ctx context.Context, authorSlug string, limit int) ([]domain.ProcessedArticle, error) {
	if limit < 1 {
		limit = AuthorLimit
	}
	rows, err := s.repo.List(ctx, query.ByAuthor(authorSlug, limit))
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessAll(rows, enrich.DefaultExcerptLength), nil
}

// FetchPublishedSince lists stories newer than since, optionally restricted
// to categories. It is not cached.
func (s *Service) FetchPublishedSince(ctx context.Context, since time.Time, limit int, categories ...domain.Category) ([]domain.ProcessedArticle, error) {
	rows, err := s.repo.List(ctx, query.PublishedSince(since, limit, categories...))
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessAll(rows, enrich.DefaultExcerptLength), nil
}

// FetchPopularSince lists the most viewed stories of any section since
// since. It is not cached.
func (s *Service) FetchPopularSince(ctx context.Context, since time.Time, limit int) ([]domain.ProcessedArticle, error) {
	rows, err := s.repo.List(ctx, query.Popular(since, limit))
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessAll(rows, enrich.DefaultExcerptLength), nil
}

// TrackView counts a read of articleID without blocking the caller. The
// increment runs detached from ctx with its own timeout; failures are
// logged and dropped.
func (s *Service) TrackView(ctx context.Context, articleID string) {
	if s.views == nil || articleID == "" {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		incCtx, cancel := context.WithTimeout(detached, s.viewTimeout)
		defer cancel()
		if err := s.views.IncrementViewCount(incCtx, articleID); err != nil {
			s.log.Warn("Failed to increment view count",
				logger.String("article_id", articleID),
				logger.Error(err))
		}
	}()
}
