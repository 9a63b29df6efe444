package articles

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/cache"
	"github.com/nordicstoday/nordics-today/internal/database"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
	"github.com/nordicstoday/nordics-today/internal/query"
)

// ListKey is the cache key of one page of a filtered listing. Only the
// filters that are set take part, followed by page and limit.
func ListKey(f domain.ArticleFilters, page, limit int) string {
	params := make([]cache.Param, 0, 6)
	if f.Country != nil {
		params = append(params, cache.P(domain.FilterCountry, *f.Country))
	}
	if f.Category != nil {
		params = append(params, cache.P(domain.FilterCategory, *f.Category))
	}
	if f.Search != nil {
		params = append(params, cache.P(domain.FilterSearch, *f.Search))
	}
	if f.Featured != nil {
		params = append(params, cache.P(domain.FilterFeatured, *f.Featured))
	}
	params = append(params, cache.P("page", page), cache.P("limit", limit))
	return cache.Key(prefixList, params...)
}

func normalise(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return page, limit
}

func filterAttributes(f domain.ArticleFilters) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if f.Country != nil {
		attrs = append(attrs, attribute.String("filter.country", string(*f.Country)))
	}
	if f.Category != nil {
		attrs = append(attrs, attribute.String("filter.category", string(*f.Category)))
	}
	if f.Search != nil {
		attrs = append(attrs, attribute.Bool("filter.search", true))
	}
	if f.FeaturedOnly() {
		attrs = append(attrs, attribute.Bool("filter.featured", true))
	}
	return attrs
}

// FetchArticles returns one page of articles matching f, newest first.
//
// Responses come from the cache when a fresh entry exists. On a miss the
// count and the page are queried concurrently and the enriched result is
// cached. A data-layer failure never reaches the caller: the response
// degrades through the fallback chain and carries a message in Error. Any
// other error is returned.
func (s *Service) FetchArticles(ctx context.Context, f domain.ArticleFilters, page, limit int) (domain.ArticleListResponse, error) {
	page, limit = normalise(page, limit)
	key := ListKey(f, page, limit)

	ctx, span := s.tracer.Start(ctx, "articles.fetch",
		trace.WithAttributes(append(filterAttributes(f),
			attribute.Int("page", page),
			attribute.Int("limit", limit))...))
	defer span.End()

	if cached, ok := cache.Lookup[domain.ArticleListResponse](s.cache, key); ok {
		s.metrics.lookup(prefixList, true)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.lookup(prefixList, false)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	countQ, dataQ := query.Build(f, limit, (page-1)*limit)

	var (
		total int
		rows  []domain.Article
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.timed("count", func() error {
			n, err := s.repo.Count(gctx, countQ)
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			total = n
			return nil
		})
	})
	g.Go(func() error {
		return s.timed("list", func() error {
			r, err := s.repo.List(gctx, dataQ)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			rows = r
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		if !database.IsDataLayerError(err) {
			span.SetStatus(codes.Error, err.Error())
			return domain.ArticleListResponse{}, err
		}
		s.log.Warn("Article query failed, serving fallback",
			logger.String("cache_key", key),
			logger.Error(err))
		return s.fallback(ctx, limit)
	}

	resp := domain.ArticleListResponse{
		Articles:   s.pipeline.ProcessAll(rows, enrich.DefaultExcerptLength),
		Pagination: domain.NewPagination(page, limit, total),
	}
	s.cache.Set(key, resp)
	return resp, nil
}

// fallback serves the newest articles regardless of filters, then an empty
// response. Neither stage is cached.
func (s *Service) fallback(ctx context.Context, limit int) (domain.ArticleListResponse, error) {
	var rows []domain.Article
	err := s.timed("fallback", func() error {
		var err error
		rows, err = s.repo.List(ctx, query.Recent(limit))
		return err
	})
	if err == nil {
		s.metrics.Fallbacks.WithLabelValues("recent").Inc()
		return domain.ArticleListResponse{
			Articles:   s.pipeline.ProcessAll(rows, enrich.DefaultExcerptLength),
			Pagination: domain.SinglePage(len(rows), limit),
			Error:      MsgDegraded,
		}, nil
	}
	if !database.IsDataLayerError(err) {
		return domain.ArticleListResponse{}, fmt.Errorf("fallback: %w", err)
	}

	s.log.Error("Fallback article query failed",
		logger.Int("limit", limit),
		logger.Error(err))
	s.metrics.Fallbacks.WithLabelValues("empty").Inc()
	return domain.ArticleListResponse{
		Articles:   []domain.ProcessedArticle{},
		Pagination: domain.EmptyPage(limit),
		Error:      MsgUnavailable,
	}, nil
}

// FetchArticlesByCountry lists one country, newest first.
func (s *Service) FetchArticlesByCountry(ctx context.Context, c domain.Country, page, limit int) (domain.ArticleListResponse, error) {
	return s.FetchArticles(ctx, domain.Filters(domain.WithCountry(c)), page, limit)
}

// FetchArticlesByCategory lists one category, newest first.
func (s *Service) FetchArticlesByCategory(ctx context.Context, c domain.Category, page, limit int) (domain.ArticleListResponse, error) {
	return s.FetchArticles(ctx, domain.Filters(domain.WithCategory(c)), page, limit)
}

// SearchArticles matches term against title, summary and content.
func (s *Service) SearchArticles(ctx context.Context, term string, page, limit int) (domain.ArticleListResponse, error) {
	return s.FetchArticles(ctx, domain.Filters(domain.WithSearch(term)), page, limit)
}
