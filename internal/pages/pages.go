// Package pages assembles the data documents behind each page of the site.
// Composite pages settle every section independently: a failed section is
// rendered empty and never fails the page.
package pages

import (
	"context"
	"time"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// DefaultRelatedTimeout bounds the related sections of an article page.
const DefaultRelatedTimeout = 3 * time.Second

// ArticleSource is the read side of the article service.
type ArticleSource interface {
	FetchArticles(ctx context.Context, f domain.ArticleFilters, page, limit int) (domain.ArticleListResponse, error)
	FetchFeaturedArticles(ctx context.Context, limit int) []domain.ProcessedArticle
	FetchTrendingArticles(ctx context.Context, limit int) []domain.ProcessedArticle
	FetchArticleBySlug(ctx context.Context, slug string) (*domain.ProcessedArticle, error)
	FetchArticlesByAuthor(ctx context.Context, authorSlug string, limit int) ([]domain.ProcessedArticle, error)
	ListArticles(ctx context.Context, f domain.ArticleFilters, limit, offset int) ([]domain.ProcessedArticle, error)
	TrackView(ctx context.Context, articleID string)
}

// AuthorFinder resolves author profiles.
type AuthorFinder interface {
	ActiveBySlug(ctx context.Context, slug string) (*domain.Author, error)
}

// Meta is the head metadata of a page.
type Meta struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Keywords      []string   `json:"keywords"`
	Image         string     `json:"image,omitempty"`
	PublishedTime *time.Time `json:"publishedTime,omitempty"`
	ModifiedTime  *time.Time `json:"modifiedTime,omitempty"`
	Section       string     `json:"section,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
}

// CountrySection is a rail of stories from one country.
type CountrySection struct {
	Country  domain.Country            `json:"country"`
	Name     string                    `json:"name"`
	Articles []domain.ProcessedArticle `json:"articles"`
}

// CategorySection is a rail of stories from one category.
type CategorySection struct {
	Category domain.Category           `json:"category"`
	Name     string                    `json:"name"`
	Articles []domain.ProcessedArticle `json:"articles"`
}

// Loader builds page documents.
type Loader struct {
	articles       ArticleSource
	authors        AuthorFinder
	log            logger.Logger
	relatedTimeout time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithRelatedTimeout overrides DefaultRelatedTimeout.
func WithRelatedTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.relatedTimeout = d
		}
	}
}

func NewLoader(articles ArticleSource, authors AuthorFinder, log logger.Logger, opts ...Option) *Loader {
	l := &Loader{
		articles:       articles,
		authors:        authors,
		log:            log,
		relatedTimeout: DefaultRelatedTimeout,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// section fetches one rail and settles failures to an empty rail.
func (l *Loader) section(ctx context.Context, name string, f domain.ArticleFilters, limit int) []domain.ProcessedArticle {
	resp, err := l.articles.FetchArticles(ctx, f, 1, limit)
	if err != nil {
		l.log.Error("Failed to load page section",
			logger.String("section", name),
			logger.Error(err))
		return []domain.ProcessedArticle{}
	}
	return resp.Articles
}

type idSet map[string]struct{}

func (s idSet) add(articles []domain.ProcessedArticle) {
	for i := range articles {
		s[articles[i].ID] = struct{}{}
	}
}

// excluding copies up to n articles whose ids are not in skip. The input is
// never modified, it may be a shared cache entry.
func excluding(in []domain.ProcessedArticle, skip idSet, n int) []domain.ProcessedArticle {
	out := make([]domain.ProcessedArticle, 0, n)
	for i := range in {
		if len(out) == n {
			break
		}
		if _, ok := skip[in[i].ID]; ok {
			continue
		}
		out = append(out, in[i])
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
