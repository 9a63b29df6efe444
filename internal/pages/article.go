package pages

import (
	"context"
	"fmt"
	"sync"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/articlepage"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Related rail sizes. Each rail fetches one extra story so that dropping
// the current article still fills it.
const (
	relatedPool         = 4
	relatedRail         = 3
	relatedTrendingPool = 6
	relatedTrending     = 5
)

// Related are the rails under an article.
type Related struct {
	ByCategory []domain.ProcessedArticle `json:"byCategory"`
	ByCountry  []domain.ProcessedArticle `json:"byCountry"`
	Trending   []domain.ProcessedArticle `json:"trending"`
}

// ArticlePage is the document behind /article/:slug.
type ArticlePage struct {
	Article         domain.ProcessedArticle `json:"article"`
	Content         articlepage.Split       `json:"content"`
	SEOTitle        string                  `json:"seoTitle"`
	OGLocale        string                  `json:"ogLocale"`
	RelatedArticles Related                 `json:"relatedArticles"`
	StructuredData  articlepage.NewsArticle `json:"structuredData"`
	Meta            Meta                    `json:"meta"`
}

// Article builds the page of the article with slug and records a view.
// Missing articles yield domain.ErrNotFound. The related rails share one
// deadline; rails that miss it are empty.
func (l *Loader) Article(ctx context.Context, slug string) (ArticlePage, error) {
	a, err := l.articles.FetchArticleBySlug(ctx, slug)
	if err != nil {
		return ArticlePage{}, fmt.Errorf("load article %q: %w", slug, err)
	}
	if a == nil {
		return ArticlePage{}, fmt.Errorf("article %q: %w", slug, domain.ErrNotFound)
	}

	l.articles.TrackView(ctx, a.ID)

	body := articlepage.SeparateReadMoreLinks(a.Content)
	return ArticlePage{
		Article:         *a,
		Content:         articlepage.SplitContentForAd(body),
		SEOTitle:        articlepage.SEOTitle(a.Title, a.CountryName, a.PublishedAt),
		OGLocale:        articlepage.OGLocale(string(a.Country), a.CountryName),
		RelatedArticles: l.related(ctx, a),
		StructuredData:  articlepage.StructuredData(*a),
		Meta:            articleMeta(a),
	}, nil
}

func (l *Loader) related(ctx context.Context, a *domain.ProcessedArticle) Related {
	ctx, cancel := context.WithTimeout(ctx, l.relatedTimeout)
	defer cancel()

	skip := idSet{a.ID: {}}
	var (
		mu  sync.Mutex
		out Related
		wg  sync.WaitGroup
	)
	fill := func(dst *[]domain.ProcessedArticle, name string, f domain.ArticleFilters, pool, n int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rail := excluding(l.section(ctx, name, f, pool), skip, n)
			mu.Lock()
			*dst = rail
			mu.Unlock()
		}()
	}
	fill(&out.ByCategory, "related:category", domain.Filters(domain.WithCategory(a.Category)), relatedPool, relatedRail)
	fill(&out.ByCountry, "related:country", domain.Filters(domain.WithCountry(a.Country)), relatedPool, relatedRail)
	fill(&out.Trending, "related:trending", domain.ArticleFilters{}, relatedTrendingPool, relatedTrending)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		l.log.Warn("Related sections timed out",
			logger.String("slug", a.Slug),
			logger.Duration("timeout", l.relatedTimeout))
	}

	mu.Lock()
	defer mu.Unlock()
	snapshot := out
	for _, rail := range []*[]domain.ProcessedArticle{&snapshot.ByCategory, &snapshot.ByCountry, &snapshot.Trending} {
		if *rail == nil {
			*rail = []domain.ProcessedArticle{}
		}
	}
	return snapshot
}

func articleMeta(a *domain.ProcessedArticle) Meta {
	m := Meta{
		Title:         a.Title + " - " + a.CountryName + " News - Nordics Today",
		Description:   a.SummaryText(),
		Image:         a.ImageURL(),
		PublishedTime: a.PublishedAt,
		ModifiedTime:  a.PublishedAt,
		Section:       a.CategoryDisplay,
	}
	if a.MetaDescription != nil && *a.MetaDescription != "" {
		m.Title = a.Title + " - Nordics Today"
		m.Description = *a.MetaDescription
	}
	if m.Description == "" {
		m.Description = a.Excerpt
	}

	if len(a.Keywords) > 0 {
		m.Keywords = a.Keywords
	} else {
		m.Keywords = nonEmpty(a.CategoryDisplay, a.CountryName, "Nordic news", a.SourceName)
	}
	m.Tags = append(nonEmpty(a.CategoryDisplay, a.CountryName), a.Keywords...)
	return m
}
