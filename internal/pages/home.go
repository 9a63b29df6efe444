package pages

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Home page rail sizes.
const (
	homeFeatured     = 5
	homeLatestPool   = 20
	homeLatest       = 12
	homeTrending     = 8
	homeSectionPool  = 10
	homeCountryRail  = 3
	homeCategoryRail = 4
	homeTitle        = "Nordics Today - Your Daily Source for Nordic News"
	homeDescription  = "The latest news and analysis from Sweden, Norway, Denmark, Finland, and Iceland, translated for a global audience."
)

var homeCategories = []domain.Category{domain.Business, domain.Politics, domain.Tech, domain.Culture}

// Stats summarises the home page.
type Stats struct {
	TotalArticles    int `json:"totalArticles"`
	CountriesActive  int `json:"countriesActive"`
	CategoriesActive int `json:"categoriesActive"`
}

// HomePage is the front page document.
type HomePage struct {
	FeaturedArticles   []domain.ProcessedArticle `json:"featuredArticles"`
	LatestArticles     []domain.ProcessedArticle `json:"latestArticles"`
	TrendingArticles   []domain.ProcessedArticle `json:"trendingArticles"`
	ArticlesByCountry  []CountrySection          `json:"articlesByCountry"`
	ArticlesByCategory []CategorySection         `json:"articlesByCategory"`
	Stats              Stats                     `json:"stats"`
	Meta               Meta                      `json:"meta"`
}

// Home builds the front page. No story appears in more than one of the
// featured, latest, country and category rails.
func (l *Loader) Home(ctx context.Context) HomePage {
	var (
		featured, trending []domain.ProcessedArticle
		latest             domain.ArticleListResponse
	)

	var g errgroup.Group
	g.Go(func() error {
		featured = l.articles.FetchFeaturedArticles(ctx, homeFeatured)
		return nil
	})
	g.Go(func() error {
		resp, err := l.articles.FetchArticles(ctx, domain.ArticleFilters{}, 1, homeLatestPool)
		if err != nil {
			l.log.Error("Failed to load latest articles", logger.Error(err))
			resp = domain.ArticleListResponse{Articles: []domain.ProcessedArticle{}}
		}
		latest = resp
		return nil
	})
	g.Go(func() error {
		trending = l.articles.FetchTrendingArticles(ctx, homeTrending)
		return nil
	})
	_ = g.Wait()

	used := idSet{}
	used.add(featured)
	latestRail := excluding(latest.Articles, used, homeLatest)
	used.add(latestRail)

	byCountry := make([]CountrySection, len(domain.Countries))
	var countries errgroup.Group
	for i, c := range domain.Countries {
		countries.Go(func() error {
			pool := l.section(ctx, "country:"+string(c), domain.Filters(domain.WithCountry(c)), homeSectionPool)
			byCountry[i] = CountrySection{Country: c, Name: c.Name(), Articles: excluding(pool, used, homeCountryRail)}
			return nil
		})
	}
	_ = countries.Wait()

	for _, s := range byCountry {
		used.add(s.Articles)
	}

	byCategory := make([]CategorySection, len(homeCategories))
	var categories errgroup.Group
	for i, c := range homeCategories {
		categories.Go(func() error {
			pool := l.section(ctx, "category:"+string(c), domain.Filters(domain.WithCategory(c)), homeSectionPool)
			byCategory[i] = CategorySection{Category: c, Name: c.Label(), Articles: excluding(pool, used, homeCategoryRail)}
			return nil
		})
	}
	_ = categories.Wait()

	stats := Stats{TotalArticles: latest.Pagination.TotalArticles}
	for _, s := range byCountry {
		if len(s.Articles) > 0 {
			stats.CountriesActive++
		}
	}
	for _, s := range byCategory {
		if len(s.Articles) > 0 {
			stats.CategoriesActive++
		}
	}

	return HomePage{
		FeaturedArticles:   featured,
		LatestArticles:     latestRail,
		TrendingArticles:   trending,
		ArticlesByCountry:  byCountry,
		ArticlesByCategory: byCategory,
		Stats:              stats,
		Meta: Meta{
			Title:       homeTitle,
			Description: homeDescription,
			Keywords:    []string{"Nordic news", "Sweden", "Norway", "Denmark", "Finland", "Iceland", "Scandinavian news"},
		},
	}
}
