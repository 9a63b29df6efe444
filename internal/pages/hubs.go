package pages

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Hub rail sizes.
const (
	hubListLimit       = 20
	hubFeatured        = 3
	countryRail        = 4
	categoryRail       = 3
	countryArchivePool = 500
	cityPool           = 100
)

var countryHubCategories = []domain.Category{domain.Business, domain.Politics, domain.Tech, domain.Culture, domain.Sports}

// CountryRef identifies a country hub.
type CountryRef struct {
	Code domain.Country `json:"code"`
	Name string         `json:"name"`
	Slug string         `json:"slug"`
}

func countryRef(c domain.Country) CountryRef {
	return CountryRef{Code: c, Name: c.Name(), Slug: c.Slug()}
}

// CategoryRef identifies a category hub.
type CategoryRef struct {
	Code domain.Category `json:"code"`
	Name string          `json:"name"`
	Slug string          `json:"slug"`
}

func categoryRef(c domain.Category) CategoryRef {
	return CategoryRef{Code: c, Name: c.Label(), Slug: string(c)}
}

// CurrentFilters echoes the optional query narrowing of a hub listing.
type CurrentFilters struct {
	Country  *string `json:"country,omitempty"`
	Category *string `json:"category,omitempty"`
	Search   *string `json:"search,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CountryPage is a country hub such as /sweden.
type CountryPage struct {
	Country            CountryRef                `json:"country"`
	Articles           []domain.ProcessedArticle `json:"articles"`
	Pagination         domain.PaginationInfo     `json:"pagination"`
	FeaturedArticles   []domain.ProcessedArticle `json:"featuredArticles"`
	ArticlesByCategory []CategorySection         `json:"articlesByCategory"`
	CurrentFilters     CurrentFilters            `json:"currentFilters"`
	Meta               Meta                      `json:"meta"`
	Error              string                    `json:"error,omitempty"`
}

// Country builds the hub of the country with slug. Unknown slugs yield
// domain.ErrNotFound; an unknown category narrowing yields
// domain.ErrInvalidCategory.
func (l *Loader) Country(ctx context.Context, slug, category, search string, page int) (CountryPage, error) {
	c, ok := domain.CountryFromSlug(slug)
	if !ok {
		return CountryPage{}, fmt.Errorf("country %q: %w", slug, domain.ErrNotFound)
	}
	filters, err := domain.NewArticleFilters(map[string]string{
		domain.FilterCountry:  string(c),
		domain.FilterCategory: category,
		domain.FilterSearch:   search,
	})
	if err != nil {
		return CountryPage{}, err
	}

	var (
		list     domain.ArticleListResponse
		listErr  error
		featured []domain.ProcessedArticle
		sections = make([]CategorySection, len(countryHubCategories))
		g        errgroup.Group
	)
	g.Go(func() error {
		list, listErr = l.articles.FetchArticles(ctx, filters, page, hubListLimit)
		return nil
	})
	g.Go(func() error {
		featured = l.section(ctx, "featured", domain.Filters(domain.WithCountry(c), domain.WithFeatured(true)), hubFeatured)
		return nil
	})
	for i, cat := range countryHubCategories {
		g.Go(func() error {
			arts := l.section(ctx, "category:"+string(cat), domain.Filters(domain.WithCountry(c), domain.WithCategory(cat)), countryRail)
			sections[i] = CategorySection{Category: cat, Name: cat.Label(), Articles: arts}
			return nil
		})
	}
	_ = g.Wait()

	if listErr != nil {
		return CountryPage{}, listErr
	}

	name := c.Name()
	return CountryPage{
		Country:            countryRef(c),
		Articles:           list.Articles,
		Pagination:         list.Pagination,
		FeaturedArticles:   featured,
		ArticlesByCategory: sections,
		CurrentFilters:     CurrentFilters{Category: optional(category), Search: optional(search)},
		Meta: Meta{
			Title: name + " News - Nordics Today",
			Description: fmt.Sprintf("Latest news and analysis from %s. Stay updated with %s's politics, business, culture, and more.",
				name, name),
			Keywords: nonEmpty(name+" news", name, "Nordic news", category),
		},
		Error: list.Error,
	}, nil
}

// CountryCategoryPage is a section of a country hub such as
// /norway/politics.
type CountryCategoryPage struct {
	Country  CountryRef                `json:"country"`
	Category CategoryRef               `json:"category"`
	Articles []domain.ProcessedArticle `json:"articles"`
	Meta     Meta                      `json:"meta"`
	Error    string                    `json:"error,omitempty"`
}

// CountryCategory lists a country's stories in one of
// domain.CountryCategories. The society page also carries culture and
// breaking stories.
func (l *Loader) CountryCategory(ctx context.Context, countrySlug, categorySlug string) (CountryCategoryPage, error) {
	c, ok := domain.CountryFromSlug(countrySlug)
	if !ok {
		return CountryCategoryPage{}, fmt.Errorf("country %q: %w", countrySlug, domain.ErrNotFound)
	}
	cat, ok := domain.ParseCategory(categorySlug)
	if !ok || !slices.Contains(domain.CountryCategories, cat) {
		return CountryCategoryPage{}, fmt.Errorf("category %q: %w", categorySlug, domain.ErrNotFound)
	}

	page := CountryCategoryPage{
		Country:  countryRef(c),
		Category: categoryRef(cat),
		Articles: []domain.ProcessedArticle{},
		Meta: Meta{
			Title:       fmt.Sprintf("%s %s News - Nordics Today", c.Name(), cat.Label()),
			Description: fmt.Sprintf("Latest %s news from %s.", cat.Label(), c.Name()),
			Keywords:    []string{c.Name() + " " + cat.Label(), c.Name() + " news", "Nordic news"},
		},
	}

	all, err := l.articles.ListArticles(ctx, domain.Filters(domain.WithCountry(c)), countryArchivePool, 0)
	if err != nil {
		l.log.Error("Failed to load country section",
			logger.String("country", string(c)),
			logger.String("category", string(cat)),
			logger.Error(err))
		page.Error = "Failed to load articles"
		return page, nil
	}

	members := cat.Members()
	for i := range all {
		if slices.Contains(members, all[i].Category) {
			page.Articles = append(page.Articles, all[i])
		}
	}
	return page, nil
}

// CategoryPage is a category hub such as /category/tech.
type CategoryPage struct {
	Category          CategoryRef               `json:"category"`
	Articles          []domain.ProcessedArticle `json:"articles"`
	Pagination        domain.PaginationInfo     `json:"pagination"`
	FeaturedArticles  []domain.ProcessedArticle `json:"featuredArticles"`
	ArticlesByCountry []CountrySection          `json:"articlesByCountry"`
	RelatedArticles   []CategorySection         `json:"relatedArticles"`
	CurrentFilters    CurrentFilters            `json:"currentFilters"`
	Meta              Meta                      `json:"meta"`
	Error             string                    `json:"error,omitempty"`
}

// Category builds the hub of the category with slug. Unknown slugs yield
// domain.ErrNotFound; an unknown country narrowing yields
// domain.ErrInvalidCountry.
func (l *Loader) Category(ctx context.Context, slug, country, search string, page int) (CategoryPage, error) {
	cat, ok := domain.ParseCategory(slug)
	if !ok {
		return CategoryPage{}, fmt.Errorf("category %q: %w", slug, domain.ErrNotFound)
	}
	filters, err := domain.NewArticleFilters(map[string]string{
		domain.FilterCategory: string(cat),
		domain.FilterCountry:  country,
		domain.FilterSearch:   search,
	})
	if err != nil {
		return CategoryPage{}, err
	}

	related := cat.Related()
	var (
		list      domain.ArticleListResponse
		listErr   error
		featured  []domain.ProcessedArticle
		byCountry = make([]CountrySection, len(domain.Countries))
		byRelated = make([]CategorySection, len(related))
		g         errgroup.Group
	)
	g.Go(func() error {
		list, listErr = l.articles.FetchArticles(ctx, filters, page, hubListLimit)
		return nil
	})
	g.Go(func() error {
		featured = l.section(ctx, "featured", domain.Filters(domain.WithCategory(cat), domain.WithFeatured(true)), hubFeatured)
		return nil
	})
	for i, c := range domain.Countries {
		g.Go(func() error {
			arts := l.section(ctx, "country:"+string(c), domain.Filters(domain.WithCategory(cat), domain.WithCountry(c)), categoryRail)
			byCountry[i] = CountrySection{Country: c, Name: c.Name(), Articles: arts}
			return nil
		})
	}
	for i, rc := range related {
		g.Go(func() error {
			arts := l.section(ctx, "related:"+string(rc), domain.Filters(domain.WithCategory(rc)), categoryRail)
			byRelated[i] = CategorySection{Category: rc, Name: rc.Label(), Articles: arts}
			return nil
		})
	}
	_ = g.Wait()

	if listErr != nil {
		return CategoryPage{}, listErr
	}

	name := cat.Label()
	return CategoryPage{
		Category:          categoryRef(cat),
		Articles:          list.Articles,
		Pagination:        list.Pagination,
		FeaturedArticles:  featured,
		ArticlesByCountry: byCountry,
		RelatedArticles:   byRelated,
		CurrentFilters:    CurrentFilters{Country: optional(country), Search: optional(search)},
		Meta: Meta{
			Title: name + " News - Nordics Today",
			Description: fmt.Sprintf("Latest %s news from across the Nordic region. "+
				"Stay updated with developments in Sweden, Norway, Denmark, Finland, and Iceland.", strings.ToLower(name)),
			Keywords: nonEmpty(name+" news", "Nordic news", name, country),
		},
		Error: list.Error,
	}, nil
}

// CityPage is a local hub such as /oslo.
type CityPage struct {
	City     CityRef                   `json:"city"`
	Country  CountryRef                `json:"country"`
	Articles []domain.ProcessedArticle `json:"articles"`
	Meta     Meta                      `json:"meta"`
}

// CityRef identifies a city hub.
type CityRef struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	AlternateName string `json:"alternateName,omitempty"`
}

// City lists recent stories from the city's country that mention it.
func (l *Loader) City(ctx context.Context, slug string) (CityPage, error) {
	city, ok := domain.CityFromSlug(slug)
	if !ok {
		return CityPage{}, fmt.Errorf("city %q: %w", slug, domain.ErrNotFound)
	}

	ref := CityRef{Slug: city.Slug, Name: city.Name}
	if len(city.Aliases) > 0 {
		ref.AlternateName = city.Aliases[0]
	}
	page := CityPage{
		City:     ref,
		Country:  countryRef(city.Country),
		Articles: []domain.ProcessedArticle{},
		Meta: Meta{
			Title:       city.Name + " News - Nordics Today",
			Description: fmt.Sprintf("Latest news from %s, %s: politics, business, culture and local events.", city.Name, city.Country.Name()),
			Keywords:    []string{city.Name + " news", city.Name, city.Country.Name() + " news", "Nordic news"},
		},
	}

	pool, err := l.articles.ListArticles(ctx, domain.Filters(domain.WithCountry(city.Country)), cityPool, 0)
	if err != nil {
		l.log.Error("Failed to load city articles",
			logger.String("city", city.Slug),
			logger.Error(err))
		return page, nil
	}
	for i := range pool {
		a := &pool[i]
		if city.Mentions(a.Title, a.SummaryText(), a.Content) {
			page.Articles = append(page.Articles, *a)
		}
	}
	return page, nil
}
