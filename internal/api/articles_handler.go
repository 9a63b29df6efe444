package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/articles"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
)

const (
	maxListLimit    = 100
	minSearchLength = 2

	msgSearchTooShort    = "Search term must be at least 2 characters long"
	msgSearchUnavailable = "Search temporarily unavailable. Please try again later."
)

// LegacyArticle is the flat article shape of GET /api/articles.
type LegacyArticle struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Summary          string          `json:"summary"`
	Excerpt          string          `json:"excerpt"`
	Slug             string          `json:"slug"`
	URLSlug          string          `json:"url_slug"`
	PublishedDate    *time.Time      `json:"published_date"`
	SourceName       string          `json:"source_name"`
	SourceCountry    domain.Country  `json:"source_country"`
	Category         domain.Category `json:"category"`
	CategoryDisplay  string          `json:"category_display"`
	CountryName      string          `json:"country_name"`
	FeaturedImageURL *string         `json:"featured_image_url"`
	ImageURL         *string         `json:"image_url"`
	ImageAlt         *string         `json:"image_alt"`
	RelativeTime     string          `json:"relative_time"`
}

// ToLegacy flattens a processed article. Excerpt is the pipeline's own, so
// it matches the page-data documents; the summary falls back to an excerpt
// of the body.
func ToLegacy(a domain.ProcessedArticle) LegacyArticle {
	summary := a.SummaryText()
	if summary == "" {
		summary = enrich.Excerpt(a.Content, enrich.DefaultExcerptLength)
	}
	return LegacyArticle{
		ID:               a.ID,
		Title:            a.Title,
		Summary:          summary,
		Excerpt:          a.Excerpt,
		Slug:             a.Slug,
		URLSlug:          a.URLSlug,
		PublishedDate:    a.PublishedAt,
		SourceName:       a.SourceName,
		SourceCountry:    a.Country,
		Category:         a.Category,
		CategoryDisplay:  a.CategoryDisplay,
		CountryName:      a.CountryName,
		FeaturedImageURL: a.FeaturedImageURL,
		ImageURL:         a.FeaturedImageURL,
		ImageAlt:         a.FeaturedImageAlt,
		RelativeTime:     a.RelativeTime,
	}
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// legacyArticles lists articles as a flat array.
// GET /api/articles?country=&category=&limit=20&offset=0
func (r *Router) legacyArticles(c *gin.Context) {
	f, err := domain.NewArticleFilters(map[string]string{
		domain.FilterCountry:  c.Query("country"),
		domain.FilterCategory: c.Query("category"),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := min(queryInt(c, "limit", articles.DefaultLimit), maxListLimit)
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	rows, err := r.deps.Articles.ListArticles(c.Request.Context(), f, limit, offset)
	if err != nil {
		r.requestLog(c).Error("Failed to fetch articles", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch articles"})
		return
	}

	out := make([]LegacyArticle, len(rows))
	for i := range rows {
		out[i] = ToLegacy(rows[i])
	}
	c.JSON(http.StatusOK, out)
}

// SearchFilters narrows a POST /api/search query.
type SearchFilters struct {
	Country  string `json:"country,omitempty"`
	Category string `json:"category,omitempty"`
	Featured bool   `json:"featured,omitempty"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	SearchTerm string        `json:"searchTerm"`
	Filters    SearchFilters `json:"filters"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	SortBy     string        `json:"sortBy"`
	SortOrder  string        `json:"sortOrder"`
}

func (r *Router) search(c *gin.Context, term string, sf SearchFilters, page, limit int, extra gin.H) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < minSearchLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgSearchTooShort})
		return
	}

	in := map[string]string{
		domain.FilterSearch:   term,
		domain.FilterCountry:  sf.Country,
		domain.FilterCategory: sf.Category,
	}
	if sf.Featured {
		in[domain.FilterFeatured] = "true"
	}
	f, err := domain.NewArticleFilters(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = articles.DefaultLimit
	}
	limit = min(limit, maxListLimit)

	resp, err := r.deps.Articles.FetchArticles(c.Request.Context(), f, page, limit)
	if err != nil {
		r.requestLog(c).Error("Search failed", logger.String("term", term), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgSearchUnavailable})
		return
	}

	data := gin.H{
		"articles":   resp.Articles,
		"pagination": resp.Pagination,
		"searchTerm": term,
		"filters":    sf,
	}
	for k, v := range extra {
		data[k] = v
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// searchGet runs a site search from query parameters.
// GET /api/search?q=&page=&limit=&country=&category=
func (r *Router) searchGet(c *gin.Context) {
	r.search(c, c.Query("q"), SearchFilters{
		Country:  c.Query("country"),
		Category: c.Query("category"),
	}, queryInt(c, "page", 1), queryInt(c, "limit", articles.DefaultLimit), nil)
}

// searchPost runs a site search from a JSON body. Results are always
// newest first; sortBy and sortOrder are echoed back.
// POST /api/search
func (r *Router) searchPost(c *gin.Context) {
	req := SearchRequest{SortBy: "published_at", SortOrder: "desc"}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request payload"})
		return
	}
	r.search(c, req.SearchTerm, req.Filters, req.Page, req.Limit, gin.H{
		"sortBy":    req.SortBy,
		"sortOrder": req.SortOrder,
	})
}
