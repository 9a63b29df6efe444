package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// respondPage writes a page document, mapping unresolved slugs to 404.
func (r *Router) respondPage(c *gin.Context, page string, doc any, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, doc)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
	case errors.Is(err, domain.ErrInvalidCountry), errors.Is(err, domain.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		r.requestLog(c).Error("Failed to load page",
			logger.String("page", page),
			logger.String("path", c.Request.URL.Path),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load page"})
	}
}

// GET /api/pages/home
func (r *Router) homePage(c *gin.Context) {
	c.JSON(http.StatusOK, r.deps.Pages.Home(c.Request.Context()))
}

// GET /api/pages/country/:country?category=&search=&page=
func (r *Router) countryPage(c *gin.Context) {
	doc, err := r.deps.Pages.Country(c.Request.Context(), c.Param("country"),
		c.Query("category"), c.Query("search"), queryInt(c, "page", 1))
	r.respondPage(c, "country", doc, err)
}

// GET /api/pages/country/:country/:category
func (r *Router) countryCategoryPage(c *gin.Context) {
	doc, err := r.deps.Pages.CountryCategory(c.Request.Context(), c.Param("country"), c.Param("category"))
	r.respondPage(c, "country_category", doc, err)
}

// GET /api/pages/category/:category?country=&search=&page=
func (r *Router) categoryPage(c *gin.Context) {
	doc, err := r.deps.Pages.Category(c.Request.Context(), c.Param("category"),
		c.Query("country"), c.Query("search"), queryInt(c, "page", 1))
	r.respondPage(c, "category", doc, err)
}

// GET /api/pages/city/:city
func (r *Router) cityPage(c *gin.Context) {
	doc, err := r.deps.Pages.City(c.Request.Context(), c.Param("city"))
	r.respondPage(c, "city", doc, err)
}

// GET /api/pages/article/:slug
func (r *Router) articlePage(c *gin.Context) {
	doc, err := r.deps.Pages.Article(c.Request.Context(), c.Param("slug"))
	r.respondPage(c, "article", doc, err)
}

// GET /api/pages/search?q=&page=
func (r *Router) searchPage(c *gin.Context) {
	c.JSON(http.StatusOK, r.deps.Pages.Search(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1)))
}

// GET /api/pages/author/:slug
func (r *Router) authorPage(c *gin.Context) {
	doc, err := r.deps.Pages.Author(c.Request.Context(), c.Param("slug"))
	r.respondPage(c, "author", doc, err)
}
