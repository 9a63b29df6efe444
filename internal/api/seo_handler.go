package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/seo"
)

// writeDocument serves a rendered SEO artifact with its own headers.
func (r *Router) writeDocument(c *gin.Context, name string, doc seo.Document, err error) {
	if err != nil {
		r.requestLog(c).Error("Failed to render document", logger.String("document", name), logger.Error(err))
		c.String(http.StatusInternalServerError, "Error generating %s", name)
		return
	}
	if doc.CacheControl != "" {
		c.Header("Cache-Control", doc.CacheControl)
	}
	if doc.Vary != "" {
		c.Header("Vary", doc.Vary)
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (r *Router) sitemapIndex(c *gin.Context) {
	doc, err := r.deps.SEO.SitemapIndex()
	r.writeDocument(c, "sitemap", doc, err)
}

func (r *Router) pagesSitemap(c *gin.Context) {
	doc, err := r.deps.SEO.PagesSitemap()
	r.writeDocument(c, "pages sitemap", doc, err)
}

func (r *Router) articlesSitemap(c *gin.Context) {
	r.contextual(c, "articles sitemap", r.deps.SEO.ArticlesSitemap)
}

func (r *Router) newsSitemap(c *gin.Context) {
	r.contextual(c, "news sitemap", r.deps.SEO.NewsSitemap)
}

func (r *Router) rssFeed(c *gin.Context) {
	r.contextual(c, "RSS feed", r.deps.SEO.Feed)
}

func (r *Router) robots(c *gin.Context) {
	r.writeDocument(c, "robots.txt", seo.Robots(), nil)
}

func (r *Router) contextual(c *gin.Context, name string, build func(context.Context) (seo.Document, error)) {
	doc, err := build(c.Request.Context())
	r.writeDocument(c, name, doc, err)
}
