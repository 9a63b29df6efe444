// Package seo renders the crawler-facing documents: sitemaps, the news
// sitemap, robots.txt and the RSS feed.
package seo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// SiteURL is the public origin every absolute link is built on.
const SiteURL = "https://nordicstoday.com"

// Content types.
const (
	ContentTypeXML   = "application/xml; charset=utf-8"
	ContentTypeRSS   = "application/rss+xml; charset=utf-8"
	ContentTypePlain = "text/plain; charset=utf-8"
)

// Sitemap paging limits.
const (
	ArticleBatch    = 1000
	MaxSitemapURLs  = 50000
	NewsWindow      = 48 * time.Hour
	NewsLimit       = 1000
	FeedLimit       = 50
	publicationName = "Nordics Today"
)

// Document is a rendered artifact plus the headers it is served with.
type Document struct {
	Body         []byte
	ContentType  string
	CacheControl string
	Vary         string
}

// Source is the article read side used for sitemaps and feeds.
type Source interface {
	FetchArticles(ctx context.Context, f domain.ArticleFilters, page, limit int) (domain.ArticleListResponse, error)
	FetchPublishedSince(ctx context.Context, since time.Time, limit int, categories ...domain.Category) ([]domain.ProcessedArticle, error)
}

// Builder renders SEO documents from the article source.
type Builder struct {
	articles Source
	log      logger.Logger
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder.
func NewBuilder(articles Source, log logger.Logger, opts ...Option) *Builder {
	b := &Builder{articles: articles, log: log, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MarshalJSONLD serializes v for a <script type="application/ld+json">
// block. <, >, & and the U+2028/U+2029 line separators are emitted as
// \u escapes so the payload cannot close the script element.
func MarshalJSONLD(v any) ([]byte, error) {
	return json.Marshal(v)
}
