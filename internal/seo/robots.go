package seo

import (
	"context"
	"fmt"

	"github.com/gorilla/feeds"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

const robotsBody = `User-agent: *
Allow: /

# Block admin and private pages
Disallow: /admin/
Disallow: /api/

# Allow assets
Allow: /*.css
Allow: /*.js
Allow: /*.png
Allow: /*.jpg
Allow: /*.jpeg
Allow: /*.gif
Allow: /*.webp
Allow: /*.svg
Allow: /*.ico

# Sitemaps
Sitemap: ` + SiteURL + `/sitemap.xml
Sitemap: ` + SiteURL + `/news-sitemap.xml
`

// Robots returns robots.txt.
func Robots() Document {
	return Document{
		Body:         []byte(robotsBody),
		ContentType:  ContentTypePlain,
		CacheControl: "public, max-age=3600",
		Vary:         "Host",
	}
}

// Feed renders the newest FeedLimit stories as RSS 2.0.
func (b *Builder) Feed(ctx context.Context) (Document, error) {
	resp, err := b.articles.FetchArticles(ctx, domain.ArticleFilters{}, 1, FeedLimit)
	if err != nil {
		return Document{}, fmt.Errorf("fetch feed articles: %w", err)
	}
	if resp.Error != "" {
		b.log.Warn("Serving feed from degraded listing", logger.String("reason", resp.Error))
	}

	feed := &feeds.Feed{
		Title:       publicationName,
		Link:        &feeds.Link{Href: SiteURL},
		Description: "Latest news from Sweden, Norway, Denmark, Finland and Iceland",
		Created:     b.now().UTC(),
	}
	for i := range resp.Articles {
		a := &resp.Articles[i]
		item := &feeds.Item{
			Id:          SiteURL + a.URLSlug,
			Title:       a.Title,
			Link:        &feeds.Link{Href: SiteURL + a.URLSlug},
			Description: a.Excerpt,
		}
		if a.PublishedAt != nil {
			item.Created = a.PublishedAt.UTC()
		}
		if a.AuthorName != nil {
			item.Author = &feeds.Author{Name: *a.AuthorName}
		}
		if img := a.ImageURL(); img != "" {
			item.Enclosure = &feeds.Enclosure{Url: img, Type: "image/jpeg", Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return Document{}, fmt.Errorf("render rss: %w", err)
	}
	return Document{Body: []byte(rss), ContentType: ContentTypeRSS, CacheControl: "public, max-age=900"}, nil
}
