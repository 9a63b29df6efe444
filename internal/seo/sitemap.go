package seo

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
	newsNS    = "http://www.google.com/schemas/sitemap-news/0.9"
	imageNS   = "http://www.google.com/schemas/sitemap-image/1.1"
	dateOnly  = "2006-01-02"
)

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	XMLNS    string         `xml:"xmlns,attr"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlSet struct {
	XMLName    xml.Name  `xml:"urlset"`
	XMLNS      string    `xml:"xmlns,attr"`
	XMLNSNews  string    `xml:"xmlns:news,attr,omitempty"`
	XMLNSImage string    `xml:"xmlns:image,attr,omitempty"`
	URLs       []siteURL `xml:"url"`
}

type siteURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq string     `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
	News       *newsEntry `xml:"news:news,omitempty"`
	Image      *imageTag  `xml:"image:image,omitempty"`
}

type newsEntry struct {
	Publication     newsPublication `xml:"news:publication"`
	PublicationDate string          `xml:"news:publication_date"`
	Title           string          `xml:"news:title"`
	Keywords        string          `xml:"news:keywords,omitempty"`
}

type newsPublication struct {
	Name     string `xml:"news:name"`
	Language string `xml:"news:language"`
}

type imageTag struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title"`
	Caption string `xml:"image:caption"`
}

func render(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func xmlDocument(v any, cacheControl string) (Document, error) {
	body, err := render(v)
	if err != nil {
		return Document{}, err
	}
	return Document{Body: body, ContentType: ContentTypeXML, CacheControl: cacheControl}, nil
}

// SitemapIndex lists the three child sitemaps.
func (b *Builder) SitemapIndex() (Document, error) {
	now := b.now().UTC().Format(time.RFC3339)
	idx := sitemapIndex{XMLNS: sitemapNS}
	for _, path := range []string{"/sitemap-pages.xml", "/sitemap-articles.xml", "/news-sitemap.xml"} {
		idx.Sitemaps = append(idx.Sitemaps, sitemapEntry{Loc: SiteURL + path, LastMod: now})
	}
	return xmlDocument(idx, "public, max-age=3600")
}

// StaticPaths are the non-article pages in sitemap order.
func StaticPaths() []string {
	paths := []string{"", "/about", "/contact", "/privacy", "/terms", "/search"}
	for _, c := range domain.Countries {
		paths = append(paths, "/"+c.Slug())
	}
	for _, city := range domain.Cities {
		paths = append(paths, "/"+city.Slug)
	}
	for _, c := range domain.Countries {
		for _, cat := range domain.CountryCategories {
			paths = append(paths, "/"+c.Slug()+"/"+string(cat))
		}
	}
	return paths
}

// PagesSitemap lists the static pages and hubs.
func (b *Builder) PagesSitemap() (Document, error) {
	now := b.now().UTC().Format(time.RFC3339)
	set := urlSet{XMLNS: sitemapNS}
	for _, p := range StaticPaths() {
		set.URLs = append(set.URLs, siteURL{Loc: SiteURL + p, LastMod: now})
	}
	return xmlDocument(set, "public, max-age=3600")
}

// ArticlesSitemap pages through every article newest first until a short
// batch or MaxSitemapURLs. Failures render a one-URL document.
func (b *Builder) ArticlesSitemap(ctx context.Context) (Document, error) {
	urls, err := b.articleURLs(ctx)
	if err != nil {
		b.log.Error("Failed to generate articles sitemap", logger.Error(err))
		return xmlDocument(urlSet{XMLNS: sitemapNS, URLs: []siteURL{{Loc: SiteURL + "/"}}}, "")
	}
	return xmlDocument(urlSet{XMLNS: sitemapNS, URLs: urls}, "public, max-age=1800")
}

func (b *Builder) articleURLs(ctx context.Context) ([]siteURL, error) {
	today := b.now().UTC().Format(dateOnly)
	urls := []siteURL{}
	for page := 1; len(urls) < MaxSitemapURLs; page++ {
		resp, err := b.articles.FetchArticles(ctx, domain.ArticleFilters{}, page, ArticleBatch)
		if err != nil {
			return nil, err
		}
		// A degraded page holds the newest rows again, not page N.
		degraded := resp.Error != ""
		if degraded && page > 1 {
			b.log.Warn("Articles sitemap truncated", logger.Int("page", page), logger.String("reason", resp.Error))
			break
		}
		n := 0
		for i := range resp.Articles {
			a := &resp.Articles[i]
			if a.URLSlug == "" || a.Title == "" {
				continue
			}
			n++
			lastMod := today
			if a.PublishedAt != nil {
				lastMod = a.PublishedAt.UTC().Format(dateOnly)
			}
			urls = append(urls, siteURL{
				Loc:        SiteURL + a.URLSlug,
				LastMod:    lastMod,
				ChangeFreq: "weekly",
				Priority:   "0.7",
			})
			if len(urls) == MaxSitemapURLs {
				break
			}
		}
		if degraded || n == 0 || len(resp.Articles) < ArticleBatch {
			break
		}
	}
	return urls, nil
}

// NewsSitemap lists stories from the last 48 hours in Google News format.
func (b *Builder) NewsSitemap(ctx context.Context) (Document, error) {
	now := b.now()
	rows, err := b.articles.FetchPublishedSince(ctx, now.Add(-NewsWindow), NewsLimit)
	if err != nil {
		b.log.Error("Failed to generate news sitemap", logger.Error(err))
		return xmlDocument(urlSet{
			XMLNS:     sitemapNS,
			XMLNSNews: newsNS,
			URLs: []siteURL{{
				Loc: SiteURL + "/",
				News: &newsEntry{
					Publication:     newsPublication{Name: publicationName, Language: "en"},
					PublicationDate: now.UTC().Format(time.RFC3339),
					Title:           "News sitemap temporarily unavailable",
				},
			}},
		}, "")
	}

	set := urlSet{XMLNS: sitemapNS, XMLNSNews: newsNS, XMLNSImage: imageNS}
	for i := range rows {
		a := &rows[i]
		if a.Slug == "" || a.Title == "" {
			continue
		}
		published := now
		if a.PublishedAt != nil {
			published = *a.PublishedAt
		}
		keywords := "Nordic news"
		if len(a.Keywords) > 0 {
			keywords = strings.Join(a.Keywords, ", ")
		}
		u := siteURL{
			Loc: SiteURL + "/article/" + a.Slug,
			News: &newsEntry{
				Publication:     newsPublication{Name: publicationName, Language: "en"},
				PublicationDate: published.UTC().Format(time.RFC3339),
				Title:           a.Title,
				Keywords:        keywords,
			},
		}
		if img := a.ImageURL(); img != "" {
			caption := a.Title
			if a.FeaturedImageCaption != nil && *a.FeaturedImageCaption != "" {
				caption = *a.FeaturedImageCaption
			}
			u.Image = &imageTag{Loc: img, Title: a.Title, Caption: caption}
		}
		set.URLs = append(set.URLs, u)
	}
	return xmlDocument(set, "public, max-age=300")
}
