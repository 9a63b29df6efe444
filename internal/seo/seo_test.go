package seo_test

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/articles"
	"github.com/nordicstoday/nordics-today/internal/articles/articlestest"
	"github.com/nordicstoday/nordics-today/internal/cache"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
	"github.com/nordicstoday/nordics-today/internal/seo"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newBuilder(t *testing.T, rows ...domain.Article) (*seo.Builder, *articlestest.Memory) {
	t.Helper()
	repo := articlestest.NewMemory(rows...)
	store := cache.New()
	t.Cleanup(store.Close)
	svc := articles.NewService(repo, store, logger.NewNop(),
		articles.WithPipeline(enrich.Pipeline{Now: func() time.Time { return now }}),
		articles.WithMetrics(articles.NewMetrics(prometheus.NewRegistry())),
	)
	return seo.NewBuilder(svc, logger.NewNop(), seo.WithClock(func() time.Time { return now })), repo
}

type urlset struct {
	URLs []struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod"`
		ChangeFreq string `xml:"changefreq"`
		Priority   string `xml:"priority"`
		News       *struct {
			Title    string `xml:"title"`
			Keywords string `xml:"keywords"`
		} `xml:"news"`
		Image *struct {
			Loc     string `xml:"loc"`
			Caption string `xml:"caption"`
		} `xml:"image"`
	} `xml:"url"`
}

func parse(t *testing.T, doc seo.Document) urlset {
	t.Helper()
	var set urlset
	require.NoError(t, xml.Unmarshal(doc.Body, &set))
	return set
}

func TestSitemapIndex(t *testing.T) {
	b, _ := newBuilder(t)

	doc, err := b.SitemapIndex()
	require.NoError(t, err)

	body := string(doc.Body)
	assert.True(t, strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, body, "<loc>https://nordicstoday.com/sitemap-pages.xml</loc>")
	assert.Contains(t, body, "<loc>https://nordicstoday.com/news-sitemap.xml</loc>")
	assert.Contains(t, body, "<lastmod>2026-03-02T12:00:00Z</lastmod>")
	assert.Equal(t, "public, max-age=3600", doc.CacheControl)
	assert.Equal(t, seo.ContentTypeXML, doc.ContentType)
}

func TestPagesSitemap(t *testing.T) {
	b, _ := newBuilder(t)

	doc, err := b.PagesSitemap()
	require.NoError(t, err)

	set := parse(t, doc)
	assert.Len(t, set.URLs, 6+5+7+20)
	assert.Equal(t, "https://nordicstoday.com", set.URLs[0].Loc)
	assert.Contains(t, seo.StaticPaths(), "/iceland/society")
	assert.Contains(t, seo.StaticPaths(), "/malmo")
}

func TestArticlesSitemap(t *testing.T) {
	old := articlestest.Article("old", domain.Norway, domain.Tech, now.Add(-72*time.Hour))
	undated := articlestest.Article("undated", domain.Sweden, domain.Tech, now)
	undated.PublishedAt = nil
	b, _ := newBuilder(t, old, undated)

	doc, err := b.ArticlesSitemap(context.Background())
	require.NoError(t, err)

	set := parse(t, doc)
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://nordicstoday.com/article/story-old", set.URLs[0].Loc)
	assert.Equal(t, "2026-02-27", set.URLs[0].LastMod)
	assert.Equal(t, "weekly", set.URLs[0].ChangeFreq)
	assert.Equal(t, "0.7", set.URLs[0].Priority)
	assert.Equal(t, "2026-03-02", set.URLs[1].LastMod, "undated stories use today")
	assert.Equal(t, "public, max-age=1800", doc.CacheControl)
}

func TestArticlesSitemap_PagesThroughBatches(t *testing.T) {
	var rows []domain.Article
	for i := range seo.ArticleBatch + 5 {
		rows = append(rows, articlestest.Article(fmt.Sprint(i), domain.Finland, domain.Society, now.Add(-time.Duration(i)*time.Minute)))
	}
	b, repo := newBuilder(t, rows...)

	doc, err := b.ArticlesSitemap(context.Background())
	require.NoError(t, err)

	assert.Len(t, parse(t, doc).URLs, seo.ArticleBatch+5)
	_, lists, _ := repo.Calls()
	assert.Equal(t, 2, lists)
}

func TestArticlesSitemap_StopsAtDegradedPage(t *testing.T) {
	var rows []domain.Article
	for i := range 2*seo.ArticleBatch + 5 {
		rows = append(rows, articlestest.Article(fmt.Sprint(i), domain.Norway, domain.Business, now.Add(-time.Duration(i)*time.Minute)))
	}
	b, repo := newBuilder(t, rows...)
	repo.ListErrs = []error{nil, articlestest.ErrUnavailable}

	doc, err := b.ArticlesSitemap(context.Background())
	require.NoError(t, err)

	set := parse(t, doc)
	require.Len(t, set.URLs, seo.ArticleBatch)
	seen := make(map[string]bool, len(set.URLs))
	for _, u := range set.URLs {
		assert.False(t, seen[u.Loc], "duplicate %s", u.Loc)
		seen[u.Loc] = true
	}
}

func TestArticlesSitemap_FailureRendersFallback(t *testing.T) {
	b, repo := newBuilder(t, articlestest.Article("a", domain.Sweden, domain.Tech, now))
	repo.ListErr = errors.New("unexpected")

	doc, err := b.ArticlesSitemap(context.Background())
	require.NoError(t, err)

	set := parse(t, doc)
	require.Len(t, set.URLs, 1)
	assert.Equal(t, "https://nordicstoday.com/", set.URLs[0].Loc)
	assert.Empty(t, doc.CacheControl)
}

func TestNewsSitemap(t *testing.T) {
	fresh := articlestest.Article("fresh", domain.Denmark, domain.Politics, now.Add(-time.Hour))
	fresh.Keywords = []string{"Folketing", "budget"}
	fresh.Title = "Budget & tax <deal>"
	stale := articlestest.Article("stale", domain.Denmark, domain.Politics, now.Add(-49*time.Hour))
	plain := articlestest.Article("plain", domain.Iceland, domain.Culture, now.Add(-2*time.Hour))
	plain.FeaturedImageURL = nil
	b, _ := newBuilder(t, fresh, stale, plain)

	doc, err := b.NewsSitemap(context.Background())
	require.NoError(t, err)

	assert.Contains(t, string(doc.Body), "Budget &amp; tax &lt;deal&gt;")
	set := parse(t, doc)
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://nordicstoday.com/article/story-fresh", set.URLs[0].Loc)
	require.NotNil(t, set.URLs[0].News)
	assert.Equal(t, "Folketing, budget", set.URLs[0].News.Keywords)
	require.NotNil(t, set.URLs[0].Image)
	assert.Equal(t, "Budget & tax <deal>", set.URLs[0].Image.Caption)
	assert.Equal(t, "Nordic news", set.URLs[1].News.Keywords)
	assert.Nil(t, set.URLs[1].Image)
	assert.Equal(t, "public, max-age=300", doc.CacheControl)
}

func TestNewsSitemap_FailureRendersFallback(t *testing.T) {
	b, repo := newBuilder(t)
	repo.ListErr = articlestest.ErrUnavailable

	doc, err := b.NewsSitemap(context.Background())
	require.NoError(t, err)

	set := parse(t, doc)
	require.Len(t, set.URLs, 1)
	assert.Equal(t, "News sitemap temporarily unavailable", set.URLs[0].News.Title)
}

func TestRobots(t *testing.T) {
	doc := seo.Robots()

	assert.Contains(t, string(doc.Body), "Disallow: /api/")
	assert.Contains(t, string(doc.Body), "Sitemap: https://nordicstoday.com/news-sitemap.xml")
	assert.Equal(t, "Host", doc.Vary)
	assert.Equal(t, seo.ContentTypePlain, doc.ContentType)
}

func TestFeed(t *testing.T) {
	var rows []domain.Article
	for i := range seo.FeedLimit + 10 {
		rows = append(rows, articlestest.Article(fmt.Sprint(i), domain.Sweden, domain.Business, now.Add(-time.Duration(i)*time.Hour)))
	}
	b, _ := newBuilder(t, rows...)

	doc, err := b.Feed(context.Background())
	require.NoError(t, err)

	body := string(doc.Body)
	assert.Equal(t, seo.FeedLimit, strings.Count(body, "<item>"))
	assert.Contains(t, body, "<link>https://nordicstoday.com/article/story-0</link>")
	assert.Contains(t, body, "<title>Nordics Today</title>")
}

func TestMarshalJSONLD_EscapesScriptBreakers(t *testing.T) {
	out, err := seo.MarshalJSONLD(map[string]string{"headline": "</script>&\u2028\u2029"})
	require.NoError(t, err)

	assert.Equal(t, `{"headline":"\u003c/script\u003e\u0026\u2028\u2029"}`, string(out))
}
