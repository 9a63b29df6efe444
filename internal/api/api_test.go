package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/nordicstoday/nordics-today/infrastructure/gin"
	"github.com/nordicstoday/nordics-today/infrastructure/jwt"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/infrastructure/metrics"
	"github.com/nordicstoday/nordics-today/internal/api"
	"github.com/nordicstoday/nordics-today/internal/articles"
	"github.com/nordicstoday/nordics-today/internal/articles/articlestest"
	"github.com/nordicstoday/nordics-today/internal/cache"
	"github.com/nordicstoday/nordics-today/internal/contribute"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/pages"
	"github.com/nordicstoday/nordics-today/internal/push"
	"github.com/nordicstoday/nordics-today/internal/seo"
)

const secret = "admin-secret"

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type authors struct{}

func (authors) ActiveBySlug(context.Context, string) (*domain.Author, error) {
	return nil, domain.ErrNotFound
}

type subscriptions struct {
	email string
	err   error
}

func (s *subscriptions) Subscribe(_ context.Context, email, _, _ string) (string, error) {
	s.email = email
	if s.err != nil {
		return "", s.err
	}
	return newsletter.MsgSubscribed, nil
}

func (s *subscriptions) Unsubscribe(_ context.Context, email string) (string, error) {
	s.email = email
	return newsletter.MsgUnsubscribed, s.err
}

type pushStub struct {
	sub       domain.PushSubscription
	userAgent string
	sent      push.Notification
}

func (p *pushStub) Subscribe(_ context.Context, sub domain.PushSubscription, ua string) error {
	if sub.P256dh == "" || sub.Auth == "" {
		return push.ErrInvalidSubscription
	}
	p.sub, p.userAgent = sub, ua
	return nil
}

func (p *pushStub) Unsubscribe(context.Context, string) error { return nil }

func (p *pushStub) Broadcast(_ context.Context, n push.Notification) (push.Result, error) {
	p.sent = n
	return push.Result{Sent: 3, Total: 3}, nil
}

type submissions struct{ err error }

func (s submissions) Submit(context.Context, contribute.Form) (string, error) {
	return "sub-1", s.err
}

type digestStub struct{ err error }

func (d digestStub) Run(context.Context) (newsletter.DigestResult, error) {
	return newsletter.DigestResult{Subject: "Week in the Nordics"}, d.err
}

type fixture struct {
	engine *gin.Engine
	repo   *articlestest.Memory
	store  *cache.Store
	subs   *subscriptions
	push   *pushStub
}

func corpus() []domain.Article {
	var rows []domain.Article
	for i, c := range domain.Countries {
		rows = append(rows,
			articlestest.Article(string(c)+"-1", c, domain.Politics, now.Add(-time.Duration(i+1)*time.Hour)),
			articlestest.Article(string(c)+"-2", c, domain.Business, now.Add(-time.Duration(i+10)*time.Hour)),
		)
	}
	return rows
}

func newFixture(t *testing.T, mutate func(*api.Deps)) fixture {
	t.Helper()

	repo := articlestest.NewMemory(corpus()...)
	store := cache.New()
	t.Cleanup(store.Close)
	svc := articles.NewService(repo, store, logger.NewNop(),
		articles.WithPipeline(enrich.Pipeline{Now: func() time.Time { return now }}),
		articles.WithViewCounter(repo))

	f := fixture{repo: repo, store: store, subs: &subscriptions{}, push: &pushStub{}}
	reg := prometheus.NewRegistry()
	deps := api.Deps{
		Articles:   svc,
		Pages:      pages.NewLoader(svc, authors{}, logger.NewNop()),
		SEO:        seo.NewBuilder(svc, logger.NewNop(), seo.WithClock(func() time.Time { return now })),
		Newsletter: f.subs,
		Digest:     digestStub{},
		Push:       f.push,
		Contribute: submissions{},
		Cache:      store,
		Gatherer:   reg,
		HTTP:       metrics.NewHTTP(reg, "nordics"),
		JWTSecret:  secret,
	}
	if mutate != nil {
		mutate(&deps)
	}

	r := api.NewRouter(deps, logger.NewNop())
	e := gin.New()
	e.RedirectTrailingSlash = false
	e.Use(r.Middleware()...)
	r.RegisterRoutes(e)
	f.engine = e
	return f
}

func (f fixture) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// recordingLogger keeps error entries with the fields bound through With.
type recordingLogger struct {
	logger.NoOpLogger
	bound   []logger.Field
	entries *[]map[string]string
}

func (l *recordingLogger) With(fields ...logger.Field) logger.Logger {
	return &recordingLogger{bound: append(append([]logger.Field{}, l.bound...), fields...), entries: l.entries}
}

func (l *recordingLogger) Error(msg string, _ ...logger.Field) {
	e := map[string]string{"msg": msg}
	for _, f := range l.bound {
		e[f.Key] = f.String
	}
	*l.entries = append(*l.entries, e)
}

func TestHandlerErrorsCarryRequestID(t *testing.T) {
	var entries []map[string]string
	rec := &recordingLogger{entries: &entries}

	r := api.NewRouter(api.Deps{Newsletter: &subscriptions{err: errors.New("db down")}}, logger.NewNop())
	e := gin.New()
	e.Use(infragin.RequestIDLoggerMiddleware(rec))
	r.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodPost, "/api/newsletter/subscribe", strings.NewReader(`{"email":"a@b.co"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(infragin.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, entries, 1)
	assert.Equal(t, "Newsletter subscribe failed", entries[0]["msg"])
	assert.Equal(t, "req-42", entries[0][infragin.RequestIDKey])
}

func TestLegacyArticles(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/articles?country=NO&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]api.LegacyArticle](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, "NO-1", got[0].ID, "newest first")
	assert.Equal(t, "Norway", got[0].CountryName)
	assert.Equal(t, "/article/story-NO-1", got[0].URLSlug)
	assert.Equal(t, got[0].FeaturedImageURL, got[0].ImageURL)
	assert.Equal(t, "Summary of NO-1", got[0].Summary)

	w = f.do(t, http.MethodGet, "/api/articles?limit=3&offset=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]api.LegacyArticle](t, w), 3)
}

func TestLegacyArticles_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		outage bool
		want   int
		body   string
	}{
		{"bad country", "/api/articles?country=DE", false, http.StatusBadRequest, ""},
		{"bad category", "/api/articles?category=gossip", false, http.StatusBadRequest, ""},
		{"outage", "/api/articles", true, http.StatusInternalServerError, `{"error":"Failed to fetch articles"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tt.outage {
				f.repo.ListErr = articlestest.ErrUnavailable
			}
			w := f.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.want, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestLegacyArticles_SummaryFallsBackToBody(t *testing.T) {
	a := domain.ProcessedArticle{Article: domain.Article{ID: "x", Content: "<p>Plain <b>body</b> text</p>"}}
	assert.Equal(t, "Plain body text", api.ToLegacy(a).Summary)
}

func TestLegacyArticles_ExcerptMatchesPipeline(t *testing.T) {
	summary := "<p>" + strings.Repeat("word ", 60) + "</p>"
	p := enrich.New().Process(domain.Article{ID: "x", Slug: "x", Summary: &summary}, enrich.DefaultExcerptLength)

	legacy := api.ToLegacy(p)
	assert.Equal(t, p.Excerpt, legacy.Excerpt)
	assert.True(t, strings.HasSuffix(legacy.Excerpt, "…"))
	assert.NotContains(t, legacy.Excerpt, "<p>")
	assert.LessOrEqual(t, len([]rune(legacy.Excerpt)), enrich.DefaultExcerptLength+1)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, nil)
	const tooShort = `{"success":false,"error":"Search term must be at least 2 characters long"}`

	w := f.do(t, http.MethodGet, "/api/search?q=%20a%20", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, tooShort, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/search", `{"searchTerm":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, tooShort, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/search?q=Story%20SE&country=SE", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Success bool `json:"success"`
		Data    struct {
			Articles   []domain.ProcessedArticle `json:"articles"`
			Pagination domain.PaginationInfo     `json:"pagination"`
			SearchTerm string                    `json:"searchTerm"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "Story SE", got.Data.SearchTerm)
	assert.Len(t, got.Data.Articles, 2)
	assert.Equal(t, 2, got.Data.Pagination.TotalArticles)

	w = f.do(t, http.MethodPost, "/api/search", `{"searchTerm":"Story","filters":{"category":"business"},"limit":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "published_at", data["sortBy"])
	assert.Equal(t, "desc", data["sortOrder"])
	assert.Len(t, data["articles"], 2)
}

func TestPages(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/pages/home", http.StatusOK},
		{"/api/pages/country/sweden", http.StatusOK},
		{"/api/pages/country/germany", http.StatusNotFound},
		{"/api/pages/country/norway/politics", http.StatusOK},
		{"/api/pages/category/politics", http.StatusOK},
		{"/api/pages/category/gossip", http.StatusNotFound},
		{"/api/pages/category/politics?country=DE", http.StatusBadRequest},
		{"/api/pages/city/oslo", http.StatusOK},
		{"/api/pages/city/paris", http.StatusNotFound},
		{"/api/pages/article/story-SE-1", http.StatusOK},
		{"/api/pages/article/missing", http.StatusNotFound},
		{"/api/pages/search?q=Story", http.StatusOK},
		{"/api/pages/author/nobody", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, f.do(t, http.MethodGet, tt.target, "").Code)
		})
	}
}

func TestSecurityAndCacheHeaders(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/pages/article/story-SE-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "public, max-age=3600, s-maxage=7200", w.Header().Get("Cache-Control"))

	w = f.do(t, http.MethodGet, "/api/pages/country/norway", "")
	assert.Equal(t, "public, max-age=1800, s-maxage=3600", w.Header().Get("Cache-Control"))

	w = f.do(t, http.MethodGet, "/api/pages/article/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("X-Frame-Options"), "only 200 responses are decorated")
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestCacheControlFor(t *testing.T) {
	tests := map[string]string{
		"/favicon.ico":            "public, max-age=31536000, immutable",
		"/assets/app.woff2":       "public, max-age=31536000, immutable",
		"/article/a-story":        "public, max-age=3600, s-maxage=7200",
		"/sweden":                 "public, max-age=1800, s-maxage=3600",
		"/sweden/politics":        "",
		"/api/pages/home":         "",
		"/api/pages/country/oslo": "",
	}
	for path, want := range tests {
		assert.Equal(t, want, api.CacheControlFor(path), path)
	}
}

func TestRedirects(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		target   string
		location string
	}{
		{"/api/articles/?country=SE", "/api/articles?country=SE"},
		{"/sweden/", "/sweden"},
		{"/news", "/"},
		{"/posts", "/"},
		{"/se", "/sweden"},
		{"/is", "/iceland"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusMovedPermanently, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
			assert.Equal(t, "max-age=31536000, public", w.Header().Get("Cache-Control"))
		})
	}

	assert.NotEqual(t, http.StatusMovedPermanently, f.do(t, http.MethodGet, "/robots.txt", "").Code)
}

func TestSEORoutes(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		target      string
		contentType string
		contains    string
	}{
		{"/sitemap.xml", seo.ContentTypeXML, "<sitemapindex"},
		{"/sitemap-pages.xml", seo.ContentTypeXML, "https://nordicstoday.com/sweden"},
		{"/sitemap-articles.xml", seo.ContentTypeXML, "/article/story-SE-1"},
		{"/news-sitemap.xml", seo.ContentTypeXML, "<news:news>"},
		{"/rss.xml", seo.ContentTypeRSS, "<rss"},
		{"/robots.txt", seo.ContentTypePlain, "Disallow: /api/"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.NotEmpty(t, w.Header().Get("Cache-Control"))
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/api/pages/home", "")

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `nordics_http_requests_total{method="GET",route="/api/pages/home",status="200"} 1`)
}

func TestNewsletterRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/newsletter/subscribe", `{"email":"Reader@Example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Successfully subscribed!"}`, w.Body.String())

	f.subs.err = newsletter.ErrInvalidEmail
	w = f.do(t, http.MethodPost, "/api/newsletter/subscribe", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Valid email is required"}`, w.Body.String())

	f.subs.err = errors.New("db down")
	w = f.do(t, http.MethodPost, "/api/newsletter/subscribe", `{"email":"a@b.co"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to subscribe"}`, w.Body.String())

	f.subs.err = nil
	w = f.do(t, http.MethodPost, "/api/newsletter/unsubscribe", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPost, "/api/newsletter/unsubscribe", `{"email":"a@b.co"}`)
	assert.JSONEq(t, `{"success":true,"message":"Successfully unsubscribed."}`, w.Body.String())
}

func TestPushRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/push/subscribe", `{"keys":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/push/subscribe",
		`{"endpoint":"https://push.example/1","keys":{"p256dh":"pk","auth":"ak"}}`,
		"User-Agent", "Firefox/130")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pk", f.push.sub.P256dh)
	assert.Equal(t, "Firefox/130", f.push.userAgent)

	w = f.do(t, http.MethodDelete, "/api/push/subscribe", `{}`)
	assert.JSONEq(t, `{"error":"Missing endpoint"}`, w.Body.String())
	w = f.do(t, http.MethodDelete, "/api/push/subscribe", `{"endpoint":"https://push.example/1"}`)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestContribute(t *testing.T) {
	f := newFixture(t, func(d *api.Deps) {
		d.Contribute = submissions{err: &contribute.ValidationError{Message: "Please select at least one topic."}}
	})
	w := f.do(t, http.MethodPost, "/api/contribute", `{"name":"A"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Please select at least one topic."}`, w.Body.String())

	f = newFixture(t, nil)
	w = f.do(t, http.MethodPost, "/api/contribute", `{"name":"A"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sub-1", decode[map[string]any](t, w)["id"])
}

func TestWriteEndpointsAreRateLimited(t *testing.T) {
	f := newFixture(t, func(d *api.Deps) {
		d.WriteLimiter = api.NewRateLimiter(1, 2)
	})

	body := `{"email":"a@b.co"}`
	for range 2 {
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/newsletter/subscribe", body).Code)
	}
	w := f.do(t, http.MethodPost, "/api/newsletter/subscribe", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/articles", "").Code, "reads are not limited")
}

func TestAdminRoutes(t *testing.T) {
	token, err := jwt.Issue(secret, "editor@nordicstoday.com", time.Hour)
	require.NoError(t, err)
	bearer := []string{"Authorization", "Bearer " + token}

	t.Run("requires token", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/admin/cache/purge", "").Code)
	})

	t.Run("purge", func(t *testing.T) {
		f := newFixture(t, nil)
		f.store.Set("a", 1)
		f.store.Set("b", 2)
		w := f.do(t, http.MethodPost, "/api/admin/cache/purge", "", bearer...)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"purged":2}`, w.Body.String())
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("push send", func(t *testing.T) {
		f := newFixture(t, nil)
		w := f.do(t, http.MethodPost, "/api/admin/push/send", `{"title":"Hi"}`, bearer...)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = f.do(t, http.MethodPost, "/api/admin/push/send", `{"title":"Hi","body":"There"}`, bearer...)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "There", f.push.sent.Body)
	})

	t.Run("digest", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{nil, http.StatusOK},
			{newsletter.ErrAlreadySent, http.StatusConflict},
			{newsletter.ErrNoArticles, http.StatusOK},
			{errors.New("llm down"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			f := newFixture(t, func(d *api.Deps) { d.Digest = digestStub{err: tt.err} })
			assert.Equal(t, tt.want, f.do(t, http.MethodPost, "/api/admin/newsletter/digest", "", bearer...).Code)
		}
	})

	t.Run("newsletter send without mailer", func(t *testing.T) {
		f := newFixture(t, nil)
		w := f.do(t, http.MethodPost, "/api/admin/newsletter/send", `{"subject":"s","html":"<p>h</p>"}`, bearer...)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
