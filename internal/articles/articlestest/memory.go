// Package articlestest provides an in-memory article repository that
// evaluates query descriptors, for tests of packages built on the article
// service.
package articlestest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nordicstoday/nordics-today/internal/database"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/query"
)

// ErrUnavailable is a data-layer failure for injecting outages.
var ErrUnavailable = fmt.Errorf("connection refused: %w", database.ErrDataLayer)

// Memory is a query.Descriptor interpreter over a fixed slice of articles.
type Memory struct {
	mu       sync.Mutex
	articles []domain.Article

	// CountErr and ListErr are returned by every Count or List call while
	// set. ListErrs, when non-empty, is consumed one entry per List call
	// before ListErr applies.
	CountErr error
	ListErr  error
	ListErrs []error

	counts  int
	lists   int
	gets    int
	views   map[string]int
	viewErr error
}

// NewMemory returns a repository over articles.
func NewMemory(articles ...domain.Article) *Memory {
	return &Memory{articles: articles, views: make(map[string]int)}
}

// Add appends articles.
func (m *Memory) Add(articles ...domain.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = append(m.articles, articles...)
}

// Calls reports how many Count, List and One calls ran.
func (m *Memory) Calls() (counts, lists, gets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts, m.lists, m.gets
}

// Views returns the recorded view increments for id.
func (m *Memory) Views(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[id]
}

// FailViews makes IncrementViewCount fail with err.
func (m *Memory) FailViews(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewErr = err
}

func (m *Memory) Count(_ context.Context, d query.Descriptor) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.match(d.Where)), nil
}

func (m *Memory) List(_ context.Context, d query.Descriptor) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if err := m.listErr(); err != nil {
		return nil, err
	}
	return m.page(d), nil
}

func (m *Memory) One(_ context.Context, d query.Descriptor) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if err := m.listErr(); err != nil {
		return nil, err
	}
	rows := m.page(d)
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

func (m *Memory) listErr() error {
	if len(m.ListErrs) > 0 {
		err := m.ListErrs[0]
		m.ListErrs = m.ListErrs[1:]
		return err
	}
	return m.ListErr
}

func (m *Memory) page(d query.Descriptor) []domain.Article {
	rows := m.match(d.Where)
	order(rows, d.OrderBy)

	if d.Offset >= len(rows) {
		return []domain.Article{}
	}
	rows = rows[d.Offset:]
	if d.Limit > 0 && len(rows) > d.Limit {
		rows = rows[:d.Limit]
	}
	return rows
}

func (m *Memory) IncrementViewCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewErr != nil {
		return m.viewErr
	}
	m.views[id]++
	return nil
}

func (m *Memory) match(where []query.Predicate) []domain.Article {
	out := make([]domain.Article, 0, len(m.articles))
	for _, a := range m.articles {
		if matchesAll(a, where) {
			out = append(out, a)
		}
	}
	return out
}

func matchesAll(a domain.Article, where []query.Predicate) bool {
	for _, p := range where {
		if !matches(a, p) {
			return false
		}
	}
	return true
}

func matches(a domain.Article, p query.Predicate) bool {
	switch {
	case p.SQL == "country = ?":
		return string(a.Country) == p.Args[0]
	case p.SQL == "category = ?":
		return string(a.Category) == p.Args[0]
	case p.SQL == "slug = ?":
		return a.Slug == p.Args[0]
	case p.SQL == "author_slug = ?":
		return a.AuthorSlug != nil && *a.AuthorSlug == p.Args[0]
	case p.SQL == "featured_image_url IS NOT NULL":
		return a.FeaturedImageURL != nil
	case p.SQL == "published_at >= ?":
		since, _ := p.Args[0].(time.Time)
		return a.PublishedAt != nil && !a.PublishedAt.Before(since)
	case strings.HasPrefix(p.SQL, "category NOT IN"):
		return !containsArg(p.Args, string(a.Category))
	case strings.HasPrefix(p.SQL, "category IN"):
		return containsArg(p.Args, string(a.Category))
	case strings.HasPrefix(p.SQL, "(title ILIKE"):
		term := strings.ToLower(unlike(p.Args[0].(string)))
		return strings.Contains(strings.ToLower(a.Title), term) ||
			strings.Contains(strings.ToLower(a.SummaryText()), term) ||
			strings.Contains(strings.ToLower(a.Content), term)
	default:
		panic("articlestest: unsupported predicate " + p.SQL)
	}
}

func containsArg(args []any, v string) bool {
	for _, a := range args {
		if a == v {
			return true
		}
	}
	return false
}

var likeUnescaper = strings.NewReplacer(`\\`, `\`, `\%`, `%`, `\_`, `_`)

func unlike(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "%")
	pattern = strings.TrimSuffix(pattern, "%")
	return likeUnescaper.Replace(pattern)
}

func order(rows []domain.Article, by []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range by {
			switch o {
			case query.MostViewedFirst:
				if rows[i].ViewCount != rows[j].ViewCount {
					return rows[i].ViewCount > rows[j].ViewCount
				}
			case query.NewestFirst:
				pi, pj := rows[i].PublishedAt, rows[j].PublishedAt
				switch {
				case pi == nil && pj == nil:
				case pi == nil:
					return false
				case pj == nil:
					return true
				case !pi.Equal(*pj):
					return pi.After(*pj)
				}
			}
		}
		return false
	})
}

// Article builds a fixture row published at.
func Article(id string, c domain.Country, cat domain.Category, published time.Time) domain.Article {
	img := "https://images.nordicstoday.com/" + id + ".jpg"
	summary := "Summary of " + id
	return domain.Article{
		ID:               id,
		Title:            "Story " + id,
		Content:          "<p>Body of " + id + "</p>",
		Summary:          &summary,
		Country:          c,
		Category:         cat,
		SourceName:       "Wire",
		Slug:             "story-" + id,
		PublishedAt:      &published,
		Keywords:         []string{},
		FeaturedImageURL: &img,
	}
}
