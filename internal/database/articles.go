package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/query"
)

// ArticleRepository executes query descriptors against published_articles.
// Every error it returns comes from the database or the driver.
type ArticleRepository struct {
	db *sqlx.DB
}

func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

type articleRow struct {
	ID                   string         `db:"id"`
	Title                string         `db:"title"`
	Content              *string        `db:"content"`
	Summary              *string        `db:"summary"`
	Country              string         `db:"country"`
	Category             string         `db:"category"`
	SourceName           *string        `db:"source_name"`
	OriginalURL          *string        `db:"original_url"`
	Slug                 string         `db:"slug"`
	PublishedAt          *time.Time     `db:"published_at"`
	ViewCount            int64          `db:"view_count"`
	MetaDescription      *string        `db:"meta_description"`
	Keywords             pq.StringArray `db:"keywords"`
	FeaturedImageURL     *string        `db:"featured_image_url"`
	FeaturedImageAlt     *string        `db:"featured_image_alt"`
	FeaturedImageCaption *string        `db:"featured_image_caption"`
	ImageCredit          *string        `db:"image_credit"`
	AuthorName           *string        `db:"author_name"`
	AuthorSlug           *string        `db:"author_slug"`
	AuthorID             *string        `db:"author_id"`
}

func (r articleRow) toDomain() domain.Article {
	kw := []string(r.Keywords)
	if kw == nil {
		kw = []string{}
	}
	return domain.Article{
		ID:                   r.ID,
		Title:                r.Title,
		Content:              deref(r.Content),
		Summary:              r.Summary,
		Country:              domain.Country(r.Country),
		Category:             domain.Category(r.Category),
		SourceName:           deref(r.SourceName),
		OriginalURL:          deref(r.OriginalURL),
		Slug:                 r.Slug,
		PublishedAt:          utc(r.PublishedAt),
		ViewCount:            r.ViewCount,
		MetaDescription:      r.MetaDescription,
		Keywords:             kw,
		FeaturedImageURL:     r.FeaturedImageURL,
		FeaturedImageAlt:     r.FeaturedImageAlt,
		FeaturedImageCaption: r.FeaturedImageCaption,
		ImageCredit:          r.ImageCredit,
		AuthorName:           r.AuthorName,
		AuthorSlug:           r.AuthorSlug,
		AuthorID:             r.AuthorID,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Count runs a count descriptor.
func (r *ArticleRepository) Count(ctx context.Context, d query.Descriptor) (int, error) {
	d.Count = true
	q, args := d.SQL()

	var n int
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, translate("count articles", err)
	}
	return n, nil
}

// List runs a data descriptor. An empty result is an empty, non-nil slice.
func (r *ArticleRepository) List(ctx context.Context, d query.Descriptor) ([]domain.Article, error) {
	q, args := d.SQL()

	var rows []articleRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, translate("list articles", err)
	}

	out := make([]domain.Article, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// One runs a single-row descriptor and returns domain.ErrNotFound when
// nothing matches.
func (r *ArticleRepository) One(ctx context.Context, d query.Descriptor) (*domain.Article, error) {
	d.Limit = 1
	q, args := d.SQL()

	var row articleRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, translate("get article", err)
	}
	a := row.toDomain()
	return &a, nil
}

// IncrementViewCount bumps the counter through the increment_view_count
// function so concurrent readers never lose updates.
func (r *ArticleRepository) IncrementViewCount(ctx context.Context, articleID string) error {
	_, err := r.db.ExecContext(ctx, `SELECT increment_view_count($1)`, articleID)
	return translate("increment view count", err)
}
