// Package query turns article filters into SQL descriptors for
// published_articles. Nothing here touches a database: descriptors are
// rendered to SQL text plus positional args and handed to the repository.
package query

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Table is the source relation for every article read.
const Table = "published_articles"

// ArticleColumns is the projection scanned into domain.Article.
var ArticleColumns = []string{
	"id", "title", "content", "summary", "country", "category",
	"source_name", "original_url", "slug", "published_at", "view_count",
	"meta_description", "keywords", "featured_image_url", "featured_image_alt",
	"featured_image_caption", "image_credit", "author_name", "author_slug", "author_id",
}

// Predicate is one WHERE conjunct written with '?' placeholders.
type Predicate struct {
	SQL  string
	Args []any
}

// Descriptor is an unexecuted SELECT over Table.
type Descriptor struct {
	// Count selects COUNT(*) instead of Columns and ignores ordering and
	// paging.
	Count   bool
	Columns []string
	Where   []Predicate
	OrderBy []string
	Limit   int
	Offset  int
}

// SQL renders the descriptor with $n placeholders.
func (d Descriptor) SQL() (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if d.Count {
		b.WriteString("COUNT(*)")
	} else {
		b.WriteString(strings.Join(d.Columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(Table)

	for i, p := range d.Where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(p.SQL)
		args = append(args, p.Args...)
	}

	if !d.Count {
		if len(d.OrderBy) > 0 {
			b.WriteString(" ORDER BY ")
			b.WriteString(strings.Join(d.OrderBy, ", "))
		}
		if d.Limit > 0 {
			b.WriteString(" LIMIT ?")
			args = append(args, d.Limit)
		}
		if d.Offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, d.Offset)
		}
	}

	return sqlx.Rebind(sqlx.DOLLAR, b.String()), args
}

// Orderings.
const (
	NewestFirst     = "published_at DESC NULLS LAST"
	MostViewedFirst = "view_count DESC"
)

// Predicates derives the WHERE conjuncts for f. Order is irrelevant to the
// result; it is fixed only to keep rendered SQL deterministic.
func Predicates(f domain.ArticleFilters) []Predicate {
	var ps []Predicate
	if f.Country != nil {
		ps = append(ps, Predicate{SQL: "country = ?", Args: []any{string(*f.Country)}})
	}
	if f.Category != nil {
		ps = append(ps, Predicate{SQL: "category = ?", Args: []any{string(*f.Category)}})
	}
	if f.Search != nil {
		pattern := "%" + EscapeLike(*f.Search) + "%"
		ps = append(ps, Predicate{
			SQL:  "(title ILIKE ? OR summary ILIKE ? OR content ILIKE ?)",
			Args: []any{pattern, pattern, pattern},
		})
	}
	if f.FeaturedOnly() {
		ps = append(ps, hasImage())
	}
	return ps
}

// Build returns the count and data descriptors for one page of a filtered
// listing. Both carry identical constraints.
func Build(f domain.ArticleFilters, limit, offset int) (count, data Descriptor) {
	where := Predicates(f)
	count = Descriptor{Count: true, Where: where}
	data = Descriptor{
		Columns: ArticleColumns,
		Where:   where,
		OrderBy: []string{NewestFirst},
		Limit:   limit,
		Offset:  offset,
	}
	return count, data
}

// Recent is the unfiltered newest-first query used by the fallback path.
func Recent(limit int) Descriptor {
	return Descriptor{Columns: ArticleColumns, OrderBy: []string{NewestFirst}, Limit: limit}
}

// Featured selects illustrated news stories, evergreen sections excluded.
func Featured(limit int) Descriptor {
	return Descriptor{
		Columns: ArticleColumns,
		Where:   []Predicate{hasImage(), notEvergreen()},
		OrderBy: []string{NewestFirst},
		Limit:   limit,
	}
}

// Trending selects the most viewed news stories published since since.
func Trending(since time.Time, limit int) Descriptor {
	return Descriptor{
		Columns: ArticleColumns,
		Where:   []Predicate{publishedSince(since), notEvergreen()},
		OrderBy: []string{MostViewedFirst, NewestFirst},
		Limit:   limit,
	}
}

// Popular selects the most viewed stories of any section since since.
func Popular(since time.Time, limit int) Descriptor {
	return Descriptor{
		Columns: ArticleColumns,
		Where:   []Predicate{publishedSince(since)},
		OrderBy: []string{MostViewedFirst},
		Limit:   limit,
	}
}

// PublishedSince lists stories newer than since, newest first, optionally
// restricted to categories.
func PublishedSince(since time.Time, limit int, categories ...domain.Category) Descriptor {
	where := []Predicate{publishedSince(since)}
	if len(categories) > 0 {
		where = append(where, categoryIn(categories))
	}
	return Descriptor{Columns: ArticleColumns, Where: where, OrderBy: []string{NewestFirst}, Limit: limit}
}

// BySlug selects a single article.
func BySlug(slug string) Descriptor {
	return Descriptor{
		Columns: ArticleColumns,
		Where:   []Predicate{{SQL: "slug = ?", Args: []any{slug}}},
		Limit:   1,
	}
}

// ByAuthor lists an author's stories, newest first.
func ByAuthor(authorSlug string, limit int) Descriptor {
	return Descriptor{
		Columns: ArticleColumns,
		Where:   []Predicate{{SQL: "author_slug = ?", Args: []any{authorSlug}}},
		OrderBy: []string{NewestFirst},
		Limit:   limit,
	}
}

func hasImage() Predicate {
	return Predicate{SQL: "featured_image_url IS NOT NULL"}
}

func publishedSince(t time.Time) Predicate {
	return Predicate{SQL: "published_at >= ?", Args: []any{t.UTC()}}
}

func notEvergreen() Predicate {
	p := categoryIn(domain.EvergreenCategories)
	p.SQL = "category NOT" + strings.TrimPrefix(p.SQL, "category")
	return p
}

func categoryIn(cs []domain.Category) Predicate {
	marks := make([]string, len(cs))
	args := make([]any, len(cs))
	for i, c := range cs {
		marks[i] = "?"
		args[i] = string(c)
	}
	return Predicate{SQL: "category IN (" + strings.Join(marks, ", ") + ")", Args: args}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike neutralises LIKE metacharacters so a search term matches
// literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
