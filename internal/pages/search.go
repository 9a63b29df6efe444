package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/articles"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

const searchLimit = 12

// SearchPage is the document behind /search?q=.
type SearchPage struct {
	Articles     []domain.ProcessedArticle `json:"articles"`
	Pagination   *domain.PaginationInfo    `json:"pagination"`
	Query        string                    `json:"query"`
	TotalResults int                       `json:"totalResults"`
	Error        string                    `json:"error,omitempty"`
}

// Search runs a site search. A blank query is an empty result without
// pagination.
func (l *Loader) Search(ctx context.Context, q string, page int) SearchPage {
	q = strings.TrimSpace(q)
	if q == "" {
		return SearchPage{Articles: []domain.ProcessedArticle{}}
	}

	resp, err := l.articles.FetchArticles(ctx, domain.Filters(domain.WithSearch(q)), page, searchLimit)
	if err != nil {
		l.log.Error("Search failed", logger.Error(err))
		return SearchPage{
			Articles: []domain.ProcessedArticle{},
			Query:    q,
			Error:    "Search temporarily unavailable. Please try again later.",
		}
	}

	pagination := resp.Pagination
	return SearchPage{
		Articles:     resp.Articles,
		Pagination:   &pagination,
		Query:        q,
		TotalResults: resp.Pagination.TotalArticles,
		Error:        resp.Error,
	}
}

// AuthorPage is the document behind /author/:slug.
type AuthorPage struct {
	Author   domain.Author             `json:"author"`
	Articles []domain.ProcessedArticle `json:"articles"`
	Meta     Meta                      `json:"meta"`
}

// Author builds the profile page of an active author. Unknown or inactive
// authors yield domain.ErrNotFound.
func (l *Loader) Author(ctx context.Context, slug string) (AuthorPage, error) {
	author, err := l.authors.ActiveBySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return AuthorPage{}, fmt.Errorf("author %q: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return AuthorPage{}, fmt.Errorf("load author %q: %w", slug, err)
	}

	list, err := l.articles.FetchArticlesByAuthor(ctx, author.Slug, articles.AuthorLimit)
	if err != nil {
		return AuthorPage{}, fmt.Errorf("load articles of %q: %w", slug, err)
	}

	description := "Articles by " + author.Name + " on Nordics Today."
	if author.Bio != nil && *author.Bio != "" {
		description = *author.Bio
	}
	profile := *author
	profile.Email = nil
	return AuthorPage{
		Author:   profile,
		Articles: list,
		Meta: Meta{
			Title:       author.Name + " - Nordics Today",
			Description: description,
			Keywords:    append([]string{author.Name, "Nordic news"}, author.Specialties...),
			Image:       deref(author.ProfileImageURL),
		},
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
