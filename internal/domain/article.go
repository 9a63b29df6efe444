// Package domain defines the records shared by every layer: articles, their
// display form, list responses and the lookup tables for countries,
// categories and cities.
package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a slug, country, category, city or author
// does not resolve.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned on unique-key conflicts.
var ErrAlreadyExists = errors.New("already exists")

// Article is the read-only projection of a published_articles row.
type Article struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Content              string     `json:"content,omitempty"`
	Summary              *string    `json:"summary"`
	Country              Country    `json:"country"`
	Category             Category   `json:"category"`
	SourceName           string     `json:"source_name"`
	OriginalURL          string     `json:"original_url,omitempty"`
	Slug                 string     `json:"slug"`
	PublishedAt          *time.Time `json:"published_at"`
	ViewCount            int64      `json:"view_count"`
	MetaDescription      *string    `json:"meta_description"`
	Keywords             []string   `json:"keywords"`
	FeaturedImageURL     *string    `json:"featured_image_url"`
	FeaturedImageAlt     *string    `json:"featured_image_alt"`
	FeaturedImageCaption *string    `json:"featured_image_caption"`
	ImageCredit          *string    `json:"image_credit"`
	AuthorName           *string    `json:"author_name,omitempty"`
	AuthorSlug           *string    `json:"author_slug,omitempty"`
	AuthorID             *string    `json:"author_id,omitempty"`
}

// SummaryText returns the summary or "".
func (a *Article) SummaryText() string {
	if a.Summary == nil {
		return ""
	}
	return *a.Summary
}

// ImageURL returns the featured image URL or "".
func (a *Article) ImageURL() string {
	if a.FeaturedImageURL == nil {
		return ""
	}
	return *a.FeaturedImageURL
}

// ProcessedArticle is an Article plus fields derived for display. The derived
// fields are recomputed on every read and never written back.
type ProcessedArticle struct {
	Article

	Excerpt              string `json:"excerpt"`
	PublishedAtFormatted string `json:"published_at_formatted"`
	RelativeTime         string `json:"relative_time"`
	CountryName          string `json:"country_name"`
	CategoryDisplay      string `json:"category_display"`
	// URLSlug is the canonical path, /article/<slug>.
	URLSlug string `json:"url_slug"`
}

// ArticleListResponse is the result of every list fetch. Error is set only
// when the response was produced by a degraded path.
type ArticleListResponse struct {
	Articles   []ProcessedArticle `json:"articles"`
	Pagination PaginationInfo     `json:"pagination"`
	Error      string             `json:"error,omitempty"`
}

// IDs returns the ids of the listed articles.
func (r ArticleListResponse) IDs() []string {
	ids := make([]string, len(r.Articles))
	for i := range r.Articles {
		ids[i] = r.Articles[i].ID
	}
	return ids
}
