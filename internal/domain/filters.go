package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Filter construction errors.
var (
	ErrUnknownFilterKey = errors.New("unknown filter key")
	ErrInvalidCountry   = errors.New("invalid country")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidFeatured  = errors.New("invalid featured flag")
)

// Filter keys accepted by NewArticleFilters.
const (
	FilterCountry  = "country"
	FilterCategory = "category"
	FilterSearch   = "search"
	FilterFeatured = "featured"
)

// ArticleFilters narrows a listing. A nil field is unconstrained; all set
// fields are AND-combined.
type ArticleFilters struct {
	Country  *Country
	Category *Category
	Search   *string
	Featured *bool
}

// FilterOption sets one field of ArticleFilters.
type FilterOption func(*ArticleFilters)

func WithCountry(c Country) FilterOption {
	return func(f *ArticleFilters) { f.Country = &c }
}

func WithCategory(c Category) FilterOption {
	return func(f *ArticleFilters) { f.Category = &c }
}

// WithSearch ignores blank terms.
func WithSearch(term string) FilterOption {
	return func(f *ArticleFilters) {
		if t := strings.TrimSpace(term); t != "" {
			f.Search = &t
		}
	}
}

func WithFeatured(v bool) FilterOption {
	return func(f *ArticleFilters) { f.Featured = &v }
}

// Filters builds ArticleFilters from options.
func Filters(opts ...FilterOption) ArticleFilters {
	var f ArticleFilters
	for _, o := range opts {
		o(&f)
	}
	return f
}

// NewArticleFilters builds filters from loosely typed input such as a query
// string. Unknown keys and unknown enum values are rejected; empty values
// are treated as absent.
func NewArticleFilters(in map[string]string) (ArticleFilters, error) {
	var f ArticleFilters
	for k, v := range in {
		v = strings.TrimSpace(v)
		switch k {
		case FilterCountry:
			if v == "" {
				continue
			}
			c, ok := ParseCountry(v)
			if !ok {
				return ArticleFilters{}, fmt.Errorf("%w: %q", ErrInvalidCountry, v)
			}
			f.Country = &c
		case FilterCategory:
			if v == "" {
				continue
			}
			c, ok := ParseCategory(v)
			if !ok {
				return ArticleFilters{}, fmt.Errorf("%w: %q", ErrInvalidCategory, v)
			}
			f.Category = &c
		case FilterSearch:
			if v != "" {
				f.Search = &v
			}
		case FilterFeatured:
			if v == "" {
				continue
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				return ArticleFilters{}, fmt.Errorf("%w: %q", ErrInvalidFeatured, v)
			}
			f.Featured = &b
		default:
			return ArticleFilters{}, fmt.Errorf("%w: %q", ErrUnknownFilterKey, k)
		}
	}
	return f, nil
}

// IsZero reports whether no constraint is set. Featured=false is no
// constraint either.
func (f ArticleFilters) IsZero() bool {
	return f.Country == nil && f.Category == nil && f.Search == nil && !f.FeaturedOnly()
}

// FeaturedOnly reports whether listings must carry a header image.
func (f ArticleFilters) FeaturedOnly() bool {
	return f.Featured != nil && *f.Featured
}
