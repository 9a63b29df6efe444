// Package enrich derives display fields from stored articles. Every function
// is pure given an explicit current time, so primary, fallback and legacy
// API paths render identical strings for the same row.
package enrich

import (
	"fmt"
	"html"
	"strings"
	"time"
	_ "time/tzdata" // Europe/London must resolve on minimal images
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Excerpt lengths.
const (
	DefaultExcerptLength   = 150
	CondensedExcerptLength = 100
)

// Ellipsis is appended to truncated excerpts.
const Ellipsis = "…"

var strip = bluemonday.StrictPolicy()

// PlainText removes markup, decodes entities and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(strip.Sanitize(s))), " ")
}

// Excerpt shortens the plain text of s to at most maxLen runes plus the
// ellipsis, cutting at the last whitespace inside the limit when there is
// one after the first rune.
func Excerpt(s string, maxLen int) string {
	text := PlainText(s)
	r := []rune(text)
	if maxLen <= 0 || len(r) <= maxLen {
		return text
	}

	cut := r[:maxLen]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			return strings.TrimRightFunc(string(cut[:i]), unicode.IsSpace) + Ellipsis
		}
	}
	return string(cut) + Ellipsis
}

// London is the zone dates are displayed in; the en-GB audience expects it.
var London = mustZone("Europe/London")

func mustZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatDate renders t in the en-GB long form, e.g. "2 January 2026 at 15:04".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(London).Format("2 January 2006 at 15:04")
}

// RelativeTime renders the age of t at now using floor arithmetic. Ages of
// a week or more fall back to FormatDate. Future timestamps read as
// "0 minutes ago".
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}
	age := max(now.Sub(*t), 0)

	switch {
	case age < time.Hour:
		return ago(int(age/time.Minute), "minute")
	case age < 24*time.Hour:
		return ago(int(age/time.Hour), "hour")
	case age < 7*24*time.Hour:
		return ago(int(age/(24*time.Hour)), "day")
	default:
		return FormatDate(t)
	}
}

func ago(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// CountryName looks up a code, passing unknown codes through.
func CountryName(code domain.Country) string { return code.Name() }

// CategoryLabel looks up a section code, passing unknown codes through.
func CategoryLabel(code domain.Category) string { return code.Label() }

// CanonicalPath is the site-relative URL of an article.
func CanonicalPath(slug string) string { return "/article/" + slug }

// Pipeline applies the derivations with a fixed notion of now.
type Pipeline struct {
	Now func() time.Time
}

// New returns a pipeline driven by time.Now.
func New() Pipeline { return Pipeline{Now: time.Now} }

// Process derives the display form of a. Keywords is never nil in the
// result.
func (p Pipeline) Process(a domain.Article, excerptLen int) domain.ProcessedArticle {
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	return domain.ProcessedArticle{
		Article:              a,
		Excerpt:              Excerpt(a.SummaryText(), excerptLen),
		PublishedAtFormatted: FormatDate(a.PublishedAt),
		RelativeTime:         RelativeTime(a.PublishedAt, p.Clock()),
		CountryName:          CountryName(a.Country),
		CategoryDisplay:      CategoryLabel(a.Category),
		URLSlug:              CanonicalPath(a.Slug),
	}
}

// ProcessAll maps Process over rows and never returns nil.
func (p Pipeline) ProcessAll(rows []domain.Article, excerptLen int) []domain.ProcessedArticle {
	out := make([]domain.ProcessedArticle, len(rows))
	now := p.Clock()
	fixed := Pipeline{Now: func() time.Time { return now }}
	for i := range rows {
		out[i] = fixed.Process(rows[i], excerptLen)
	}
	return out
}

// Clock is the pipeline's current time.
func (p Pipeline) Clock() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
