package articlepage

import (
	"regexp"
	"strings"
	"time"
)

const (
	brandSuffix   = " | Nordics Today"
	maxTitleRunes = 60
	minBreakRunes = 30
)

var possessive = regexp.MustCompile(`(?i)^([^:]+?)['’]s\s+(.+)$`)

// SEOTitle builds the <title> of an article page: the leading
// "Country's" possessive before a colon and a leading country name are
// dropped, the publication day and the brand are appended, and the result
// is clamped to 60 characters at a word or dash break.
func SEOTitle(title, countryName string, publishedAt *time.Time) string {
	base := collapse(title)

	if left, right, ok := strings.Cut(base, ":"); ok && strings.TrimSpace(right) != "" {
		left = collapse(left)
		if m := possessive.FindStringSubmatch(left); m != nil {
			left = m[2]
		}
		base = collapse(left + " " + right)
	}

	if countryName != "" && strings.HasPrefix(strings.ToLower(base), strings.ToLower(countryName)) {
		base = collapse(base[len(countryName):])
	}

	if publishedAt != nil {
		base += " (" + publishedAt.UTC().Format("Jan 2") + ")"
	}
	return clamp(base+brandSuffix, maxTitleRunes)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clamp(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	r = r[:max]

	cut := -1
	for i, c := range r {
		if c == ' ' || c == '-' || c == '—' {
			cut = i
		}
	}
	if cut < minBreakRunes {
		return strings.TrimSpace(string(r))
	}
	return strings.TrimSpace(string(r[:cut]))
}
