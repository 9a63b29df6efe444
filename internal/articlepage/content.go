// Package articlepage shapes a single article for its page: body
// rearrangement around the ad slot, the SEO title, the og:locale and the
// NewsArticle structured data.
package articlepage

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

var ogLocales = map[domain.Country]string{
	domain.Sweden:  "en_SE",
	domain.Norway:  "en_NO",
	domain.Denmark: "en_DK",
	domain.Finland: "en_FI",
	domain.Iceland: "en_IS",
}

// OGLocale picks the og:locale by country code, then by English country
// name, defaulting to en_US.
func OGLocale(code, name string) string {
	if l, ok := ogLocales[domain.Country(strings.ToUpper(code))]; ok {
		return l
	}
	if c, ok := domain.CountryFromName(name); ok {
		return ogLocales[c]
	}
	return "en_US"
}

var readMore = regexp.MustCompile(`(?is)\s*(Read more:\s*<a[^>]*>.*?</a>\.?)`)

// SeparateReadMoreLinks moves every inline "Read more: <a>" link to a
// trailing block of paragraphs after a rule. Bodies without such links are
// returned unchanged.
func SeparateReadMoreLinks(html string) string {
	matches := readMore.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return html
	}
	cleaned := readMore.ReplaceAllString(html, "")

	links := make([]string, len(matches))
	for i, m := range matches {
		links[i] = `<p class="read-more-link">` + strings.TrimSpace(m[1]) + `</p>`
	}
	return cleaned + "\n<hr />\n" + strings.Join(links, "\n")
}

// Split is an article body cut at the in-content ad slot.
type Split struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

const blockSelector = "p, h1, h2, h3, h4, h5, h6, ul, ol, blockquote, div, table"

// adAfterParagraphs is how many paragraphs precede the ad slot.
const adAfterParagraphs = 3

// SplitContentForAd cuts html right after its third top-level paragraph.
// Bodies with three or fewer top-level blocks are not split.
func SplitContentForAd(html string) Split {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Split{Before: html}
	}
	body := doc.Find("body")
	if body.ChildrenFiltered(blockSelector).Length() <= adAfterParagraphs {
		return Split{Before: html}
	}

	var before, after strings.Builder
	paragraphs := 0
	body.Contents().Each(func(_ int, s *goquery.Selection) {
		out, renderErr := goquery.OuterHtml(s)
		if renderErr != nil {
			return
		}
		if paragraphs >= adAfterParagraphs {
			after.WriteString(out)
			return
		}
		before.WriteString(out)
		if goquery.NodeName(s) == "p" {
			paragraphs++
		}
	})
	return Split{Before: before.String(), After: after.String()}
}
