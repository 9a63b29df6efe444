package domain

import "strings"

// Category is an editorial section code.
type Category string

const (
	Breaking   Category = "breaking"
	Business   Category = "business"
	Politics   Category = "politics"
	Tech       Category = "tech"
	Culture    Category = "culture"
	Sports     Category = "sports"
	Society    Category = "society"
	Guide      Category = "guide"
	Editorial  Category = "editorial"
	Comparison Category = "comparison"
)

// Categories in menu order.
var Categories = []Category{Breaking, Business, Politics, Tech, Culture, Sports, Society, Guide, Editorial, Comparison}

// EvergreenCategories are excluded from featured and trending rails.
var EvergreenCategories = []Category{Guide, Editorial, Comparison}

var categoryLabels = map[Category]string{
	Breaking:   "Breaking News",
	Business:   "Business",
	Politics:   "Politics",
	Tech:       "Technology",
	Culture:    "Culture",
	Sports:     "Sports",
	Society:    "Society",
	Guide:      "Expert Guides",
	Editorial:  "Analysis & Opinion",
	Comparison: "Comparisons",
}

var categoryDescriptions = map[Category]string{
	Breaking:   "Latest breaking news from across the Nordic region",
	Business:   "Business, markets and economy news from the Nordic countries",
	Politics:   "Political news and analysis from Nordic parliaments and governments",
	Tech:       "Technology and startup news from the Nordic tech scene",
	Culture:    "Arts, culture and lifestyle news from the Nordics",
	Sports:     "Sports news and results from Nordic countries",
	Society:    "Society, health and everyday life in the Nordic countries",
	Guide:      "Practical expert guides to living and working in the Nordics",
	Editorial:  "Analysis and opinion on Nordic affairs",
	Comparison: "Side-by-side comparisons of the Nordic countries",
}

// Valid reports whether c is a known section.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the display name, or the code itself when unknown.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Description is the section blurb used in page meta.
func (c Category) Description() string {
	return categoryDescriptions[c]
}

// ParseCategory accepts a code in any case.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

var relatedCategories = map[Category][]Category{
	Business: {Tech, Politics},
	Politics: {Society, Business},
	Tech:     {Business, Culture},
	Culture:  {Society, Sports},
	Sports:   {Culture, Society},
	Society:  {Politics, Culture},
	Breaking: {Politics, Business},
}

// Related lists the sections cross-linked from c's hub.
func (c Category) Related() []Category {
	if r, ok := relatedCategories[c]; ok {
		return r
	}
	return []Category{Business, Politics}
}

// CountryCategories are the sections that get a /<country>/<category> page.
var CountryCategories = []Category{Politics, Business, Tech, Society}

// Members is the set of stored categories a country/category page shows.
// The society page also aggregates culture and breaking stories.
func (c Category) Members() []Category {
	if c == Society {
		return []Category{Society, Culture, Breaking}
	}
	return []Category{c}
}
