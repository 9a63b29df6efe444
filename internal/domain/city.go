package domain

import "strings"

// City is a local hub page.
type City struct {
	Slug    string
	Name    string
	Country Country
	// Aliases are alternative spellings matched in article text.
	Aliases []string
}

// Cities in sitemap order.
var Cities = []City{
	{Slug: "stockholm", Name: "Stockholm", Country: Sweden},
	{Slug: "gothenburg", Name: "Gothenburg", Country: Sweden, Aliases: []string{"Göteborg"}},
	{Slug: "malmo", Name: "Malmö", Country: Sweden, Aliases: []string{"Malmo"}},
	{Slug: "oslo", Name: "Oslo", Country: Norway},
	{Slug: "copenhagen", Name: "Copenhagen", Country: Denmark, Aliases: []string{"København"}},
	{Slug: "helsinki", Name: "Helsinki", Country: Finland},
	{Slug: "reykjavik", Name: "Reykjavik", Country: Iceland, Aliases: []string{"Reykjavík"}},
}

// CityFromSlug resolves a city hub slug.
func CityFromSlug(slug string) (City, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, c := range Cities {
		if c.Slug == slug {
			return c, true
		}
	}
	return City{}, false
}

// Mentions reports whether the city, or one of its aliases, appears in any of
// texts (case-insensitive).
func (c City) Mentions(texts ...string) bool {
	names := append([]string{c.Name}, c.Aliases...)
	for _, t := range texts {
		lt := strings.ToLower(t)
		for _, n := range names {
			if strings.Contains(lt, strings.ToLower(n)) {
				return true
			}
		}
	}
	return false
}
