package domain

import "strings"

// Country is an ISO 3166-1 alpha-2 code for one of the five covered
// countries.
type Country string

const (
	Sweden  Country = "SE"
	Norway  Country = "NO"
	Denmark Country = "DK"
	Finland Country = "FI"
	Iceland Country = "IS"
)

// Countries in display order.
var Countries = []Country{Sweden, Norway, Denmark, Finland, Iceland}

var countryNames = map[Country]string{
	Sweden:  "Sweden",
	Norway:  "Norway",
	Denmark: "Denmark",
	Finland: "Finland",
	Iceland: "Iceland",
}

// CountryMeta is page copy for a country hub.
type CountryMeta struct {
	Parliament string
	Keywords   []string
}

var countryMeta = map[Country]CountryMeta{
	Sweden:  {Parliament: "Riksdag", Keywords: []string{"Sweden news", "Swedish news", "Stockholm", "Riksdag", "Swedish politics"}},
	Norway:  {Parliament: "Storting", Keywords: []string{"Norway news", "Norwegian news", "Oslo", "Storting", "Norwegian politics"}},
	Denmark: {Parliament: "Folketing", Keywords: []string{"Denmark news", "Danish news", "Copenhagen", "Folketing", "Danish politics"}},
	Finland: {Parliament: "Eduskunta", Keywords: []string{"Finland news", "Finnish news", "Helsinki", "Eduskunta", "Finnish politics"}},
	Iceland: {Parliament: "Althing", Keywords: []string{"Iceland news", "Icelandic news", "Reykjavik", "Althing", "Icelandic politics"}},
}

// Valid reports whether c is a covered country.
func (c Country) Valid() bool {
	_, ok := countryNames[c]
	return ok
}

// Name is the English name, or the code itself when unknown.
func (c Country) Name() string {
	if n, ok := countryNames[c]; ok {
		return n
	}
	return string(c)
}

// Slug is the lowercase English name used in hub URLs (/sweden).
func (c Country) Slug() string {
	return strings.ToLower(c.Name())
}

// Meta returns hub copy; ok is false for unknown codes.
func (c Country) Meta() (CountryMeta, bool) {
	m, ok := countryMeta[c]
	return m, ok
}

// ParseCountry accepts a code in any case.
func ParseCountry(s string) (Country, bool) {
	c := Country(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// CountryFromSlug resolves a hub slug such as "norway".
func CountryFromSlug(slug string) (Country, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, c := range Countries {
		if c.Slug() == slug {
			return c, true
		}
	}
	return "", false
}

// CountryFromName resolves an English country name case-insensitively.
func CountryFromName(name string) (Country, bool) {
	return CountryFromSlug(name)
}
