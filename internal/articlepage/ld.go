package articlepage

import (
	"time"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

// SiteURL is the canonical origin used in structured data.
const SiteURL = "https://nordicstoday.com"

// Thing is a schema.org node with a type and a name.
type Thing struct {
	Type string `json:"@type"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
	ID   string `json:"@id,omitempty"`
}

// Publisher is the schema.org Organization that publishes the site.
type Publisher struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	Logo Thing  `json:"logo"`
}

// NewsArticle is the schema.org NewsArticle embedded in article pages.
type NewsArticle struct {
	Context          string     `json:"@context"`
	Type             string     `json:"@type"`
	Headline         string     `json:"headline"`
	Description      string     `json:"description"`
	Image            []string   `json:"image"`
	DatePublished    *time.Time `json:"datePublished"`
	DateModified     *time.Time `json:"dateModified"`
	Author           Thing      `json:"author"`
	Publisher        Publisher  `json:"publisher"`
	MainEntityOfPage Thing      `json:"mainEntityOfPage"`
	ArticleSection   string     `json:"articleSection"`
	Keywords         []string   `json:"keywords"`
	LocationCreated  Thing      `json:"locationCreated"`
}

// StructuredData describes a.
func StructuredData(a domain.ProcessedArticle) NewsArticle {
	images := []string{}
	if a.FeaturedImageURL != nil {
		images = append(images, *a.FeaturedImageURL)
	}
	description := a.SummaryText()
	if description == "" {
		description = a.Excerpt
	}

	author := Thing{Type: "Organization", Name: a.SourceName}
	if a.AuthorName != nil && *a.AuthorName != "" {
		author = Thing{Type: "Person", Name: *a.AuthorName}
		if a.AuthorSlug != nil {
			author.URL = SiteURL + "/author/" + *a.AuthorSlug
		}
	}

	return NewsArticle{
		Context:       "https://schema.org",
		Type:          "NewsArticle",
		Headline:      a.Title,
		Description:   description,
		Image:         images,
		DatePublished: a.PublishedAt,
		DateModified:  a.PublishedAt,
		Author:        author,
		Publisher: Publisher{
			Type: "Organization",
			Name: "Nordics Today",
			Logo: Thing{Type: "ImageObject", URL: SiteURL + "/logo.png"},
		},
		MainEntityOfPage: Thing{Type: "WebPage", ID: SiteURL + a.URLSlug},
		ArticleSection:   a.CategoryDisplay,
		Keywords:         a.Keywords,
		LocationCreated:  Thing{Type: "Place", Name: a.CountryName},
	}
}
