package newsletter

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

const siteURL = "https://nordicstoday.com"

type storyView struct {
	Headline string
	Teaser   string
	Country  string
	Category string
	Title    string
	URL      string
	ImageURL string
}

type digestView struct {
	DateRange   string
	Intro       string
	Stories     []storyView
	Signoff     string
	Year        int
	Unsubscribe string
	Site        string
	Countries   []countryLink
}

type countryLink struct {
	Slug string
	Name string
}

// placeholderToken survives html/template's URL escaping unchanged.
const placeholderToken = "__unsubscribe_url__"

func restorePlaceholder(s string) string {
	return strings.ReplaceAll(s, placeholderToken, UnsubscribePlaceholder)
}

var digestHTML = htmltemplate.Must(htmltemplate.New("digest.html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Nordic News Weekly</title>
</head>
<body style="margin:0;padding:0;background-color:#f8f8f8;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color:#f8f8f8;">
    <tr><td align="center" style="padding:32px 16px;">
      <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="background-color:#ffffff;border:1px solid #e5e7eb;">
        <tr><td style="padding:24px 32px;border-bottom:1px solid #e5e7eb;">
          <table role="presentation" width="100%" cellspacing="0" cellpadding="0"><tr>
            <td><img src="{{.Site}}/logo.png" alt="Nordics Today" style="height:40px;width:auto;"></td>
            <td align="right" style="font-size:12px;color:#9ca3af;">{{.DateRange}}</td>
          </tr></table>
        </td></tr>
        <tr><td style="padding:24px 32px 16px;">
          <p style="margin:0;font-size:16px;line-height:1.6;color:#374151;">{{.Intro}}</p>
        </td></tr>
        <tr><td style="padding:0 32px;">
          <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
{{- range .Stories}}
            <tr><td style="padding:20px 0;border-bottom:1px solid #e5e7eb;">
              {{- if .ImageURL}}
              <img src="{{.ImageURL}}" alt="{{.Title}}" style="width:100%;max-width:520px;height:auto;border-radius:4px;margin-bottom:12px;border:1px solid #e5e7eb;">
              {{- end}}
              <p style="margin:0 0 6px;font-size:11px;color:#9ca3af;text-transform:uppercase;letter-spacing:1px;font-weight:500;">{{.Country}} · {{.Category}}</p>
              <h2 style="margin:0 0 8px;font-size:18px;font-weight:600;color:#111827;font-family:Georgia,'Times New Roman',serif;">
                <a href="{{.URL}}" style="color:#111827;text-decoration:none;">{{.Headline}}</a>
              </h2>
              <p style="margin:0 0 10px;font-size:15px;line-height:1.5;color:#4b5563;">{{.Teaser}}</p>
              <a href="{{.URL}}" style="display:inline-block;font-size:13px;font-weight:500;color:#374151;text-decoration:none;">Read more →</a>
            </td></tr>
{{- end}}
          </table>
        </td></tr>
        <tr><td style="padding:16px 32px;">
          <p style="margin:0 0 12px;font-size:11px;color:#9ca3af;text-transform:uppercase;letter-spacing:1px;font-weight:500;">Browse by Country</p>
          <p style="margin:0;font-size:14px;">
{{- range .Countries}}
            <a href="{{$.Site}}/{{.Slug}}" style="color:#374151;text-decoration:none;margin-right:12px;">{{.Name}}</a>
{{- end}}
            <a href="{{.Site}}/category/guide" style="color:#374151;text-decoration:none;">Guides</a>
          </p>
        </td></tr>
        <tr><td style="padding:16px 32px 24px;border-top:1px solid #e5e7eb;">
          <p style="margin:0;font-size:14px;line-height:1.6;color:#6b7280;">{{.Signoff}}</p>
        </td></tr>
        <tr><td style="background-color:#f9fafb;padding:20px 32px;text-align:center;border-top:1px solid #e5e7eb;">
          <p style="margin:0 0 8px;font-size:11px;color:#9ca3af;">You subscribed to Nordic News Weekly at nordicstoday.com</p>
          <a href="{{.Unsubscribe}}" style="font-size:11px;color:#6b7280;text-decoration:underline;">Unsubscribe</a>
          <p style="margin:12px 0 0;font-size:11px;color:#d1d5db;">© {{.Year}} Nordics Today</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>
`))

var digestText = texttemplate.Must(texttemplate.New("digest.txt").Parse(`NORDICS TODAY - WEEKLY DIGEST

{{.Intro}}

---
{{range $i, $s := .Stories}}{{if $i}}
---
{{end}}
{{$s.Country}} · {{$s.Category}}
{{$s.Headline}}

{{$s.Teaser}}

Read more: {{$s.URL}}
{{end}}
---

{{.Signoff}}

The Nordics Today Team

---
Unsubscribe: {{.Unsubscribe}}`))

// Render builds the HTML and text bodies. Written stories are paired with
// articles by position; extras on either side are dropped. Both bodies keep
// UnsubscribePlaceholder for the sender to fill in.
func Render(c Copy, articles []domain.ProcessedArticle, dates string, year int) (Message, error) {
	v := digestView{
		DateRange:   dates,
		Intro:       c.Intro,
		Signoff:     c.Signoff,
		Year:        year,
		Unsubscribe: placeholderToken,
		Site:        siteURL,
	}
	for _, code := range domain.Countries {
		v.Countries = append(v.Countries, countryLink{Slug: code.Slug(), Name: code.Name()})
	}
	for i, s := range c.Stories {
		if i >= len(articles) {
			break
		}
		a := articles[i]
		v.Stories = append(v.Stories, storyView{
			Headline: s.Headline,
			Teaser:   s.Teaser,
			Country:  a.CountryName,
			Category: a.CategoryDisplay,
			Title:    a.Title,
			URL:      siteURL + a.URLSlug,
			ImageURL: a.ImageURL(),
		})
	}

	var html, text bytes.Buffer
	if err := digestHTML.Execute(&html, v); err != nil {
		return Message{}, fmt.Errorf("render digest html: %w", err)
	}
	if err := digestText.Execute(&text, v); err != nil {
		return Message{}, fmt.Errorf("render digest text: %w", err)
	}
	return Message{
		Subject: c.Subject,
		HTML:    restorePlaceholder(html.String()),
		Text:    restorePlaceholder(text.String()),
	}, nil
}
