package enrich_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/enrich"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 150, ""},
		{"short unchanged", "Oslo votes today.", 150, "Oslo votes today."},
		{"tags stripped", "<p>Riksdag <b>passes</b> budget &amp; more</p>", 150, "Riksdag passes budget & more"},
		{"word boundary", "The Storting approved the budget", 20, "The Storting…"},
		{"boundary exactly at limit", "alpha beta gamma", 10, "alpha…"},
		{"no whitespace hard cut", "Supercalifragilistic", 5, "Super…"},
		{"leading space only", " abcdefgh", 4, "abcd…"},
		{"multibyte", "Malmö Göteborg København Reykjavík", 14, "Malmö…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, enrich.Excerpt(tt.in, tt.max))
		})
	}
}

func TestExcerpt_Bounds(t *testing.T) {
	text := strings.Repeat("Nordic news is read across five countries every morning. ", 10)
	for n := 1; n <= 200; n++ {
		got := enrich.Excerpt(text, n)
		if utf8.RuneCountInString(got) > n+1 {
			t.Fatalf("Excerpt(n=%d) has %d runes", n, utf8.RuneCountInString(got))
		}
		body := strings.TrimSuffix(got, enrich.Ellipsis)
		if body != "" && strings.ContainsRune(text[:min(len(text), n)], ' ') && n > 1 {
			next := text[len(body):]
			if !strings.HasPrefix(next, " ") {
				t.Fatalf("Excerpt(n=%d) split mid-word: %q", n, got)
			}
		}
	}
}

func TestRelativeTime_Boundaries(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		age  time.Duration
		want string
	}{
		{0, "0 minutes ago"},
		{time.Minute, "1 minute ago"},
		{59 * time.Minute, "59 minutes ago"},
		{60 * time.Minute, "1 hour ago"},
		{119 * time.Minute, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{6*24*time.Hour + 23*time.Hour, "6 days ago"},
		{-5 * time.Minute, "0 minutes ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, enrich.RelativeTime(at(tt.age), now), tt.age.String())
	}

	week := at(7 * 24 * time.Hour)
	assert.Equal(t, enrich.FormatDate(week), enrich.RelativeTime(week, now))
	assert.Equal(t, "13 May 2026 at 13:00", enrich.RelativeTime(week, now))
	assert.Equal(t, "", enrich.RelativeTime(nil, now))
}

func TestFormatDate(t *testing.T) {
	winter := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2 January 2026 at 15:04", enrich.FormatDate(&winter))
	assert.Equal(t, "", enrich.FormatDate(nil))
}

func TestPipeline_Process(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	published := now.Add(-3 * time.Hour)
	summary := "<p>Equinor reports record profits as gas prices stay high across Europe.</p>"

	p := enrich.Pipeline{Now: func() time.Time { return now }}
	got := p.Process(domain.Article{
		ID:          "a1",
		Title:       "Equinor profits",
		Slug:        "equinor-profits",
		Summary:     &summary,
		Country:     domain.Norway,
		Category:    "energy",
		PublishedAt: &published,
	}, 40)

	assert.Equal(t, "Equinor reports record profits as gas…", got.Excerpt)
	assert.Equal(t, "3 hours ago", got.RelativeTime)
	assert.Equal(t, "20 May 2026 at 10:00", got.PublishedAtFormatted)
	assert.Equal(t, "Norway", got.CountryName)
	assert.Equal(t, "energy", got.CategoryDisplay)
	assert.Equal(t, "/article/equinor-profits", got.URLSlug)
	require.NotNil(t, got.Keywords)
	assert.Empty(t, got.Keywords)
}

func TestPipeline_ProcessAllNeverNil(t *testing.T) {
	out := enrich.New().ProcessAll(nil, enrich.DefaultExcerptLength)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
