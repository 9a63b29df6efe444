package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Digest selection limits.
const (
	DigestWindow     = 7 * 24 * time.Hour
	DigestCandidates = 20
	DigestStories    = 5
	titlePrefixLen   = 30
	sentKeyTTL       = 8 * 24 * time.Hour
)

var (
	// ErrAlreadySent means this ISO week's digest has gone out.
	ErrAlreadySent = errors.New("digest already sent this week")
	// ErrNoArticles means nothing was published in the window.
	ErrNoArticles = errors.New("no articles found for this week")
)

// PopularSource lists the most read stories of a window.
type PopularSource interface {
	FetchPopularSince(ctx context.Context, since time.Time, limit int) ([]domain.ProcessedArticle, error)
}

// Mailer sends one issue to the list.
type Mailer interface {
	Send(ctx context.Context, m Message) (Result, error)
}

// DigestResult reports a digest run.
type DigestResult struct {
	Result
	Subject      string   `json:"subject"`
	ArticlesUsed []string `json:"articlesUsed"`
}

// Copy is the writer's JSON answer.
type Copy struct {
	Subject string `json:"subject"`
	Intro   string `json:"intro"`
	Stories []struct {
		Headline string `json:"headline"`
		Teaser   string `json:"teaser"`
	} `json:"stories"`
	Signoff string `json:"signoff"`
}

// Digest composes and sends the weekly roundup.
type Digest struct {
	articles PopularSource
	writer   Writer
	mailer   Mailer
	redis    *redis.Client
	log      logger.Logger
	now      func() time.Time
}

// DigestOption configures a Digest.
type DigestOption func(*Digest)

// WithSentGuard records sent weeks in Redis so a week is never mailed
// twice.
func WithSentGuard(c *redis.Client) DigestOption {
	return func(d *Digest) { d.redis = c }
}

// WithDigestClock replaces time.Now.
func WithDigestClock(now func() time.Time) DigestOption {
	return func(d *Digest) { d.now = now }
}

func NewDigest(articles PopularSource, writer Writer, mailer Mailer, log logger.Logger, opts ...DigestOption) *Digest {
	d := &Digest{articles: articles, writer: writer, mailer: mailer, log: log, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SentKey is the Redis key guarding the ISO week containing t.
func SentKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("digest:sent:%d-W%02d", year, week)
}

// Run selects the week's stories, has them written up and mails the
// result.
func (d *Digest) Run(ctx context.Context) (DigestResult, error) {
	now := d.now()
	key := SentKey(now)
	if d.redis != nil {
		claimed, err := d.redis.SetNX(ctx, key, now.UTC().Format(time.RFC3339), sentKeyTTL).Result()
		if err != nil {
			return DigestResult{}, fmt.Errorf("claim digest week: %w", err)
		}
		if !claimed {
			return DigestResult{}, ErrAlreadySent
		}
	}

	res, err := d.run(ctx, now)
	if err != nil && d.redis != nil {
		if delErr := d.redis.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			d.log.Warn("Failed to release digest week", logger.String("key", key), logger.Error(delErr))
		}
	}
	return res, err
}

func (d *Digest) run(ctx context.Context, now time.Time) (DigestResult, error) {
	candidates, err := d.articles.FetchPopularSince(ctx, now.Add(-DigestWindow), DigestCandidates)
	if err != nil {
		return DigestResult{}, fmt.Errorf("fetch popular articles: %w", err)
	}
	stories := PickStories(candidates)
	if len(stories) == 0 {
		return DigestResult{}, ErrNoArticles
	}

	dates := DateRange(now)
	raw, err := d.writer.Write(ctx, digestPrompt(stories, dates))
	if err != nil {
		return DigestResult{}, fmt.Errorf("write digest: %w", err)
	}
	c, err := ParseCopy(raw)
	if err != nil {
		return DigestResult{}, err
	}

	msg, err := Render(c, stories, dates, now.Year())
	if err != nil {
		return DigestResult{}, err
	}
	sent, err := d.mailer.Send(ctx, msg)
	if err != nil {
		return DigestResult{}, fmt.Errorf("send digest: %w", err)
	}

	used := make([]string, len(stories))
	for i := range stories {
		used[i] = stories[i].Title
	}
	d.log.Info("Weekly digest sent",
		logger.String("subject", c.Subject),
		logger.Strings("articles", used),
		logger.Int("sent", sent.Sent))
	return DigestResult{Result: sent, Subject: c.Subject, ArticlesUsed: used}, nil
}

// PickStories keeps the first story per country whose lowercased title
// prefix has not been seen, up to DigestStories. Input is most read first.
func PickStories(in []domain.ProcessedArticle) []domain.ProcessedArticle {
	countries := make(map[domain.Country]bool)
	prefixes := make(map[string]bool)
	var out []domain.ProcessedArticle
	for _, a := range in {
		if len(out) == DigestStories {
			break
		}
		prefix := titlePrefix(a.Title)
		if countries[a.Country] || prefixes[prefix] {
			continue
		}
		countries[a.Country] = true
		prefixes[prefix] = true
		out = append(out, a)
	}
	return out
}

func titlePrefix(title string) string {
	r := []rune(title)
	return strings.ToLower(string(r[:min(titlePrefixLen, len(r))]))
}

// DateRange renders the week ending at now, e.g. "Feb 23 - Mar 2, 2026".
func DateRange(now time.Time) string {
	start := now.Add(-DigestWindow)
	return start.Format("Jan 2") + " - " + now.Format("Jan 2, 2006")
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseCopy extracts the first-to-last brace block of raw and decodes it.
func ParseCopy(raw string) (Copy, error) {
	body := raw
	if m := jsonObject.FindString(raw); m != "" {
		body = m
	}
	var c Copy
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return Copy{}, fmt.Errorf("parse digest copy: %w", err)
	}
	if c.Subject == "" || len(c.Stories) == 0 {
		return Copy{}, errors.New("parse digest copy: missing subject or stories")
	}
	return c, nil
}

const writingRules = `You write newsletter emails for Nordics Today, a news site covering Sweden, Norway, Denmark, Finland, and Iceland.

RULES:
- Write sentences averaging 10-20 words, focusing on one idea each
- Use active voice 90% of the time
- Use everyday vocabulary, no jargon
- Mix short and medium sentences
- Provide concrete details: numbers, dates, names
- NO semicolons, NO em dashes
- NEVER use: however, moreover, furthermore, additionally, consequently, therefore, ultimately, leverage, utilize, innovative, dynamic, cutting-edge, game-changer, delve, embark, tapestry, landscape, realm, seamless, robust, holistic, paradigm, synergy
- NO hedging words: might, could, would, may
- NO apologies or AI references
- Be direct and engaging
- Create curiosity without clickbait

Your tone: Smart friend sharing interesting news over coffee. Warm but not cheesy.`

func digestPrompt(stories []domain.ProcessedArticle, dates string) string {
	var b strings.Builder
	b.WriteString(writingRules)
	fmt.Fprintf(&b, "\n\nWrite a weekly newsletter email for the week of %s.\n\n", dates)
	fmt.Fprintf(&b, "TOP %d STORIES THIS WEEK (from different Nordic countries):\n", len(stories))
	for i, a := range stories {
		summary := a.SummaryText()
		if summary == "" {
			summary = "No summary"
		}
		fmt.Fprintf(&b, "%d. %q (%s, %s) - %s - %d views\n",
			i+1, a.Title, a.CountryName, a.Category, summary, a.ViewCount)
	}
	fmt.Fprintf(&b, `
Generate:
1. SUBJECT LINE: 5-8 words max. Create curiosity. No clickbait. Pick the most interesting angle from any story.

2. EMAIL BODY:
- Opening line that hooks (1-2 sentences, no greeting). Mention it's a roundup from across the Nordics.
- Brief engaging summary of EACH story (2-3 sentences each).
- End with a simple sign-off like "See you next week".

Format your response as JSON with exactly %d stories:
{"subject": "...", "intro": "...", "stories": [{"headline": "...", "teaser": "..."}], "signoff": "..."}`, len(stories))
	return b.String()
}
