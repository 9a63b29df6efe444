// Package contribute accepts opinion pieces from outside writers.
package contribute

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Field limits.
const (
	MaxTextLength    = 10000
	MaxContentLength = 50000
	MinWords         = 500
	MaxWords         = 2000
)

// ValidationError rejects a submission. Message is safe to show to the
// writer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Form is a submission as posted.
type Form struct {
	Name         string   `json:"name" form:"name"`
	Email        string   `json:"email" form:"email"`
	Title        string   `json:"title" form:"title"`
	Institution  string   `json:"institution" form:"institution"`
	Bio          string   `json:"bio" form:"bio"`
	LinkedIn     string   `json:"linkedin" form:"linkedin"`
	Website      string   `json:"website" form:"website"`
	ArticleTitle string   `json:"article_title" form:"article_title"`
	Summary      string   `json:"summary" form:"summary"`
	Content      string   `json:"content" form:"content"`
	Topics       []string `json:"topics" form:"topics"`
	Conflict     string   `json:"conflict" form:"conflict"`
	OriginalWork bool     `json:"original_work" form:"original_work"`
	AgreeTerms   bool     `json:"agree_terms" form:"agree_terms"`
	AgreeEdit    bool     `json:"agree_edit" form:"agree_edit"`
}

// Store persists accepted submissions.
type Store interface {
	Submit(ctx context.Context, c domain.Contributor, s domain.Submission) (string, error)
}

// Service validates and files submissions.
type Service struct {
	store  Store
	policy *bluemonday.Policy
	log    logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{store: store, policy: bluemonday.UGCPolicy(), log: log}
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// SanitizeText trims, drops angle brackets and caps the length.
func SanitizeText(s string) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(strings.TrimSpace(s))
	return truncate(s, MaxTextLength)
}

// SanitizeContent keeps user-generated-content markup only and caps the
// length.
func (s *Service) SanitizeContent(in string) string {
	return truncate(strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(in))), MaxContentLength)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Submit validates f, upserts the contributor and files a pending
// submission. Validation failures are *ValidationError.
func (s *Service) Submit(ctx context.Context, f Form) (string, error) {
	c := domain.Contributor{
		Name:        SanitizeText(f.Name),
		Email:       strings.ToLower(SanitizeText(f.Email)),
		Title:       SanitizeText(f.Title),
		Institution: SanitizeText(f.Institution),
		Bio:         SanitizeText(f.Bio),
		LinkedInURL: optional(SanitizeText(f.LinkedIn)),
		WebsiteURL:  optional(SanitizeText(f.Website)),
	}
	sub := domain.Submission{
		Title:              SanitizeText(f.ArticleTitle),
		Summary:            SanitizeText(f.Summary),
		Content:            s.SanitizeContent(f.Content),
		ConflictDisclosure: optional(SanitizeText(f.Conflict)),
	}
	for _, t := range f.Topics {
		if t = SanitizeText(t); t != "" {
			sub.Topics = append(sub.Topics, t)
		}
	}

	switch {
	case !domain.ValidEmail(c.Email):
		return "", invalid("Please provide a valid email address.")
	case c.LinkedInURL != nil && !validURL(*c.LinkedInURL):
		return "", invalid("Please provide a valid LinkedIn URL.")
	case c.WebsiteURL != nil && !validURL(*c.WebsiteURL):
		return "", invalid("Please provide a valid website URL.")
	case c.Name == "" || c.Title == "" || c.Institution == "" || c.Bio == "":
		return "", invalid("Please fill in all required author information.")
	case sub.Title == "" || sub.Summary == "" || sub.Content == "":
		return "", invalid("Please fill in all required article fields.")
	case len(sub.Topics) == 0:
		return "", invalid("Please select at least one topic.")
	case !f.OriginalWork || !f.AgreeTerms || !f.AgreeEdit:
		return "", invalid("Please agree to all required terms.")
	}

	sub.WordCount = WordCount(sub.Content)
	if sub.WordCount < MinWords {
		return "", invalid(fmt.Sprintf("Article is too short (%d words). Minimum %d words required.", sub.WordCount, MinWords))
	}
	if sub.WordCount > MaxWords {
		return "", invalid(fmt.Sprintf("Article is too long (%d words). Maximum %d words allowed.", sub.WordCount, MaxWords))
	}

	id, err := s.store.Submit(ctx, c, sub)
	if err != nil {
		return "", fmt.Errorf("file submission: %w", err)
	}
	s.log.Info("Opinion submission received",
		logger.String("submission_id", id),
		logger.Int("word_count", sub.WordCount),
		logger.Strings("topics", sub.Topics))
	return id, nil
}
