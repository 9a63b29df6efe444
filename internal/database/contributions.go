package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

// ContributionRepository stores opinion contributors and their submissions.
type ContributionRepository struct {
	db *sqlx.DB
}

func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Submit upserts the contributor by email and files a pending submission in
// one transaction. It returns the submission id.
func (r *ContributionRepository) Submit(ctx context.Context, c domain.Contributor, s domain.Submission) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", translate("begin submission", err)
	}
	defer func() { _ = tx.Rollback() }()

	var contributorID string
	err = tx.GetContext(ctx, &contributorID, `
		INSERT INTO opinion_contributors
			(email, name, title, institution, bio, linkedin_url, website_url, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			institution = EXCLUDED.institution,
			bio = EXCLUDED.bio,
			linkedin_url = EXCLUDED.linkedin_url,
			website_url = EXCLUDED.website_url
		RETURNING id`,
		c.Email, c.Name, c.Title, c.Institution, c.Bio, c.LinkedInURL, c.WebsiteURL)
	if err != nil {
		return "", translate("upsert contributor", err)
	}

	var submissionID string
	err = tx.GetContext(ctx, &submissionID, `
		INSERT INTO opinion_submissions
			(contributor_id, title, content, summary, topics, word_count,
			 conflict_disclosure, agreed_to_terms, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, 'pending')
		RETURNING id`,
		contributorID, s.Title, s.Content, s.Summary, pq.Array(s.Topics), s.WordCount, s.ConflictDisclosure)
	if err != nil {
		return "", translate("insert submission", err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit submission: %w: %w", ErrDataLayer, err)
	}
	return submissionID, nil
}
