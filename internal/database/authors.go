package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

type AuthorRepository struct {
	db *sqlx.DB
}

func NewAuthorRepository(db *sqlx.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

type authorRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Slug            string         `db:"slug"`
	Bio             *string        `db:"bio"`
	Specialties     pq.StringArray `db:"specialties"`
	CountryFocus    pq.StringArray `db:"country_focus"`
	TopicFocus      pq.StringArray `db:"topic_focus"`
	ProfileImageURL *string        `db:"profile_image_url"`
	Email           *string        `db:"email"`
	Active          bool           `db:"active"`
}

func nonNil(s pq.StringArray) []string {
	if s == nil {
		return []string{}
	}
	return []string(s)
}

// ActiveBySlug returns domain.ErrNotFound for unknown or inactive authors.
func (r *AuthorRepository) ActiveBySlug(ctx context.Context, slug string) (*domain.Author, error) {
	var row authorRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, slug, bio, specialties, country_focus, topic_focus,
			profile_image_url, email, active
		FROM authors
		WHERE slug = $1 AND active = TRUE
		LIMIT 1`, slug)
	if err != nil {
		return nil, translate("get author", err)
	}
	return &domain.Author{
		ID:              row.ID,
		Name:            row.Name,
		Slug:            row.Slug,
		Bio:             row.Bio,
		Specialties:     nonNil(row.Specialties),
		CountryFocus:    nonNil(row.CountryFocus),
		TopicFocus:      nonNil(row.TopicFocus),
		ProfileImageURL: row.ProfileImageURL,
		Email:           row.Email,
		Active:          row.Active,
	}, nil
}
