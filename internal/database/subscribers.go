package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

// SubscriberRepository manages newsletter_subscribers.
type SubscriberRepository struct {
	db *sqlx.DB
}

func NewSubscriberRepository(db *sqlx.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

const subscriberColumns = `id, email, name, source, status, created_at, updated_at, unsubscribed_at`

// FindByEmail returns domain.ErrNotFound for unknown addresses.
func (r *SubscriberRepository) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var s domain.Subscriber
	err := r.db.GetContext(ctx, &s,
		`SELECT `+subscriberColumns+` FROM newsletter_subscribers WHERE email = $1 LIMIT 1`, email)
	if err != nil {
		return nil, translate("find subscriber", err)
	}
	return &s, nil
}

// Create inserts an active subscriber.
func (r *SubscriberRepository) Create(ctx context.Context, email string, name *string, source string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscribers (email, name, source, status)
		VALUES ($1, $2, $3, $4)`,
		email, name, source, domain.SubscriberActive)
	return translate("create subscriber", err)
}

// Reactivate flips a subscriber back to active.
func (r *SubscriberRepository) Reactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET status = $1, unsubscribed_at = NULL, updated_at = $2
		WHERE id = $3`,
		domain.SubscriberActive, time.Now().UTC(), id)
	return translate("reactivate subscriber", err)
}

// Unsubscribe marks every row for email as unsubscribed. Unknown addresses
// are not an error.
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, email string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET status = $1, unsubscribed_at = $2, updated_at = $2
		WHERE email = $3`,
		domain.SubscriberUnsubscribed, now, email)
	return translate("unsubscribe", err)
}

// ActiveEmails lists the addresses a newsletter goes out to.
func (r *SubscriberRepository) ActiveEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.SelectContext(ctx, &emails,
		`SELECT email FROM newsletter_subscribers WHERE status = $1 ORDER BY created_at`,
		domain.SubscriberActive)
	if err != nil {
		return nil, translate("list active subscribers", err)
	}
	return emails, nil
}
