package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/nordicstoday/nordics-today/internal/domain"
)

// PushRepository manages push_subscriptions.
type PushRepository struct {
	db *sqlx.DB
}

func NewPushRepository(db *sqlx.DB) *PushRepository {
	return &PushRepository{db: db}
}

// Upsert stores sub, replacing the keys of an existing endpoint.
func (r *PushRepository) Upsert(ctx context.Context, sub domain.PushSubscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (endpoint, keys_p256dh, keys_auth, user_agent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (endpoint) DO UPDATE SET
			keys_p256dh = EXCLUDED.keys_p256dh,
			keys_auth = EXCLUDED.keys_auth,
			user_agent = EXCLUDED.user_agent,
			updated_at = NOW()`,
		sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent)
	return translate("upsert push subscription", err)
}

func (r *PushRepository) Delete(ctx context.Context, endpoint string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return translate("delete push subscription", err)
}

func (r *PushRepository) All(ctx context.Context) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	err := r.db.SelectContext(ctx, &subs,
		`SELECT endpoint, keys_p256dh, keys_auth, user_agent FROM push_subscriptions`)
	if err != nil {
		return nil, translate("list push subscriptions", err)
	}
	return subs, nil
}
