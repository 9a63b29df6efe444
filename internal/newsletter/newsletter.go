// Package newsletter manages list membership and delivers issues through
// the Resend batch API.
package newsletter

import (
	"context"
	"errors"
	"fmt"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// DefaultSource is recorded when a subscriber gives no signup source.
const DefaultSource = "website"

// Subscription outcomes shown to the reader.
const (
	MsgSubscribed   = "Successfully subscribed!"
	MsgResubscribed = "Welcome back! You have been resubscribed."
	MsgAlready      = "You are already subscribed."
	MsgUnsubscribed = "Successfully unsubscribed."
)

var (
	// ErrInvalidEmail rejects malformed addresses.
	ErrInvalidEmail = errors.New("valid email is required")
	// ErrNoSubscribers is returned by Send when the list is empty.
	ErrNoSubscribers = errors.New("no active subscribers")
)

// Subscribers is the newsletter_subscribers store.
type Subscribers interface {
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)
	Create(ctx context.Context, email string, name *string, source string) error
	Reactivate(ctx context.Context, id string) error
	Unsubscribe(ctx context.Context, email string) error
	ActiveEmails(ctx context.Context) ([]string, error)
}

// Service handles subscribe and unsubscribe requests.
type Service struct {
	subscribers Subscribers
	log         logger.Logger
}

func NewService(subscribers Subscribers, log logger.Logger) *Service {
	return &Service{subscribers: subscribers, log: log}
}

// Subscribe adds email to the list, reactivating a lapsed subscription. It
// returns the message to show the reader.
func (s *Service) Subscribe(ctx context.Context, email, name, source string) (string, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	existing, err := s.subscribers.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.Status == domain.SubscriberUnsubscribed:
		if err = s.subscribers.Reactivate(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("reactivate subscriber: %w", err)
		}
		s.log.Info("Subscriber reactivated", logger.String("subscriber_id", existing.ID))
		return MsgResubscribed, nil
	case err == nil:
		return MsgAlready, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("find subscriber: %w", err)
	}

	if source == "" {
		source = DefaultSource
	}
	var namePtr *string
	if name != "" {
		namePtr = &name
	}
	if err = s.subscribers.Create(ctx, email, namePtr, source); err != nil {
		// A concurrent signup for the same address won the insert.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return MsgAlready, nil
		}
		return "", fmt.Errorf("create subscriber: %w", err)
	}
	s.log.Info("Subscriber added", logger.String("source", source))
	return MsgSubscribed, nil
}

// Unsubscribe marks email unsubscribed. Unknown addresses are not an error.
func (s *Service) Unsubscribe(ctx context.Context, email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	if err := s.subscribers.Unsubscribe(ctx, email); err != nil {
		return "", fmt.Errorf("unsubscribe: %w", err)
	}
	return MsgUnsubscribed, nil
}
