package domain

import "time"

// Subscriber statuses.
const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"
)

// Subscriber is a newsletter_subscribers row.
type Subscriber struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Name           *string    `db:"name" json:"name,omitempty"`
	Source         string     `db:"source" json:"source"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
}

// PushSubscription is a browser Web Push endpoint with its key pair.
type PushSubscription struct {
	Endpoint  string `db:"endpoint" json:"endpoint"`
	P256dh    string `db:"keys_p256dh" json:"p256dh"`
	Auth      string `db:"keys_auth" json:"auth"`
	UserAgent string `db:"user_agent" json:"user_agent,omitempty"`
}

// Author is a staff writer profile.
type Author struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Bio             *string  `json:"bio"`
	Specialties     []string `json:"specialties"`
	CountryFocus    []string `json:"country_focus"`
	TopicFocus      []string `json:"topic_focus"`
	ProfileImageURL *string  `json:"profile_image_url"`
	Email           *string  `json:"email,omitempty"`
	Active          bool     `json:"active"`
}

// Contributor is an external opinion writer, keyed by email.
type Contributor struct {
	ID          string
	Email       string
	Name        string
	Title       string
	Institution string
	Bio         string
	LinkedInURL *string
	WebsiteURL  *string
}

// Submission is an opinion piece awaiting editorial review.
type Submission struct {
	ContributorID      string
	Title              string
	Summary            string
	Content            string
	Topics             []string
	WordCount          int
	ConflictDisclosure *string
}
