package database_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/nordicstoday/nordics-today/internal/database"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

func TestSubscriberRepository_FindByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewSubscriberRepository(db)
	ctx := context.Background()
	now := time.Now()

	testCases := []struct {
		name       string
		setupMock  func()
		wantStatus string
		wantErr    error
	}{
		{
			name: "returns subscriber",
			setupMock: func() {
				rows := sqlmock.NewRows([]string{
					"id", "email", "name", "source", "status", "created_at", "updated_at", "unsubscribed_at",
				}).AddRow("s1", "reader@example.com", nil, "website", "unsubscribed", now, now, now)
				mock.ExpectQuery("FROM newsletter_subscribers WHERE email").
					WithArgs("reader@example.com").
					WillReturnRows(rows)
			},
			wantStatus: domain.SubscriberUnsubscribed,
		},
		{
			name: "unknown email",
			setupMock: func() {
				mock.ExpectQuery("FROM newsletter_subscribers WHERE email").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			sub, err := repo.FindByEmail(ctx, "reader@example.com")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("FindByEmail() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindByEmail() unexpected error: %v", err)
			}
			if sub.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", sub.Status, tc.wantStatus)
			}
		})
	}
}

func TestSubscriberRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewSubscriberRepository(db)

	mock.ExpectExec("INSERT INTO newsletter_subscribers").
		WithArgs("reader@example.com", nil, "website", domain.SubscriberActive).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), "reader@example.com", nil, "website")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Create() error = %v, want ErrAlreadyExists", err)
	}
}

func TestSubscriberRepository_Unsubscribe(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewSubscriberRepository(db)

	mock.ExpectExec("UPDATE newsletter_subscribers").
		WithArgs(domain.SubscriberUnsubscribed, sqlmock.AnyArg(), "reader@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Unsubscribe(context.Background(), "reader@example.com"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSubscriberRepository_ActiveEmails(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewSubscriberRepository(db)

	mock.ExpectQuery("SELECT email FROM newsletter_subscribers WHERE status").
		WithArgs(domain.SubscriberActive).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@example.com").AddRow("b@example.com"))

	emails, err := repo.ActiveEmails(context.Background())
	if err != nil {
		t.Fatalf("ActiveEmails() error = %v", err)
	}
	if len(emails) != 2 {
		t.Errorf("ActiveEmails() returned %d, want 2", len(emails))
	}
}

func TestPushRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewPushRepository(db)
	ctx := context.Background()

	sub := domain.PushSubscription{Endpoint: "https://push.example/1", P256dh: "p", Auth: "a", UserAgent: "UA"}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (endpoint) DO UPDATE")).
		WithArgs(sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT endpoint, keys_p256dh, keys_auth, user_agent FROM push_subscriptions").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "keys_p256dh", "keys_auth", "user_agent"}).
			AddRow(sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent))
	mock.ExpectExec("DELETE FROM push_subscriptions WHERE endpoint").
		WithArgs(sub.Endpoint).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(ctx, sub); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 || all[0] != sub {
		t.Errorf("All() = %+v, want [%+v]", all, sub)
	}
	if err = repo.Delete(ctx, sub.Endpoint); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAuthorRepository_ActiveBySlug(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewAuthorRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "name", "slug", "bio", "specialties", "country_focus", "topic_focus",
		"profile_image_url", "email", "active",
	}).AddRow("au1", "Ingrid Berg", "ingrid-berg", "Energy desk", "{energy,climate}", "{NO}", nil, nil, nil, true)
	mock.ExpectQuery("FROM authors").WithArgs("ingrid-berg").WillReturnRows(rows)

	author, err := repo.ActiveBySlug(context.Background(), "ingrid-berg")
	if err != nil {
		t.Fatalf("ActiveBySlug() error = %v", err)
	}
	if author.Name != "Ingrid Berg" || len(author.Specialties) != 2 {
		t.Errorf("ActiveBySlug() = %+v", author)
	}
	if author.TopicFocus == nil {
		t.Error("TopicFocus should be empty, not nil")
	}

	mock.ExpectQuery("FROM authors").WillReturnError(sql.ErrNoRows)
	if _, err = repo.ActiveBySlug(context.Background(), "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ActiveBySlug(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestContributionRepository_Submit(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewContributionRepository(db)

	c := domain.Contributor{Email: "writer@uni.se", Name: "A", Title: "Prof", Institution: "Uni", Bio: "Bio"}
	s := domain.Submission{Title: "Op-ed", Summary: "Sum", Content: "Body", Topics: []string{"energy"}, WordCount: 800}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO opinion_contributors").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectQuery("INSERT INTO opinion_submissions").
		WithArgs("c1", s.Title, s.Content, s.Summary, sqlmock.AnyArg(), s.WordCount, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub1"))
	mock.ExpectCommit()

	id, err := repo.Submit(context.Background(), c, s)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "sub1" {
		t.Errorf("Submit() id = %q, want sub1", id)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestContributionRepository_SubmitRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := database.NewContributionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO opinion_contributors").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Submit(context.Background(), domain.Contributor{Email: "x@y.se"}, domain.Submission{})
	if !database.IsDataLayerError(err) {
		t.Fatalf("Submit() error = %v, want data-layer error", err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
