package push

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Breaking sweep limits.
const (
	BreakingWindow = time.Hour
	BreakingLimit  = 10
	notifiedTTL    = 72 * time.Hour
)

// BreakingSource lists recent stories by category.
type BreakingSource interface {
	FetchPublishedSince(ctx context.Context, since time.Time, limit int, categories ...domain.Category) ([]domain.ProcessedArticle, error)
}

// Broadcaster sends one notification to every subscriber.
type Broadcaster interface {
	Broadcast(ctx context.Context, n Notification) (Result, error)
}

// BreakingNotifier pushes each new breaking story exactly once.
type BreakingNotifier struct {
	articles BreakingSource
	push     Broadcaster
	redis    *redis.Client
	log      logger.Logger
	now      func() time.Time
}

// BreakingOption configures a BreakingNotifier.
type BreakingOption func(*BreakingNotifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BreakingOption {
	return func(b *BreakingNotifier) { b.now = now }
}

func NewBreakingNotifier(articles BreakingSource, push Broadcaster, rdb *redis.Client, log logger.Logger, opts ...BreakingOption) *BreakingNotifier {
	b := &BreakingNotifier{articles: articles, push: push, redis: rdb, log: log, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NotifiedKey is the Redis marker for an announced article.
func NotifiedKey(articleID string) string {
	return "notified:article:" + articleID
}

// NotifyBreaking broadcasts breaking stories from the last hour that have
// not been announced yet. It returns how many were announced.
func (b *BreakingNotifier) NotifyBreaking(ctx context.Context) (int, error) {
	stories, err := b.articles.FetchPublishedSince(ctx, b.now().Add(-BreakingWindow), BreakingLimit, domain.Breaking)
	if err != nil {
		return 0, fmt.Errorf("fetch breaking stories: %w", err)
	}

	announced := 0
	// Oldest first so notifications arrive in publication order.
	for i := len(stories) - 1; i >= 0; i-- {
		a := stories[i]
		claimed, err := b.redis.SetNX(ctx, NotifiedKey(a.ID), b.now().UTC().Format(time.RFC3339), notifiedTTL).Result()
		if err != nil {
			return announced, fmt.Errorf("mark %s notified: %w", a.ID, err)
		}
		if !claimed {
			continue
		}

		res, err := b.push.Broadcast(ctx, Notification{
			Title: "Breaking: " + a.CountryName,
			Body:  a.Title,
			URL:   a.URLSlug,
		})
		if err != nil {
			_ = b.redis.Del(context.WithoutCancel(ctx), NotifiedKey(a.ID)).Err()
			return announced, fmt.Errorf("broadcast %s: %w", a.ID, err)
		}
		announced++
		b.log.Info("Breaking story announced",
			logger.String("article_id", a.ID),
			logger.Int("sent", res.Sent))
	}
	return announced, nil
}
