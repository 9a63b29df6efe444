package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	infrahttp "github.com/nordicstoday/nordics-today/infrastructure/http"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	infraredis "github.com/nordicstoday/nordics-today/infrastructure/redis"
	"github.com/nordicstoday/nordics-today/infrastructure/retry"
	"github.com/nordicstoday/nordics-today/internal/articles"
	"github.com/nordicstoday/nordics-today/internal/cache"
	"github.com/nordicstoday/nordics-today/internal/config"
	"github.com/nordicstoday/nordics-today/internal/contribute"
	"github.com/nordicstoday/nordics-today/internal/database"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/pages"
	"github.com/nordicstoday/nordics-today/internal/push"
	"github.com/nordicstoday/nordics-today/internal/seo"
)

// app is the wired service graph shared by serve and the job commands.
// Optional services stay nil when their credentials are missing.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	db       *sqlx.DB
	redis    *goredis.Client
	registry *prometheus.Registry
	cache    *cache.Store
	client   *http.Client

	articles   *articles.Service
	pages      *pages.Loader
	seo        *seo.Builder
	newsletter *newsletter.Service
	sender     *newsletter.Sender
	digest     *newsletter.Digest
	push       *push.Service
	breaking   *push.BreakingNotifier
	contribute *contribute.Service
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Connected to database",
		logger.String("host", cfg.Database.Host),
		logger.String("database", cfg.Database.Database))

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: prometheus.NewRegistry(),
		cache:    cache.New(cache.WithTTL(cfg.Cache.TTL)),
		client:   infrahttp.NewClient(nil),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rdb, err := infraredis.NewClient(ctx, infraredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	switch {
	case errors.Is(err, infraredis.ErrEmptyAddress):
		log.Warn("Redis not configured; digest guard and breaking alerts disabled")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	default:
		a.redis = rdb
	}

	a.wire()
	return a, nil
}

func (a *app) wire() {
	cfg, log := a.cfg, a.log

	articleRepo := database.NewArticleRepository(a.db)
	subscribers := database.NewSubscriberRepository(a.db)

	a.articles = articles.NewService(articleRepo, a.cache, log.With(logger.String("component", "articles")),
		articles.WithMetrics(articles.NewMetrics(a.registry)),
		articles.WithViewCounter(articleRepo),
		articles.WithViewTimeout(cfg.Cache.ViewTimeout),
	)
	a.pages = pages.NewLoader(a.articles, database.NewAuthorRepository(a.db), log.With(logger.String("component", "pages")),
		pages.WithRelatedTimeout(cfg.Pages.RelatedTimeout))
	a.seo = seo.NewBuilder(a.articles, log.With(logger.String("component", "seo")))
	a.newsletter = newsletter.NewService(subscribers, log.With(logger.String("component", "newsletter")))
	a.contribute = contribute.NewService(database.NewContributionRepository(a.db), log.With(logger.String("component", "contribute")))

	if cfg.Newsletter.ResendAPIKey != "" {
		a.sender = newsletter.NewSender(newsletter.SenderConfig{
			APIKey:          cfg.Newsletter.ResendAPIKey,
			BaseURL:         cfg.Newsletter.ResendURL,
			From:            cfg.Newsletter.From,
			BatchSize:       cfg.Newsletter.BatchSize,
			UnsubscribeBase: cfg.Newsletter.UnsubscribeBase,
			Retry:           retry.DefaultPolicy(),
		}, subscribers, a.client, log.With(logger.String("component", "sender")))
	} else {
		log.Warn("RESEND_API_KEY not set; newsletter sending disabled")
	}

	if cfg.Digest.AnthropicAPIKey != "" && a.sender != nil {
		var opts []newsletter.DigestOption
		if a.redis != nil {
			opts = append(opts, newsletter.WithSentGuard(a.redis))
		}
		writer := newsletter.NewAnthropicWriter(cfg.Digest.AnthropicAPIKey, cfg.Digest.Model, a.client)
		a.digest = newsletter.NewDigest(a.articles, writer, a.sender, log.With(logger.String("component", "digest")), opts...)
	}

	if cfg.Push.Enabled() {
		a.push = push.NewService(push.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber:      cfg.Push.Subscriber,
		}, database.NewPushRepository(a.db), a.client, log.With(logger.String("component", "push")))
		if a.redis != nil {
			a.breaking = push.NewBreakingNotifier(a.articles, a.push, a.redis, log.With(logger.String("component", "breaking")))
		}
	} else {
		log.Warn("VAPID keys not set; push notifications disabled")
	}
}

func (a *app) redisPing() func(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
}

// Close empties the cache and closes every connection.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close redis", logger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", logger.Error(err))
		}
	}
}
