package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/infrastructure/metrics"
	"github.com/nordicstoday/nordics-today/infrastructure/profiling"
	"github.com/nordicstoday/nordics-today/internal/api"
	"github.com/nordicstoday/nordics-today/internal/scheduler"
)

const schedulerStopTimeout = 30 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			stopProfiling, err := profiling.Start(cfg.Service.Name, cfg.Service.Version, log)
			if err != nil {
				log.Warn("Profiling not started", logger.Error(err))
			} else {
				defer stopProfiling()
			}

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	if cfg.Scheduler.Enabled {
		sched, err := a.scheduler()
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			//nolint:contextcheck // the serve context is done by now
			stopCtx, cancel := context.WithTimeout(context.Background(), schedulerStopTimeout)
			defer cancel()
			if stopErr := sched.Stop(stopCtx); stopErr != nil {
				log.Warn("Scheduler did not stop cleanly", logger.Error(stopErr))
			}
		}()
	}

	router := api.NewRouter(a.apiDeps(), log.With(logger.String("component", "api")))
	server := router.NewServer(api.ServerOptions{
		Port:        cfg.Server.Port,
		Debug:       cfg.Service.Debug,
		Version:     cfg.Service.Version,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		DBPing:      a.db.PingContext,
		RedisPing:   a.redisPing(),
	})

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// apiDeps hands the optional services to the router only when configured,
// so a missing one stays a nil interface and its routes answer 503.
func (a *app) apiDeps() api.Deps {
	deps := api.Deps{
		Articles:     a.articles,
		Pages:        a.pages,
		SEO:          a.seo,
		Newsletter:   a.newsletter,
		Contribute:   a.contribute,
		Cache:        a.cache,
		Gatherer:     a.registry,
		HTTP:         metrics.NewHTTP(a.registry, "nordics"),
		JWTSecret:    a.cfg.Auth.JWTSecret,
		WriteLimiter: api.NewRateLimiter(a.cfg.RateLimit.PerMinute, a.cfg.RateLimit.Burst),
	}
	if a.sender != nil {
		deps.Mailer = a.sender
	}
	if a.digest != nil {
		deps.Digest = a.digest
	}
	if a.push != nil {
		deps.Push = a.push
	}
	if a.cfg.Auth.JWTSecret == "" {
		a.log.Warn("AUTH_JWT_SECRET not set; admin routes are unauthenticated")
	}
	return deps
}

// scheduler registers the cron jobs whose services are configured.
func (a *app) scheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log.With(logger.String("component", "scheduler")),
		scheduler.WithJobTimeout(a.cfg.Scheduler.JobTimeout))

	if a.digest != nil {
		if err := sched.Add(scheduler.DigestJob(a.cfg.Digest.Schedule, a.digest)); err != nil {
			return nil, err
		}
	}
	if a.breaking != nil {
		if err := sched.Add(scheduler.BreakingJob(a.cfg.Push.BreakingSchedule, a.breaking)); err != nil {
			return nil, err
		}
	}
	a.log.Info("Scheduler configured", logger.Int("jobs", sched.Len()))
	return sched, nil
}
