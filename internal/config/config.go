// Package config holds the Nordics Today service configuration.
package config

import (
	"time"

	infraconfig "github.com/nordicstoday/nordics-today/infrastructure/config"
)

// Default configuration values.
const (
	defaultServiceName     = "nordics-today"
	defaultServiceVersion  = "0.1.0"
	defaultServicePort     = 3000
	defaultDBName          = "nordics"
	defaultDBUser          = "postgres"
	defaultCacheTTL        = 30 * time.Second
	defaultViewTimeout     = 5 * time.Second
	defaultRelatedTimeout  = 3 * time.Second
	defaultNewsletterFrom  = "Nordics Today <newsletter@nordicstoday.com>"
	defaultResendURL       = "https://api.resend.com"
	defaultBatchSize       = 50
	defaultUnsubscribeBase = "https://nordicstoday.com/unsubscribe"
	defaultDigestModel     = "claude-sonnet-4-20250514"
	defaultDigestSchedule  = "0 8 * * 0"
	defaultPushSubscriber  = "mailto:hello@nordicstoday.com"
	defaultBreakingSched   = "*/10 * * * *"
	defaultJobTimeout      = 10 * time.Minute
	defaultRatePerMinute   = 10
	defaultRateBurst       = 5
	defaultSiteOrigin      = "https://nordicstoday.com"
)

// Config holds the application configuration.
type Config struct {
	Service    ServiceConfig              `yaml:"service"`
	Server     infraconfig.ServerConfig   `yaml:"server"`
	Database   infraconfig.DatabaseConfig `yaml:"database"`
	Redis      infraconfig.RedisConfig    `yaml:"redis"`
	Cache      CacheConfig                `yaml:"cache"`
	CORS       CORSConfig                 `yaml:"cors"`
	Newsletter NewsletterConfig           `yaml:"newsletter"`
	Digest     DigestConfig               `yaml:"digest"`
	Push       PushConfig                 `yaml:"push"`
	Auth       AuthConfig                 `yaml:"auth"`
	Pages      PagesConfig                `yaml:"pages"`
	RateLimit  RateLimitConfig            `yaml:"rate_limit"`
	Scheduler  SchedulerConfig            `yaml:"scheduler"`
	Logging    infraconfig.LoggingConfig  `yaml:"logging"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// CacheConfig tunes the article read cache.
type CacheConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	ViewTimeout time.Duration `yaml:"view_timeout"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"allowed_origins"`
}

// NewsletterConfig configures the Resend batch sender.
type NewsletterConfig struct {
	ResendAPIKey    string `env:"RESEND_API_KEY" yaml:"resend_api_key"`
	ResendURL       string `yaml:"resend_url"`
	From            string `yaml:"from"`
	BatchSize       int    `yaml:"batch_size"`
	UnsubscribeBase string `yaml:"unsubscribe_base"`
}

// DigestConfig configures the weekly digest writer.
type DigestConfig struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" yaml:"anthropic_api_key"`
	Model           string `yaml:"model"`
	Schedule        string `yaml:"schedule"`
}

// PushConfig configures Web Push delivery.
type PushConfig struct {
	VAPIDPublicKey   string `env:"VAPID_PUBLIC_KEY"  yaml:"vapid_public_key"`
	VAPIDPrivateKey  string `env:"VAPID_PRIVATE_KEY" yaml:"vapid_private_key"`
	Subscriber       string `yaml:"subscriber"`
	BreakingSchedule string `yaml:"breaking_schedule"`
}

// Enabled reports whether both VAPID keys are set.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// AuthConfig holds the admin JWT secret.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// PagesConfig tunes page assembly.
type PagesConfig struct {
	RelatedTimeout time.Duration `yaml:"related_timeout"`
}

// RateLimitConfig bounds per-IP writes (subscribe, contribute).
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// SchedulerConfig toggles the in-process cron jobs.
type SchedulerConfig struct {
	Enabled    bool          `env:"SCHEDULER_ENABLED" yaml:"enabled"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// Load loads configuration from the specified path.
func Load(path string, opts ...infraconfig.Option) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults, opts...)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(cfg)
	if cfg.Database.User == "" {
		cfg.Database.User = defaultDBUser
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = defaultDBName
	}
	cfg.Database.SetDefaults()
	cfg.Logging.SetDefaults()
	setCacheDefaults(&cfg.Cache)
	setNewsletterDefaults(&cfg.Newsletter)
	setScheduleDefaults(cfg)
	if cfg.Pages.RelatedTimeout == 0 {
		cfg.Pages.RelatedTimeout = defaultRelatedTimeout
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{defaultSiteOrigin}
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = defaultRatePerMinute
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = defaultRateBurst
	}
}

func setServiceDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = defaultServiceVersion
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServicePort
	}
	cfg.Server.SetDefaults()
}

func setCacheDefaults(c *CacheConfig) {
	if c.TTL == 0 {
		c.TTL = defaultCacheTTL
	}
	if c.ViewTimeout == 0 {
		c.ViewTimeout = defaultViewTimeout
	}
}

func setNewsletterDefaults(n *NewsletterConfig) {
	if n.ResendURL == "" {
		n.ResendURL = defaultResendURL
	}
	if n.From == "" {
		n.From = defaultNewsletterFrom
	}
	if n.BatchSize == 0 {
		n.BatchSize = defaultBatchSize
	}
	if n.UnsubscribeBase == "" {
		n.UnsubscribeBase = defaultUnsubscribeBase
	}
}

func setScheduleDefaults(cfg *Config) {
	if cfg.Digest.Model == "" {
		cfg.Digest.Model = defaultDigestModel
	}
	if cfg.Digest.Schedule == "" {
		cfg.Digest.Schedule = defaultDigestSchedule
	}
	if cfg.Push.Subscriber == "" {
		cfg.Push.Subscriber = defaultPushSubscriber
	}
	if cfg.Push.BreakingSchedule == "" {
		cfg.Push.BreakingSchedule = defaultBreakingSched
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = defaultJobTimeout
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Cache.TTL < 0 {
		return &infraconfig.ValidationError{Field: "cache.ttl", Message: "must not be negative"}
	}
	if c.Newsletter.BatchSize < 1 || c.Newsletter.BatchSize > 100 {
		return &infraconfig.ValidationError{Field: "newsletter.batch_size", Message: "must be between 1 and 100"}
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return &infraconfig.ValidationError{Field: "push.vapid_private_key", Message: "both VAPID keys must be set together"}
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return &infraconfig.ValidationError{Field: "rate_limit", Message: "must not be negative"}
	}
	return nil
}
