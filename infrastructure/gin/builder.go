package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nordicstoday/nordics-today/infrastructure/jwt"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
)

// ServerBuilder configures a Server fluently.
type ServerBuilder struct {
	config      *Config
	logger      logger.Logger
	middleware  []gin.HandlerFunc
	setupRoutes func(*gin.Engine)
	checks      map[string]HealthChecker
}

func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config: NewConfig(serviceName, port),
		checks: make(map[string]HealthChecker),
	}
}

func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

func (b *ServerBuilder) WithCORS(cfg CORSConfig) *ServerBuilder {
	cfg.SetDefaults()
	b.config.CORS = cfg
	return b
}

// WithTimeouts overrides non-zero timeouts only.
func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	if read > 0 {
		b.config.ReadTimeout = read
	}
	if write > 0 {
		b.config.WriteTimeout = write
	}
	if idle > 0 {
		b.config.IdleTimeout = idle
	}
	return b
}

// WithMiddleware appends handlers that run after the standard chain and
// before any route.
func (b *ServerBuilder) WithMiddleware(mw ...gin.HandlerFunc) *ServerBuilder {
	b.middleware = append(b.middleware, mw...)
	return b
}

func (b *ServerBuilder) WithHealthCheck(name string, checker HealthChecker) *ServerBuilder {
	b.checks[name] = checker
	return b
}

// WithDatabaseHealthCheck reports the service unhealthy when ping fails.
func (b *ServerBuilder) WithDatabaseHealthCheck(ping func() error) *ServerBuilder {
	return b.WithHealthCheck("database", PingChecker("database", ping, HealthStatusUnhealthy))
}

// WithRedisHealthCheck reports the service degraded when ping fails; Redis
// only backs notification bookkeeping.
func (b *ServerBuilder) WithRedisHealthCheck(ping func() error) *ServerBuilder {
	return b.WithHealthCheck("redis", PingChecker("redis", ping, HealthStatusDegraded))
}

func (b *ServerBuilder) WithRoutes(setup func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setup
	return b
}

func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.Must(logger.Config{Development: b.config.Debug, Service: b.config.ServiceName})
	}

	setup := func(r *gin.Engine) {
		r.Use(b.middleware...)
		RegisterHealthRoutes(r, HealthOptions{
			ServiceName:    b.config.ServiceName,
			ServiceVersion: b.config.ServiceVersion,
			Checks:         b.checks,
		})
		if b.setupRoutes != nil {
			b.setupRoutes(r)
		}
	}

	return NewServer(b.config, b.logger, setup)
}

// ProtectedGroup mounts a JWT-guarded group. An empty secret leaves the group
// open, which is only acceptable in local development.
func ProtectedGroup(r gin.IRouter, path, secret string) *gin.RouterGroup {
	g := r.Group(path)
	if secret != "" {
		g.Use(jwt.Middleware(secret))
	}
	return g
}
