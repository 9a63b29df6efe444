// Package database holds the Postgres connection pool, schema migrations and
// the repositories every service reads and writes through.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	infraconfig "github.com/nordicstoday/nordics-today/infrastructure/config"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

const pingTimeout = 5 * time.Second

// NewPostgresConnection opens and pings a pooled connection.
func NewPostgresConnection(ctx context.Context, cfg infraconfig.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// ErrDataLayer marks errors raised by the database or its driver. Callers
// degrade on it; anything without the mark is a programming error.
var ErrDataLayer = errors.New("data layer")

// IsDataLayerError reports whether err came from the database, including
// deadline and cancellation errors surfaced by the driver.
func IsDataLayerError(err error) bool {
	return errors.Is(err, ErrDataLayer) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

const uniqueViolation = "23505"

// translate maps driver errors onto domain sentinels and marks the rest
// with ErrDataLayer.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDataLayer, err)
}
