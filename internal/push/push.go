// Package push delivers Web Push notifications to browser subscribers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/sync/errgroup"

	infrahttp "github.com/nordicstoday/nordics-today/infrastructure/http"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
)

// Delivery defaults.
const (
	DefaultTTL         = 86400
	DefaultURL         = "/"
	DefaultIcon        = "/android-chrome-192x192.png"
	DefaultConcurrency = 16
)

// ErrInvalidSubscription rejects subscriptions without an endpoint or keys.
var ErrInvalidSubscription = errors.New("invalid subscription")

// Notification is the payload the service worker renders.
type Notification struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

// Result counts subscriptions by delivery outcome.
type Result struct {
	Sent    int `json:"sent"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Store is the push_subscriptions table.
type Store interface {
	Upsert(ctx context.Context, sub domain.PushSubscription) error
	Delete(ctx context.Context, endpoint string) error
	All(ctx context.Context) ([]domain.PushSubscription, error)
}

// Config carries the VAPID identity.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
	Concurrency     int
}

// Service manages subscriptions and broadcasts.
type Service struct {
	cfg    Config
	store  Store
	client *http.Client
	log    logger.Logger
}

func NewService(cfg Config, store Store, client *http.Client, log logger.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if client == nil {
		client = infrahttp.NewClient(nil)
	}
	// webpush-go adds the mailto: scheme itself.
	cfg.Subscriber = strings.TrimPrefix(cfg.Subscriber, "mailto:")
	return &Service{cfg: cfg, store: store, client: client, log: log}
}

// Subscribe stores sub, replacing the keys of a known endpoint.
func (s *Service) Subscribe(ctx context.Context, sub domain.PushSubscription, userAgent string) error {
	if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
		return ErrInvalidSubscription
	}
	sub.UserAgent = userAgent
	if err := s.store.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// Unsubscribe forgets endpoint.
func (s *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return ErrInvalidSubscription
	}
	if err := s.store.Delete(ctx, endpoint); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// Broadcast sends n to every subscriber concurrently. Endpoints the push
// service reports gone (404, 410) are deleted.
func (s *Service) Broadcast(ctx context.Context, n Notification) (Result, error) {
	if n.URL == "" {
		n.URL = DefaultURL
	}
	if n.Icon == "" {
		n.Icon = DefaultIcon
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return Result{}, fmt.Errorf("encode notification: %w", err)
	}

	subs, err := s.store.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list subscriptions: %w", err)
	}

	var (
		mu  sync.Mutex
		res = Result{Total: len(subs)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			outcome := s.deliver(gctx, payload, sub)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case delivered:
				res.Sent++
			case gone:
				res.Removed++
			default:
				res.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("Push broadcast finished",
		logger.String("title", n.Title),
		logger.Int("sent", res.Sent),
		logger.Int("removed", res.Removed),
		logger.Int("failed", res.Failed),
		logger.Int("total", res.Total))
	return res, nil
}

type outcome int

const (
	delivered outcome = iota
	gone
	failed
)

func (s *Service) deliver(ctx context.Context, payload []byte, sub domain.PushSubscription) outcome {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		s.log.Warn("Push delivery failed", logger.String("endpoint", sub.Endpoint), logger.Error(err))
		return failed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Deletion must outlive a cancelled broadcast.
		if err = s.store.Delete(context.WithoutCancel(ctx), sub.Endpoint); err != nil {
			s.log.Warn("Failed to remove expired subscription", logger.String("endpoint", sub.Endpoint), logger.Error(err))
		}
		return gone
	case resp.StatusCode >= http.StatusBadRequest:
		s.log.Warn("Push service rejected notification",
			logger.String("endpoint", sub.Endpoint),
			logger.Int("status", resp.StatusCode))
		return failed
	}
	return delivered
}
