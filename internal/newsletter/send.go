package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordicstoday/nordics-today/infrastructure/circuitbreaker"
	infraerrors "github.com/nordicstoday/nordics-today/infrastructure/errors"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/infrastructure/retry"
)

// UnsubscribePlaceholder is replaced per recipient in HTML and text bodies.
const UnsubscribePlaceholder = "{{unsubscribe_url}}"

const (
	defaultBatchSize = 50
	tracerName       = "github.com/nordicstoday/nordics-today/internal/newsletter"
)

// Message is one newsletter issue.
type Message struct {
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
	Text    string `json:"text,omitempty"`
}

// Result counts recipients by outcome.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	APIKey          string
	BaseURL         string
	From            string
	BatchSize       int
	UnsubscribeBase string
	Retry           retry.Policy
	Breaker         circuitbreaker.Config
}

// Sender posts issues to every active subscriber in batches.
type Sender struct {
	cfg         SenderConfig
	subscribers Subscribers
	client      *http.Client
	breaker     *circuitbreaker.Breaker
	log         logger.Logger
	tracer      trace.Tracer
}

func NewSender(cfg SenderConfig, subscribers Subscribers, client *http.Client, log logger.Logger) *Sender {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultBatchSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	breakerCfg := cfg.Breaker
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		log.Warn("Email provider circuit changed state",
			logger.String("from", from.String()),
			logger.String("to", to.String()))
	}
	return &Sender{
		cfg:         cfg,
		subscribers: subscribers,
		client:      client,
		breaker:     circuitbreaker.New(breakerCfg),
		log:         log,
		tracer:      otel.Tracer(tracerName),
	}
}

type email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

// UnsubscribeURL is the one-click unsubscribe link for address.
func (s *Sender) UnsubscribeURL(address string) string {
	return s.cfg.UnsubscribeBase + "?email=" + url.QueryEscape(address)
}

func (s *Sender) personalise(m Message, address string) email {
	link := s.UnsubscribeURL(address)
	return email{
		From:    s.cfg.From,
		To:      address,
		Subject: m.Subject,
		HTML:    strings.ReplaceAll(m.HTML, UnsubscribePlaceholder, link),
		Text:    strings.ReplaceAll(m.Text, UnsubscribePlaceholder, link),
	}
}

// Send delivers m to every active subscriber. A failed batch counts all of
// its recipients as failed and does not stop later batches.
func (s *Sender) Send(ctx context.Context, m Message) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "newsletter.send",
		trace.WithAttributes(attribute.String("subject", m.Subject)))
	defer span.End()

	emails, err := s.subscribers.ActiveEmails(ctx)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("list subscribers: %w", err)
	}
	if len(emails) == 0 {
		return Result{}, ErrNoSubscribers
	}

	res := Result{Total: len(emails)}
	for start := 0; start < len(emails); start += s.cfg.BatchSize {
		batch := emails[start:min(start+s.cfg.BatchSize, len(emails))]
		if err = s.sendBatch(ctx, m, batch); err != nil {
			span.RecordError(err)
			s.log.Error("Newsletter batch failed",
				logger.Int("offset", start),
				logger.Int("size", len(batch)),
				logger.Error(err))
			res.Failed += len(batch)
			continue
		}
		res.Sent += len(batch)
	}

	span.SetAttributes(attribute.Int("sent", res.Sent), attribute.Int("failed", res.Failed))
	s.log.Info("Newsletter sent",
		logger.String("subject", m.Subject),
		logger.Int("sent", res.Sent),
		logger.Int("failed", res.Failed),
		logger.Int("total", res.Total))
	return res, nil
}

func (s *Sender) sendBatch(ctx context.Context, m Message, batch []string) error {
	payload := make([]email, len(batch))
	for i, address := range batch {
		payload[i] = s.personalise(m, address)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
			return s.post(ctx, body)
		})
	})
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/emails/batch", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if err = infraerrors.ParseHTTPError(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
