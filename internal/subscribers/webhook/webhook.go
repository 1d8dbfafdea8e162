// Package webhook forwards lifecycle events to an HTTP endpoint, typically a
// reporting service that tracks hunt submissions.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBodyBytes  = 1 << 20
)

type Option func(*Subscriber)

type Subscriber struct {
	name       string
	url        string
	httpClient *http.Client
	logger     *zap.Logger
	filter     func(events.Type) bool
	headers    http.Header
}

func New(name string, url string, logger *zap.Logger, opts ...Option) *Subscriber {
	sub := &Subscriber{
		name:       strings.TrimSpace(name),
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
		headers:    http.Header{},
	}
	if sub.name == "" {
		sub.name = "webhook"
	}
	if sub.logger == nil {
		sub.logger = zap.NewNop()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sub)
		}
	}
	return sub
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Subscriber) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func WithEventFilter(filter func(events.Type) bool) Option {
	return func(s *Subscriber) {
		s.filter = filter
	}
}

// WithEventTypes forwards only the listed event types. An empty list
// forwards everything.
func WithEventTypes(types ...events.Type) Option {
	if len(types) == 0 {
		return nil
	}
	allowed := make(map[events.Type]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return WithEventFilter(func(t events.Type) bool {
		_, ok := allowed[t]
		return ok
	})
}

// WithHeader adds a static header, such as an auth token, to every post.
func WithHeader(key, value string) Option {
	return func(s *Subscriber) {
		if strings.TrimSpace(key) != "" {
			s.headers.Set(key, value)
		}
	}
}

func (s *Subscriber) Name() string {
	return s.name
}

func (s *Subscriber) Handle(ctx context.Context, event events.Envelope) error {
	if s.filter != nil && !s.filter(event.EventType) {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	for key, values := range s.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	// Retries re-send the same event id, so receivers can drop duplicates.
	req.Header.Set("X-Hunt-Event", string(event.EventType))
	req.Header.Set("Idempotency-Key", event.EventID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		s.logger.Debug("webhook delivered",
			zap.String("subscriber", s.name),
			zap.String("event_id", event.EventID),
			zap.Int("status", resp.StatusCode),
		)
		return nil
	}

	errorBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes+1))
	if err != nil {
		return fmt.Errorf("webhook status=%d read body: %w", resp.StatusCode, err)
	}
	truncated := ""
	if len(errorBody) > maxErrorBodyBytes {
		errorBody = errorBody[:maxErrorBodyBytes]
		truncated = " (truncated)"
	}
	return fmt.Errorf("webhook status=%d body=%q%s", resp.StatusCode, string(errorBody), truncated)
}
