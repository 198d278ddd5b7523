package triage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/propflow/mailtriage/internal/credential"
	"github.com/propflow/mailtriage/internal/gmail"
	"github.com/propflow/mailtriage/internal/rate"
)

// ClientFactory builds a provider client scoped to one access token. The
// server passes runtime.NewTokenClient; tests inject fakes.
type ClientFactory func(ctx context.Context, accessToken string) (gmail.Client, error)

// Service is the caller-facing triage surface. Every operation receives the
// caller's credential bundle, silently refreshes it when stale, and returns
// the possibly-updated bundle so the transport can re-issue it. No credential
// or classification state is held between calls.
type Service struct {
	Refresher *credential.Refresher
	NewClient ClientFactory
	Limiter   rate.Limiter
	Logger    *slog.Logger
	FanOut    int
}

// NewService constructs a Service with sane defaults.
func NewService(refresher *credential.Refresher, factory ClientFactory, limiter rate.Limiter, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = rate.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Refresher: refresher,
		NewClient: factory,
		Limiter:   limiter,
		Logger:    logger,
		FanOut:    defaultFanOut,
	}
}

// ListClassified returns up to maxResults classified messages matching query,
// along with the (possibly refreshed) credential bundle.
func (s *Service) ListClassified(ctx context.Context, b credential.Bundle, maxResults int64, query string) ([]Message, credential.Bundle, bool, error) {
	b, refreshed, err := s.Refresher.EnsureValid(ctx, b)
	if err != nil {
		return nil, credential.Bundle{}, false, err
	}
	client, err := s.NewClient(ctx, b.AccessToken)
	if err != nil {
		return nil, b, refreshed, fmt.Errorf("build provider client: %w", err)
	}
	fetcher := NewFetcher(client, s.Limiter, s.Logger)
	if s.FanOut > 0 {
		fetcher.FanOut = s.FanOut
	}
	msgs, err := fetcher.ListClassified(ctx, maxResults, query)
	if err != nil {
		return nil, b, refreshed, err
	}
	return msgs, b, refreshed, nil
}

// ChangeCategory moves the message to the given category. The category
// string is validated before any provider call, including the refresh.
func (s *Service) ChangeCategory(ctx context.Context, b credential.Bundle, id gmail.MessageID, category string) (credential.Bundle, bool, error) {
	cat, err := ParseCategory(category)
	if err != nil {
		return b, false, err
	}
	b, refreshed, err := s.Refresher.EnsureValid(ctx, b)
	if err != nil {
		return credential.Bundle{}, false, err
	}
	client, err := s.NewClient(ctx, b.AccessToken)
	if err != nil {
		return b, refreshed, fmt.Errorf("build provider client: %w", err)
	}
	sync := NewSynchronizer(client, s.Limiter, s.Logger)
	if err := sync.SetCategory(ctx, id, cat); err != nil {
		return b, refreshed, err
	}
	return b, refreshed, nil
}
