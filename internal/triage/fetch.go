package triage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/propflow/mailtriage/internal/gmail"
	"github.com/propflow/mailtriage/internal/rate"
)

const defaultFanOut = 5

// Message is a provider message annotated with its derived category. The
// category is advisory until the Synchronizer reflects it in the label store.
type Message struct {
	gmail.Message
	Category Category
}

// Fetcher lists messages and classifies each one. Every call re-issues the
// underlying list and detail calls; results are not cached or restartable.
type Fetcher struct {
	Client  gmail.Client
	Limiter rate.Limiter
	Logger  *slog.Logger

	// FanOut bounds concurrent detail fetches. Detail reads are independent;
	// output order is restored to list order regardless of completion order.
	FanOut int
}

// NewFetcher constructs a Fetcher with sane defaults.
func NewFetcher(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Fetcher {
	if limiter == nil {
		limiter = rate.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{Client: client, Limiter: limiter, Logger: logger, FanOut: defaultFanOut}
}

// ListClassified fetches up to maxResults message envelopes matching query
// and classifies each. A failed detail fetch drops that message from the
// result rather than aborting the batch; only the list call itself is fatal.
// Output ordering follows the provider's list ordering.
func (f *Fetcher) ListClassified(ctx context.Context, maxResults int64, query string) ([]Message, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ids, err := f.Client.ListMessageIDs(ctx, maxResults, query)
	if err != nil {
		return nil, fmt.Errorf("list message ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	fanOut := f.FanOut
	if fanOut <= 0 {
		fanOut = 1
	}

	// Indexed slots keep list order; failed slots stay nil and are dropped.
	results := make([]*Message, len(ids))
	var wg sync.WaitGroup
	sem := make(chan struct{}, fanOut)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id gmail.MessageID) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = f.fetchOne(ctx, id)
		}(i, id)
	}
	wg.Wait()

	out := make([]Message, 0, len(ids))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// fetchOne retrieves and classifies a single message, returning nil on any
// fetch failure. Body decode problems degrade to an empty body.
func (f *Fetcher) fetchOne(ctx context.Context, id gmail.MessageID) *Message {
	if err := f.Limiter.Wait(ctx); err != nil {
		f.Logger.WarnContext(ctx, "skipping message", slog.String("id", string(id)), slog.Any("error", err))
		return nil
	}
	msg, err := f.Client.GetMessage(ctx, id)
	if err != nil {
		f.Logger.WarnContext(ctx, "dropping message from batch", slog.String("id", string(id)), slog.Any("error", err))
		return nil
	}
	body, err := ExtractBody(msg)
	if err != nil {
		f.Logger.WarnContext(ctx, "body decode failed, classifying headers only",
			slog.String("id", string(id)), slog.Any("error", err))
	}
	return &Message{Message: msg, Category: Classify(msg, body)}
}

// FilterByCategory returns the subset of msgs carrying cat, preserving order.
func FilterByCategory(msgs []Message, cat Category) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Category == cat {
			out = append(out, m)
		}
	}
	return out
}
