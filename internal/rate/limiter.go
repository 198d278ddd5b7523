package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter gates outbound Gmail API calls so concurrent message fetches and
// label mutations stay under the per-user quota.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket releases permits at a fixed rate, with a burst capacity of one
// second's worth. A refill goroutine runs from construction until Stop.
type TokenBucket struct {
	ticker  *time.Ticker
	permits chan struct{}
	quit    chan struct{}
	done    chan struct{}
}

// NewTokenBucket returns a limiter that releases rps permits per second.
func NewTokenBucket(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	tb := &TokenBucket{
		ticker:  time.NewTicker(time.Second / time.Duration(rps)),
		permits: make(chan struct{}, rps),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	// the first call proceeds immediately
	tb.permits <- struct{}{}
	go tb.refill()
	return tb
}

func (t *TokenBucket) refill() {
	defer close(t.done)
	for {
		select {
		case <-t.quit:
			return
		case <-t.ticker.C:
			select {
			case t.permits <- struct{}{}:
			default: // bucket full, drop the permit
			}
		}
	}
}

// Wait blocks until a permit is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.permits:
		return nil
	}
}

// Stop ends the refill goroutine and waits for it to exit. Callers blocked in
// Wait are not released; stop the limiter only after its users are done.
// Stop must be called at most once.
func (t *TokenBucket) Stop() {
	close(t.quit)
	<-t.done
	t.ticker.Stop()
}

// None is a pass-through limiter for tests and unthrottled runs.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }

var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = None{}
)
