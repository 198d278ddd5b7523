package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/propflow/mailtriage/internal/gmail"
	"github.com/propflow/mailtriage/internal/rate"
)

// Synchronizer reconciles a message's managed category labels so that
// exactly one is attached. It owns only labels under the Dashboard namespace
// and never touches user- or provider-created labels.
type Synchronizer struct {
	Client  gmail.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Synchronizer {
	if limiter == nil {
		limiter = rate.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{Client: client, Limiter: limiter, Logger: logger}
}

// SetCategory attaches cat's managed label to the message and removes every
// other managed label, in two sequential phases:
//
//	phase A: find-or-create all managed labels, remove them from the message
//	phase B: find-or-create the target label, add it
//
// Removing the full managed set first makes the operation idempotent:
// repeating it, or switching categories repeatedly, never leaves more than
// one managed label attached. The phases are not transactional — if phase B
// fails after phase A succeeded the message is left with zero managed labels,
// and the error tells the caller to re-run the (safe) operation.
func (s *Synchronizer) SetCategory(ctx context.Context, id gmail.MessageID, cat Category) error {
	if _, err := ParseCategory(string(cat)); err != nil {
		return err
	}

	// Phase A: clear the whole managed set, regardless of what is attached.
	managed := make([]gmail.LabelID, 0, len(Categories()))
	for _, c := range Categories() {
		lid, err := s.ensureLabel(ctx, c.LabelName())
		if err != nil {
			return fmt.Errorf("resolve managed label %s: %w", c.LabelName(), err)
		}
		managed = append(managed, lid)
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.Client.ModifyLabels(ctx, id, gmail.ModifyOps{Remove: managed}); err != nil {
		return fmt.Errorf("remove managed labels from %s: %w", id, err)
	}

	// Phase B: attach the target. Must not start before phase A's removals
	// are acknowledged, or two category labels could end up attached.
	target, err := s.ensureLabel(ctx, cat.LabelName())
	if err != nil {
		return fmt.Errorf("resolve target label %s: %w", cat.LabelName(), err)
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.Client.ModifyLabels(ctx, id, gmail.ModifyOps{Add: []gmail.LabelID{target}}); err != nil {
		return fmt.Errorf("add label %s to %s: %w", cat.LabelName(), id, err)
	}

	s.Logger.InfoContext(ctx, "category applied",
		slog.String("message", string(id)), slog.String("category", cat.String()))
	return nil
}

// ensureLabel resolves a label id by name, creating the label when missing.
// The name→id mapping is deliberately re-resolved on every call instead of
// cached: label ids can change under us and a stale cache costs more than
// the extra list. A create losing a race to another creator is tolerated by
// re-listing and using the winner's id.
func (s *Synchronizer) ensureLabel(ctx context.Context, name string) (gmail.LabelID, error) {
	if id, ok, err := s.findLabel(ctx, name); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	if err := s.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	created, err := s.Client.CreateLabel(ctx, name)
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, gmail.ErrAlreadyExists) {
		return "", err
	}

	// Lost a create race; the label exists now.
	id, ok, err := s.findLabel(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("label %q reported existing but not listed", name)
	}
	return id, nil
}

func (s *Synchronizer) findLabel(ctx context.Context, name string) (gmail.LabelID, bool, error) {
	if err := s.Limiter.Wait(ctx); err != nil {
		return "", false, err
	}
	labels, err := s.Client.ListLabels(ctx)
	if err != nil {
		return "", false, err
	}
	for _, l := range labels {
		if l.Name == name {
			return l.ID, true, nil
		}
	}
	return "", false, nil
}
