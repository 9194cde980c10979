package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/rs/zerolog"
)

/* Fallback implementation of webhook.Repository
 * Decorates a structured primary store with a secondary one (usually the file store)
 * The secondary is written only when the primary create fails, so each event has exactly one record
 */

type Repository struct {
	Primary   webhook.Repository
	Secondary webhook.Repository
	logger    zerolog.Logger
}

// NewRepository composes the two stores
func NewRepository(primary, secondary webhook.Repository, logger zerolog.Logger) *Repository {
	return &Repository{
		Primary:   primary,
		Secondary: secondary,
		logger:    logger.With().Str("component", "fallback_store").Logger(),
	}
}

// Create writes to the primary; on failure the event lands in the secondary and the receipt is marked degraded
func (r *Repository) Create(ctx context.Context, event webhook.Event) (webhook.Receipt, error) {
	receipt, err := r.Primary.Create(ctx, event)
	if err == nil {
		return receipt, nil
	}
	r.logger.Warn().Err(err).Str("source", event.Source).Msg("primary store create failed, using fallback")

	receipt, ferr := r.Secondary.Create(ctx, event)
	if ferr != nil {
		return webhook.Receipt{}, fmt.Errorf("creating event in every store: %w", errors.Join(err, ferr))
	}
	receipt.Degraded = true
	return receipt, nil
}

// Get looks the ID up in the primary, then in the secondary
func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	event, err := r.Primary.Get(ctx, id)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, webhook.ErrNotFound) {
		r.logger.Warn().Err(err).Str("event_id", id).Msg("primary store get failed, using fallback")
	}

	event, ferr := r.Secondary.Get(ctx, id)
	if ferr == nil {
		return event, nil
	}
	return webhook.Event{}, pick(err, ferr)
}

// Update patches the record wherever it lives
func (r *Repository) Update(ctx context.Context, id string, patch webhook.Patch) error {
	err := r.Primary.Update(ctx, id, patch)
	if err == nil {
		return nil
	}
	if !errors.Is(err, webhook.ErrNotFound) {
		r.logger.Warn().Err(err).Str("event_id", id).Msg("primary store update failed, using fallback")
	}

	ferr := r.Secondary.Update(ctx, id, patch)
	if ferr == nil {
		return nil
	}
	return pick(err, ferr)
}

// List prefers the primary and reads the secondary only when the primary is unavailable
func (r *Repository) List(ctx context.Context, limit int) ([]webhook.Event, error) {
	events, err := r.Primary.List(ctx, limit)
	if err == nil {
		return events, nil
	}
	r.logger.Warn().Err(err).Msg("primary store list failed, using fallback")

	events, ferr := r.Secondary.List(ctx, limit)
	if ferr != nil {
		return nil, fmt.Errorf("listing events from every store: %w", errors.Join(err, ferr))
	}
	return events, nil
}

func (r *Repository) Close(ctx context.Context) error {
	return errors.Join(r.Primary.Close(ctx), r.Secondary.Close(ctx))
}

// pick reports not found only when neither store failed for another reason
func pick(primary, secondary error) error {
	switch {
	case errors.Is(primary, webhook.ErrNotFound) && errors.Is(secondary, webhook.ErrNotFound):
		return webhook.ErrNotFound
	case !errors.Is(primary, webhook.ErrNotFound):
		return primary
	default:
		return secondary
	}
}
