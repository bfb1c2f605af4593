package darkroom

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// InitResult reports what EnsureInitialized changed. Both flags false means
// the timer already pointed into the future and was left alone.
type InitResult struct {
	Created   bool `json:"created,omitempty"`
	Refreshed bool `json:"refreshed,omitempty"`
}

// EnsureInitialized is called whenever a photo enters the developing state.
// It creates a missing timer, or moves a stale one (nextRevealAt absent or in
// the past) to a fresh randomized instant without touching lastRevealedAt.
func (s *Service) EnsureInitialized(ctx context.Context, userID string) (*InitResult, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	d, err := s.timers.GetDarkroom(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get darkroom timer for %s: %w", userID, err)
	}

	if d == nil {
		if _, err := s.createTimer(ctx, userID); err != nil {
			return nil, err
		}
		return &InitResult{Created: true}, nil
	}

	now := s.clock.Now()
	if d.NextRevealAt != nil && d.NextRevealAt.After(now) {
		return &InitResult{}, nil
	}

	stale := d.NextRevealAt
	next := s.nextRevealAt(now)
	d.NextRevealAt = &next
	if err := s.timers.PutDarkroom(ctx, d); err != nil {
		return nil, fmt.Errorf("refresh darkroom timer for %s: %w", userID, err)
	}

	evt := log.Info().Str("userId", userID).Time("nextRevealAt", next)
	if stale != nil {
		evt = evt.Time("staleRevealAt", *stale)
	}
	evt.Msg("Stale darkroom timer refreshed")
	return &InitResult{Refreshed: true}, nil
}
