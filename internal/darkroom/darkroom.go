// Package darkroom implements the per-user reveal timer and the reveal engine
// that moves developing photos to revealed in bulk.
//
// Every user owns one timer (store.Darkroom). Its nextRevealAt is always a
// uniformly random instant within MaxRevealDelay of the moment it was last
// (re)scheduled. Once that instant passes the timer is due: the next load of
// the triage surface reveals every developing photo and then reschedules.
// Reveal always precedes rescheduling, so a failed reveal leaves the timer due
// and the next load retries it.
package darkroom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/metrics"
	"github.com/fpang/darkroom/internal/store"
)

const (
	// DefaultMaxRevealDelay bounds the random delay between reveals.
	DefaultMaxRevealDelay = 15 * time.Minute

	// MinRevealDelay keeps nextRevealAt strictly after the instant it was
	// scheduled.
	MinRevealDelay = time.Second
)

// ErrEmptyUserID is returned by every operation given an empty user ID.
var ErrEmptyUserID = errors.New("darkroom: empty user id")

// Service owns timer reads/writes and bulk reveals.
type Service struct {
	timers   store.DarkroomStore
	photos   store.PhotoStore
	clock    Clock
	maxDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMaxRevealDelay overrides DefaultMaxRevealDelay. Non-positive values are ignored.
func WithMaxRevealDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxDelay = d
		}
	}
}

// NewService creates a Service over the given stores.
func NewService(timers store.DarkroomStore, photos store.PhotoStore, opts ...Option) *Service {
	s := &Service{
		timers:   timers,
		photos:   photos,
		clock:    SystemClock(),
		maxDelay: DefaultMaxRevealDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RevealResult is the outcome of RevealPhotos.
type RevealResult struct {
	Count      int       `json:"count"`
	RevealedAt time.Time `json:"revealedAt"`
}

// ScheduleResult is the outcome of ScheduleNextReveal.
type ScheduleResult struct {
	NextRevealAt   time.Time `json:"nextRevealAt"`
	LastRevealedAt time.Time `json:"lastRevealedAt"`
}

// nextRevealAt picks now + U[0, maxDelay), floored at MinRevealDelay.
func (s *Service) nextRevealAt(now time.Time) time.Time {
	delay := time.Duration(s.clock.Random() * float64(s.maxDelay))
	if delay < MinRevealDelay {
		delay = MinRevealDelay
	}
	return now.Add(delay)
}

// createTimer writes a fresh timer for a user who has none.
func (s *Service) createTimer(ctx context.Context, userID string) (*store.Darkroom, error) {
	now := s.clock.Now()
	next := s.nextRevealAt(now)
	d := &store.Darkroom{
		UserID:       userID,
		NextRevealAt: &next,
		CreatedAt:    now,
	}
	if err := s.timers.PutDarkroom(ctx, d); err != nil {
		return nil, fmt.Errorf("create darkroom timer for %s: %w", userID, err)
	}
	log.Info().Str("userId", userID).Time("nextRevealAt", next).Msg("Darkroom timer created")
	return d, nil
}

// GetOrCreateTimer returns the user's timer, creating it with a randomized
// nextRevealAt when none exists.
func (s *Service) GetOrCreateTimer(ctx context.Context, userID string) (*store.Darkroom, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	d, err := s.timers.GetDarkroom(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get darkroom timer for %s: %w", userID, err)
	}
	if d != nil {
		return d, nil
	}
	return s.createTimer(ctx, userID)
}

// IsReadyToReveal reports whether the user's timer is due (nextRevealAt <= now).
// It is a read-only probe: a missing timer, a missing nextRevealAt, or a read
// failure all report false.
func (s *Service) IsReadyToReveal(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	d, err := s.timers.GetDarkroom(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("Darkroom probe failed, treating as not ready")
		return false
	}
	if d == nil || d.NextRevealAt == nil {
		return false
	}
	return !d.NextRevealAt.After(s.clock.Now())
}

// RevealPhotos transitions every developing photo of the user to revealed in
// one batch, stamping revealedAt. No developing photos is a zero-count success.
func (s *Service) RevealPhotos(ctx context.Context, userID string) (*RevealResult, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	developing, err := s.photos.QueryPhotos(ctx, userID, store.StatusDeveloping)
	if err != nil {
		return nil, fmt.Errorf("query developing photos for %s: %w", userID, err)
	}

	now := s.clock.Now()
	result := &RevealResult{RevealedAt: now}
	if len(developing) == 0 {
		log.Debug().Str("userId", userID).Msg("No developing photos to reveal")
		return result, nil
	}

	revealed := store.StatusRevealed
	patches := make([]store.PhotoPatch, 0, len(developing))
	for _, p := range developing {
		patches = append(patches, store.PhotoPatch{
			PhotoID: p.ID,
			Update: store.PhotoUpdate{
				Status:     &revealed,
				RevealedAt: &now,
			},
		})
	}

	if err := s.photos.BatchUpdatePhotos(ctx, patches); err != nil {
		log.Error().Err(err).Str("userId", userID).Int("photos", len(patches)).Msg("Reveal batch failed")
		return nil, fmt.Errorf("reveal photos for %s: %w", userID, err)
	}

	result.Count = len(patches)
	log.Info().Str("userId", userID).Int("count", result.Count).Msg("Photos revealed")
	metrics.New("reveal").
		Count(metrics.RevealedPhotos, result.Count).
		Property("userId", userID).
		Flush()
	return result, nil
}

// ScheduleNextReveal sets lastRevealedAt = now and a fresh randomized
// nextRevealAt. Callers must only invoke it after RevealPhotos succeeded.
func (s *Service) ScheduleNextReveal(ctx context.Context, userID string) (*ScheduleResult, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	d, err := s.timers.GetDarkroom(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get darkroom timer for %s: %w", userID, err)
	}

	now := s.clock.Now()
	if d == nil {
		d = &store.Darkroom{UserID: userID, CreatedAt: now}
	}
	next := s.nextRevealAt(now)
	d.NextRevealAt = &next
	d.LastRevealedAt = &now

	if err := s.timers.PutDarkroom(ctx, d); err != nil {
		return nil, fmt.Errorf("schedule next reveal for %s: %w", userID, err)
	}

	log.Info().Str("userId", userID).Time("nextRevealAt", next).Msg("Next reveal scheduled")
	return &ScheduleResult{NextRevealAt: next, LastRevealedAt: now}, nil
}

// RevealAndSchedule runs the reveal then the reschedule, in that order. The
// timer is only advanced when the reveal succeeded.
func (s *Service) RevealAndSchedule(ctx context.Context, userID string) (*RevealResult, *ScheduleResult, error) {
	revealed, err := s.RevealPhotos(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	scheduled, err := s.ScheduleNextReveal(ctx, userID)
	if err != nil {
		return revealed, nil, err
	}
	return revealed, scheduled, nil
}

// Status is a snapshot of a user's timer.
type Status struct {
	UserID         string     `json:"userId"`
	Exists         bool       `json:"exists"`
	NextRevealAt   *time.Time `json:"nextRevealAt,omitempty"`
	LastRevealedAt *time.Time `json:"lastRevealedAt,omitempty"`
	Ready          bool       `json:"ready"`
	// Remaining is the time until nextRevealAt, floored at zero.
	Remaining time.Duration `json:"remaining"`
}

// Status reads the timer without creating or advancing it.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	d, err := s.timers.GetDarkroom(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get darkroom timer for %s: %w", userID, err)
	}
	st := &Status{UserID: userID}
	if d == nil {
		return st, nil
	}

	st.Exists = true
	st.NextRevealAt = d.NextRevealAt
	st.LastRevealedAt = d.LastRevealedAt
	if d.NextRevealAt != nil {
		now := s.clock.Now()
		st.Ready = !d.NextRevealAt.After(now)
		if !st.Ready {
			st.Remaining = d.NextRevealAt.Sub(now)
		}
	}
	return st, nil
}
