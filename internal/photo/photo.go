// Package photo implements the PhotoRecord state machine outside of reveals:
// capture into developing, the darkroom fetch, single-photo triage, the batch
// committer that flushes a triage session, and reactions.
package photo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/store"
)

// DefaultDeletionGrace is how long a soft-deleted photo is kept before the
// purge sweep may remove it.
const DefaultDeletionGrace = 30 * 24 * time.Hour

// monthLayout buckets journaled/archived photos by capture month.
const monthLayout = "2006-01"

var (
	// ErrInvalidAction is returned for actions other than journal, archive, delete.
	ErrInvalidAction = errors.New("invalid triage action")
)

// Action is a triage decision.
type Action string

const (
	ActionJournal Action = "journal"
	ActionArchive Action = "archive"
	ActionDelete  Action = "delete"
)

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionJournal, ActionArchive, ActionDelete:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// State maps an action to the photoState it produces.
func (a Action) State() store.PhotoState {
	switch a {
	case ActionJournal:
		return store.StateJournal
	case ActionArchive:
		return store.StateArchive
	case ActionDelete:
		return store.StateDeleted
	}
	return store.StateNone
}

// DarkroomInitializer is the darkroom guard invoked on capture.
type DarkroomInitializer interface {
	EnsureInitialized(ctx context.Context, userID string) (*darkroom.InitResult, error)
}

// Service operates on PhotoRecords.
type Service struct {
	photos   store.PhotoStore
	darkroom DarkroomInitializer
	clock    darkroom.Clock
	grace    time.Duration
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c darkroom.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithDeletionGrace overrides DefaultDeletionGrace. Non-positive values are ignored.
func WithDeletionGrace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithIDGenerator overrides the uuid photo ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service. dr may be nil, in which case Capture does
// not touch the darkroom timer.
func NewService(photos store.PhotoStore, dr DarkroomInitializer, opts ...Option) *Service {
	s := &Service{
		photos:   photos,
		darkroom: dr,
		clock:    darkroom.SystemClock(),
		grace:    DefaultDeletionGrace,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture creates a developing photo for userID and makes sure the user's
// darkroom timer is live. A timer failure is logged, not returned: the photo
// is already stored and the next capture or load recovers the timer.
func (s *Service) Capture(ctx context.Context, userID, imageURL string) (*store.Photo, error) {
	if userID == "" {
		return nil, darkroom.ErrEmptyUserID
	}

	p := &store.Photo{
		ID:         s.newID(),
		UserID:     userID,
		ImageURL:   imageURL,
		CapturedAt: s.clock.Now(),
		Status:     store.StatusDeveloping,
		Visibility: store.VisibilityFriends,
		Reactions:  map[string]string{},
	}
	if err := s.photos.PutPhoto(ctx, p); err != nil {
		return nil, fmt.Errorf("capture photo for %s: %w", userID, err)
	}

	if s.darkroom != nil {
		if _, err := s.darkroom.EnsureInitialized(ctx, userID); err != nil {
			log.Warn().Err(err).Str("userId", userID).Str("photoId", p.ID).Msg("Darkroom init after capture failed")
		}
	}

	log.Info().Str("userId", userID).Str("photoId", p.ID).Msg("Photo captured")
	return p, nil
}

// GetDevelopingPhotos returns the user's developing and revealed photos,
// fetched with one query per status and sorted by capture time, oldest first.
func (s *Service) GetDevelopingPhotos(ctx context.Context, userID string) ([]*store.Photo, error) {
	if userID == "" {
		return nil, darkroom.ErrEmptyUserID
	}

	developing, err := s.photos.QueryPhotos(ctx, userID, store.StatusDeveloping)
	if err != nil {
		return nil, fmt.Errorf("query developing photos for %s: %w", userID, err)
	}
	revealed, err := s.photos.QueryPhotos(ctx, userID, store.StatusRevealed)
	if err != nil {
		return nil, fmt.Errorf("query revealed photos for %s: %w", userID, err)
	}

	photos := make([]*store.Photo, 0, len(developing)+len(revealed))
	photos = append(photos, developing...)
	photos = append(photos, revealed...)
	sortByCapture(photos)
	return photos, nil
}

// sortByCapture orders oldest first; ties break on ID for a stable session order.
func sortByCapture(photos []*store.Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		if !photos[i].CapturedAt.Equal(photos[j].CapturedAt) {
			return photos[i].CapturedAt.Before(photos[j].CapturedAt)
		}
		return photos[i].ID < photos[j].ID
	})
}

// TriagePhoto moves one photo to triaged with the state matching action.
// Delete is a soft delete: the record is kept with a purge instant
// DeletionGrace from now.
func (s *Service) TriagePhoto(ctx context.Context, photoID string, action Action) error {
	return s.triage(ctx, photoID, action, nil)
}

func (s *Service) triage(ctx context.Context, photoID string, action Action, tags []string) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}

	triaged := store.StatusTriaged
	state := action.State()
	u := store.PhotoUpdate{
		Status:     &triaged,
		PhotoState: &state,
	}

	if action == ActionDelete {
		purgeAt := s.clock.Now().Add(s.grace)
		u.ScheduledForPermanentDeletionAt = &purgeAt
	} else {
		p, err := s.photos.GetPhoto(ctx, photoID)
		if err != nil {
			return fmt.Errorf("triage photo %s: %w", photoID, err)
		}
		if p == nil {
			return fmt.Errorf("triage photo %s: %w", photoID, store.ErrNotFound)
		}
		month := p.CapturedAt.UTC().Format(monthLayout)
		u.Month = &month
		if len(tags) > 0 {
			u.TaggedUserIDs = tags
		}
	}

	if err := s.photos.UpdatePhoto(ctx, photoID, u); err != nil {
		return fmt.Errorf("triage photo %s: %w", photoID, err)
	}

	log.Debug().Str("photoId", photoID).Str("action", string(action)).Msg("Photo triaged")
	return nil
}
