// Package store provides persistent state for the darkroom photo lifecycle:
// one PhotoRecord per captured photo and one darkroom timer per user.
//
// Two logical collections exist, mirroring the document layout used by the
// mobile client:
//
//	darkrooms/{userId}  next/last reveal instants for a user
//	photos/{photoId}    the photo record and its lifecycle status
//
// Three implementations share the same contract: DynamoStore (single-table
// DynamoDB with a user/status GSI), FirestoreStore (native collections) and
// MemoryStore (tests and the local demo).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by record-specific mutations (UpdatePhoto, reactions)
// when the target record does not exist. Get methods return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// PhotoStore persists PhotoRecords. Implementations must be safe for
// concurrent use.
type PhotoStore interface {
	// GetPhoto returns the photo, or nil, nil if it does not exist.
	GetPhoto(ctx context.Context, photoID string) (*Photo, error)

	// PutPhoto creates or fully replaces a photo record.
	PutPhoto(ctx context.Context, photo *Photo) error

	// UpdatePhoto applies the non-nil fields of u. Returns ErrNotFound
	// (wrapped) when the photo does not exist.
	UpdatePhoto(ctx context.Context, photoID string, u PhotoUpdate) error

	// QueryPhotos returns every photo owned by userID with the given status.
	// Order is unspecified.
	QueryPhotos(ctx context.Context, userID string, status Status) ([]*Photo, error)

	// BatchUpdatePhotos applies all patches as one logical batch. On failure
	// the returned error is a *BatchError reporting how many patches were
	// applied before the failure.
	BatchUpdatePhotos(ctx context.Context, patches []PhotoPatch) error
}

// DarkroomStore persists the per-user darkroom timer.
type DarkroomStore interface {
	// GetDarkroom returns the user's timer, or nil, nil if none exists yet.
	GetDarkroom(ctx context.Context, userID string) (*Darkroom, error)

	// PutDarkroom creates or fully replaces the user's timer.
	PutDarkroom(ctx context.Context, d *Darkroom) error
}

// Store is the union used by the services and the binaries.
type Store interface {
	PhotoStore
	DarkroomStore
}

// BatchError reports a partially applied BatchUpdatePhotos call.
type BatchError struct {
	Applied int
	Total   int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch update applied %d/%d: %v", e.Applied, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// --- Domain types ---

// Status is the coarse lifecycle position of a photo.
type Status string

const (
	StatusDeveloping Status = "developing"
	StatusRevealed   Status = "revealed"
	StatusTriaged    Status = "triaged"
)

// PhotoState is the triage outcome. It is empty (null) unless the photo's
// status is StatusTriaged.
type PhotoState string

const (
	StateNone    PhotoState = ""
	StateJournal PhotoState = "journal"
	StateArchive PhotoState = "archive"
	StateDeleted PhotoState = "deleted"
)

// VisibilityFriends is the only visibility scope photos are created with.
const VisibilityFriends = "friends-only"

// Photo is a single captured photo (photos/{photoId}).
type Photo struct {
	ID                              string            `json:"id" dynamodbav:"-" firestore:"-"`
	UserID                          string            `json:"userId" dynamodbav:"userId" firestore:"userId"`
	ImageURL                        string            `json:"imageURL" dynamodbav:"imageURL" firestore:"imageURL"`
	CapturedAt                      time.Time         `json:"capturedAt" dynamodbav:"capturedAt" firestore:"capturedAt"`
	Status                          Status            `json:"status" dynamodbav:"status" firestore:"status"`
	PhotoState                      PhotoState        `json:"photoState,omitempty" dynamodbav:"photoState,omitempty" firestore:"photoState,omitempty"`
	Visibility                      string            `json:"visibility" dynamodbav:"visibility" firestore:"visibility"`
	Month                           string            `json:"month,omitempty" dynamodbav:"month,omitempty" firestore:"month,omitempty"`
	Reactions                       map[string]string `json:"reactions" dynamodbav:"reactions" firestore:"reactions"`
	ReactionCount                   int               `json:"reactionCount" dynamodbav:"reactionCount" firestore:"reactionCount"`
	TaggedUserIDs                   []string          `json:"taggedUserIds,omitempty" dynamodbav:"taggedUserIds,omitempty" firestore:"taggedUserIds,omitempty"`
	RevealedAt                      *time.Time        `json:"revealedAt,omitempty" dynamodbav:"revealedAt,omitempty" firestore:"revealedAt,omitempty"`
	ScheduledForPermanentDeletionAt *time.Time        `json:"scheduledForPermanentDeletionAt,omitempty" dynamodbav:"scheduledForPermanentDeletionAt,omitempty" firestore:"scheduledForPermanentDeletionAt,omitempty"`
}

// Consistent reports whether the photoState/status invariant holds:
// photoState is set if and only if the photo has been triaged.
func (p *Photo) Consistent() bool {
	return (p.PhotoState != StateNone) == (p.Status == StatusTriaged)
}

// Clone returns a deep copy of p.
func (p *Photo) Clone() *Photo {
	if p == nil {
		return nil
	}
	c := *p
	if p.Reactions != nil {
		c.Reactions = make(map[string]string, len(p.Reactions))
		for k, v := range p.Reactions {
			c.Reactions[k] = v
		}
	}
	if p.TaggedUserIDs != nil {
		c.TaggedUserIDs = append([]string(nil), p.TaggedUserIDs...)
	}
	c.RevealedAt = cloneTime(p.RevealedAt)
	c.ScheduledForPermanentDeletionAt = cloneTime(p.ScheduledForPermanentDeletionAt)
	return &c
}

// Darkroom is the per-user reveal timer (darkrooms/{userId}).
type Darkroom struct {
	UserID         string     `json:"userId" dynamodbav:"userId" firestore:"userId"`
	NextRevealAt   *time.Time `json:"nextRevealAt,omitempty" dynamodbav:"nextRevealAt,omitempty" firestore:"nextRevealAt"`
	LastRevealedAt *time.Time `json:"lastRevealedAt,omitempty" dynamodbav:"lastRevealedAt,omitempty" firestore:"lastRevealedAt"`
	CreatedAt      time.Time  `json:"createdAt" dynamodbav:"createdAt" firestore:"createdAt"`
}

// Clone returns a deep copy of d.
func (d *Darkroom) Clone() *Darkroom {
	if d == nil {
		return nil
	}
	c := *d
	c.NextRevealAt = cloneTime(d.NextRevealAt)
	c.LastRevealedAt = cloneTime(d.LastRevealedAt)
	return &c
}

// PhotoUpdate is a partial update. Nil fields are left untouched.
type PhotoUpdate struct {
	Status                          *Status
	PhotoState                      *PhotoState
	Month                           *string
	RevealedAt                      *time.Time
	ScheduledForPermanentDeletionAt *time.Time
	TaggedUserIDs                   []string
	Reactions                       map[string]string
	ReactionCount                   *int
}

// Apply writes the non-nil fields of u onto p.
func (u PhotoUpdate) Apply(p *Photo) {
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.PhotoState != nil {
		p.PhotoState = *u.PhotoState
	}
	if u.Month != nil {
		p.Month = *u.Month
	}
	if u.RevealedAt != nil {
		p.RevealedAt = cloneTime(u.RevealedAt)
	}
	if u.ScheduledForPermanentDeletionAt != nil {
		p.ScheduledForPermanentDeletionAt = cloneTime(u.ScheduledForPermanentDeletionAt)
	}
	if u.TaggedUserIDs != nil {
		p.TaggedUserIDs = append([]string(nil), u.TaggedUserIDs...)
	}
	if u.Reactions != nil {
		p.Reactions = make(map[string]string, len(u.Reactions))
		for k, v := range u.Reactions {
			p.Reactions[k] = v
		}
	}
	if u.ReactionCount != nil {
		p.ReactionCount = *u.ReactionCount
	}
}

// PhotoPatch pairs a photo ID with the update to apply in a batch.
type PhotoPatch struct {
	PhotoID string
	Update  PhotoUpdate
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
